// Package postgresdb provides a PostgreSQL-based implementation of the user
// and URL stores. Schema migrations are embedded and applied with goose on New.
package postgresdb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/patric-chuzhbe/tinyapp/internal/models"
	"github.com/patric-chuzhbe/tinyapp/internal/user"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	uniqueViolationCode      = "23505"
	usersEmailConstraintName = "users_email_unique"
	urlsPkeyConstraintName   = "urls_pkey"
)

// PostgresDB is a PostgreSQL-backed store.
// Every method is a single statement, so each operation is atomic on its own.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset enables dropping every public table before migrating.
// It is meant for tests.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// New connects to the database and runs the embedded migrations.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): error while `sql.Open()` calling: %w", err)
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			return nil, err
		}
	}

	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): error while `goose.SetDialect()` calling: %w", err)
	}

	if err := goose.UpContext(ctx, result.database, "migrations"); err != nil {
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): error while `goose.UpContext()` calling: %w", err)
	}

	return result, nil
}

// CreateUser inserts a user, assigning a UUID when usr.ID is empty.
// A duplicate email is reported as models.ErrEmailTaken.
func (db *PostgresDB) CreateUser(ctx context.Context, usr *user.User) (string, error) {
	userID := usr.ID
	if userID == "" {
		userID = uuid.New().String()
	}

	_, err := db.database.ExecContext(
		ctx,
		`INSERT INTO users (id, email, password_hash) VALUES ($1, $2, $3)`,
		userID,
		usr.Email,
		usr.PasswordHash,
	)
	if isUniqueViolation(err, usersEmailConstraintName) {
		return "", models.ErrEmailTaken
	}
	if err != nil {
		return "", fmt.Errorf("in internal/db/postgresdb/postgresdb.go/CreateUser(): error while `db.database.ExecContext()` calling: %w", err)
	}

	return userID, nil
}

// GetUserByID returns models.ErrUserNotFound for unknown ids.
func (db *PostgresDB) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	return db.scanUser(db.database.QueryRowContext(
		ctx,
		`SELECT id, email, password_hash FROM users WHERE id = $1`,
		userID,
	))
}

// FindUserByEmail returns models.ErrUserNotFound when nobody uses the email.
func (db *PostgresDB) FindUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return db.scanUser(db.database.QueryRowContext(
		ctx,
		`SELECT id, email, password_hash FROM users WHERE email = $1 ORDER BY created_at LIMIT 1`,
		email,
	))
}

func (db *PostgresDB) scanUser(row *sql.Row) (*user.User, error) {
	usr := &user.User{}
	err := row.Scan(&usr.ID, &usr.Email, &usr.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return usr, nil
}

// InsertURL adds a record; a taken short id is reported as models.ErrShortIDTaken.
func (db *PostgresDB) InsertURL(ctx context.Context, record models.URLRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	_, err := db.database.ExecContext(
		ctx,
		`INSERT INTO urls (short_id, long_url, owner_id, created_at) VALUES ($1, $2, NULLIF($3, ''), $4)`,
		record.ShortID,
		record.LongURL,
		record.OwnerID,
		record.CreatedAt,
	)
	if isUniqueViolation(err, urlsPkeyConstraintName) {
		return models.ErrShortIDTaken
	}
	if err != nil {
		return fmt.Errorf("in internal/db/postgresdb/postgresdb.go/InsertURL(): error while `db.database.ExecContext()` calling: %w", err)
	}

	return nil
}

// GetURL returns models.ErrNotFound for unknown short ids.
func (db *PostgresDB) GetURL(ctx context.Context, shortID string) (*models.URLRecord, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT short_id, long_url, COALESCE(owner_id, ''), created_at FROM urls WHERE short_id = $1`,
		shortID,
	)
	record := &models.URLRecord{}
	err := row.Scan(&record.ShortID, &record.LongURL, &record.OwnerID, &record.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return record, nil
}

// UpdateURL replaces the long URL, the owner is kept.
func (db *PostgresDB) UpdateURL(ctx context.Context, shortID, longURL string) error {
	result, err := db.database.ExecContext(
		ctx,
		`UPDATE urls SET long_url = $2 WHERE short_id = $1`,
		shortID,
		longURL,
	)
	if err != nil {
		return fmt.Errorf("in internal/db/postgresdb/postgresdb.go/UpdateURL(): error while `db.database.ExecContext()` calling: %w", err)
	}

	return expectOneRow(result)
}

func (db *PostgresDB) DeleteURL(ctx context.Context, shortID string) error {
	result, err := db.database.ExecContext(ctx, `DELETE FROM urls WHERE short_id = $1`, shortID)
	if err != nil {
		return fmt.Errorf("in internal/db/postgresdb/postgresdb.go/DeleteURL(): error while `db.database.ExecContext()` calling: %w", err)
	}

	return expectOneRow(result)
}

// ListURLsByOwner returns the records owned by ownerID in insertion order.
func (db *PostgresDB) ListURLsByOwner(ctx context.Context, ownerID string) ([]models.URLRecord, error) {
	return db.queryURLs(
		ctx,
		`SELECT short_id, long_url, COALESCE(owner_id, ''), created_at FROM urls WHERE owner_id = $1 ORDER BY seq`,
		ownerID,
	)
}

// ScanURLs returns every record in insertion order.
func (db *PostgresDB) ScanURLs(ctx context.Context) ([]models.URLRecord, error) {
	return db.queryURLs(
		ctx,
		`SELECT short_id, long_url, COALESCE(owner_id, ''), created_at FROM urls ORDER BY seq`,
	)
}

func (db *PostgresDB) queryURLs(ctx context.Context, query string, args ...interface{}) ([]models.URLRecord, error) {
	rows, err := db.database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []models.URLRecord{}
	for rows.Next() {
		var record models.URLRecord
		if err := rows.Scan(&record.ShortID, &record.LongURL, &record.OwnerID, &record.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (db *PostgresDB) CountURLs(ctx context.Context) (int64, error) {
	return db.count(ctx, `SELECT COUNT(*) FROM urls`)
}

func (db *PostgresDB) CountUsers(ctx context.Context) (int64, error) {
	return db.count(ctx, `SELECT COUNT(*) FROM users`)
}

func (db *PostgresDB) count(ctx context.Context, query string) (int64, error) {
	var result int64
	if err := db.database.QueryRowContext(ctx, query).Scan(&result); err != nil {
		return 0, err
	}

	return result, nil
}

// Ping verifies connectivity with the PostgreSQL database within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close closes the database connection and releases any associated resources.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/resetDB(): error while `db.database.ExecContext()` calling: %w",
			err,
		)
	}
	return nil
}

func expectOneRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrNotFound
	}

	return nil
}

func isUniqueViolation(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == uniqueViolationCode &&
		pgErr.ConstraintName == constraintName
}
