// Package service implements the operations of the URL shortener on top of
// the storage layer: registration and login, and the owner-scoped URL
// operations guarded by the access policy.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	validator "github.com/go-playground/validator/v10"

	"github.com/patric-chuzhbe/tinyapp/internal/models"
	"github.com/patric-chuzhbe/tinyapp/internal/password"
	"github.com/patric-chuzhbe/tinyapp/internal/policy"
	"github.com/patric-chuzhbe/tinyapp/internal/shortid"
	"github.com/patric-chuzhbe/tinyapp/internal/user"
)

type userKeeper interface {
	CreateUser(ctx context.Context, usr *user.User) (string, error)
	GetUserByID(ctx context.Context, userID string) (*user.User, error)
	FindUserByEmail(ctx context.Context, email string) (*user.User, error)
	CountUsers(ctx context.Context) (int64, error)
}

type urlsKeeper interface {
	InsertURL(ctx context.Context, record models.URLRecord) error
	GetURL(ctx context.Context, shortID string) (*models.URLRecord, error)
	UpdateURL(ctx context.Context, shortID, longURL string) error
	DeleteURL(ctx context.Context, shortID string) error
	ListURLsByOwner(ctx context.Context, ownerID string) ([]models.URLRecord, error)
	ScanURLs(ctx context.Context) ([]models.URLRecord, error)
	CountURLs(ctx context.Context) (int64, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	userKeeper
	urlsKeeper
	pinger
}

type passwordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// Service is the application layer used by the HTTP router.
type Service struct {
	db                storage
	hasher            passwordHasher
	shortURLBase      string
	generateShortID   func() string
	generationAttempt int
}

// Option configures a Service.
type Option func(*Service)

// WithShortIDGenerator replaces the random short id generator.
func WithShortIDGenerator(generate func() string) Option {
	return func(s *Service) {
		s.generateShortID = generate
	}
}

// WithShortIDGenerationAttempts sets how many colliding ids CreateURL tolerates before giving up.
func WithShortIDGenerationAttempts(attempts int) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.generationAttempt = attempts
		}
	}
}

const defaultShortIDGenerationAttempts = 10

func New(
	db storage,
	hasher passwordHasher,
	shortURLBase string,
	opts ...Option,
) *Service {
	s := &Service{
		db:                db,
		hasher:            hasher,
		shortURLBase:      strings.TrimRight(shortURLBase, "/"),
		generateShortID:   shortid.Generate,
		generationAttempt: defaultShortIDGenerationAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Register creates a user with a hashed password.
func (s *Service) Register(ctx context.Context, email, plainPassword string) (*user.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || plainPassword == "" {
		return nil, models.ErrEmptyCredentials
	}

	_, err := s.db.FindUserByEmail(ctx, email)
	if err == nil {
		return nil, models.ErrEmailTaken
	}
	if !errors.Is(err, models.ErrUserNotFound) {
		return nil, fmt.Errorf("in internal/service/service.go/Register(): error while `s.db.FindUserByEmail()` calling: %w", err)
	}

	hash, err := s.hasher.Hash(plainPassword)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/Register(): error while `s.hasher.Hash()` calling: %w", err)
	}

	usr := &user.User{Email: email, PasswordHash: hash}
	usr.ID, err = s.db.CreateUser(ctx, usr)
	if err != nil {
		// the store re-checks the email, a concurrent registration ends up here
		if errors.Is(err, models.ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("in internal/service/service.go/Register(): error while `s.db.CreateUser()` calling: %w", err)
	}

	return usr, nil
}

// FindUserByEmail returns models.ErrUserNotFound when nobody registered email.
func (s *Service) FindUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.db.FindUserByEmail(ctx, strings.TrimSpace(email))
}

// Authenticate checks the credentials and returns the matching user.
func (s *Service) Authenticate(ctx context.Context, email, plainPassword string) (*user.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || plainPassword == "" {
		return nil, models.ErrEmptyCredentials
	}

	usr, err := s.db.FindUserByEmail(ctx, email)
	if errors.Is(err, models.ErrUserNotFound) {
		return nil, models.ErrEmailNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/Authenticate(): error while `s.db.FindUserByEmail()` calling: %w", err)
	}

	err = s.hasher.Compare(usr.PasswordHash, plainPassword)
	if errors.Is(err, password.ErrMismatch) {
		return nil, models.ErrWrongPassword
	}
	if err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/Authenticate(): error while `s.hasher.Compare()` calling: %w", err)
	}

	return usr, nil
}

// GetUser returns the user with userID or models.ErrUserNotFound.
func (s *Service) GetUser(ctx context.Context, userID string) (*user.User, error) {
	if userID == "" {
		return nil, models.ErrUserNotFound
	}

	return s.db.GetUserByID(ctx, userID)
}

// CreateURL shortens longURL on behalf of userID and returns the new short id.
// A generated id that is already in use is discarded and another one is drawn.
func (s *Service) CreateURL(ctx context.Context, userID, longURL string) (string, error) {
	if err := policy.CanAccess(policy.ActionCreate, userID, nil); err != nil {
		return "", err
	}

	longURL, err := NormalizeLongURL(longURL)
	if err != nil {
		return "", err
	}

	for attempt := 0; attempt < s.generationAttempt; attempt++ {
		record := models.URLRecord{
			ShortID: s.generateShortID(),
			LongURL: longURL,
			OwnerID: userID,
		}
		err = s.db.InsertURL(ctx, record)
		if errors.Is(err, models.ErrShortIDTaken) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("in internal/service/service.go/CreateURL(): error while `s.db.InsertURL()` calling: %w", err)
		}

		return record.ShortID, nil
	}

	return "", models.ErrShortIDExhausted
}

// GetURL returns the record if userID owns it.
func (s *Service) GetURL(ctx context.Context, userID, shortID string) (*models.URLRecord, error) {
	return s.authorize(ctx, policy.ActionView, userID, shortID)
}

// UpdateURL points an owned short id at a new long URL. The owner never changes.
func (s *Service) UpdateURL(ctx context.Context, userID, shortID, longURL string) error {
	if _, err := s.authorize(ctx, policy.ActionEdit, userID, shortID); err != nil {
		return err
	}

	longURL, err := NormalizeLongURL(longURL)
	if err != nil {
		return err
	}

	return s.db.UpdateURL(ctx, shortID, longURL)
}

// DeleteURL removes an owned short id.
func (s *Service) DeleteURL(ctx context.Context, userID, shortID string) error {
	if _, err := s.authorize(ctx, policy.ActionDelete, userID, shortID); err != nil {
		return err
	}

	return s.db.DeleteURL(ctx, shortID)
}

// ListURLs returns the records owned by userID in creation order.
func (s *Service) ListURLs(ctx context.Context, userID string) ([]models.URLRecord, error) {
	if err := policy.CanAccess(policy.ActionList, userID, nil); err != nil {
		return nil, err
	}

	return s.db.ListURLsByOwner(ctx, userID)
}

// ResolveURL is the public lookup behind /u/{id}, it applies no ownership check.
func (s *Service) ResolveURL(ctx context.Context, shortID string) (string, error) {
	record, err := s.db.GetURL(ctx, shortID)
	if err != nil {
		return "", err
	}

	return record.LongURL, nil
}

// DumpURLs returns every record keyed by short id.
func (s *Service) DumpURLs(ctx context.Context) (models.URLsDump, error) {
	records, err := s.db.ScanURLs(ctx)
	if err != nil {
		return nil, err
	}

	dump := make(models.URLsDump, len(records))
	for _, record := range records {
		dump[record.ShortID] = record
	}

	return dump, nil
}

// Ping checks the health of the database/storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// GetInternalStats returns statistics such as total shortened URLs and user count.
func (s *Service) GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error) {
	urls, err := s.db.CountURLs(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	users, err := s.db.CountUsers(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	return models.InternalStatsResponse{
		URLs:  urls,
		Users: users,
	}, nil
}

// GetShortURL builds the public short link for shortID.
func (s *Service) GetShortURL(shortID string) string {
	return s.shortURLBase + "/u/" + shortID
}

func (s *Service) authorize(ctx context.Context, action policy.Action, userID, shortID string) (*models.URLRecord, error) {
	if userID == "" {
		return nil, models.ErrMustBeLoggedIn
	}

	record, err := s.db.GetURL(ctx, shortID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("in internal/service/service.go/authorize(): error while `s.db.GetURL()` calling: %w", err)
	}

	if err := policy.CanAccess(action, userID, record); err != nil {
		return nil, err
	}

	return record, nil
}

var validate = validator.New()

// NormalizeLongURL trims longURL and checks that it is an absolute http(s) URL.
func NormalizeLongURL(longURL string) (string, error) {
	longURL = strings.TrimSpace(longURL)
	if err := validate.Var(longURL, "required,http_url"); err != nil {
		return "", models.ErrInvalidURL
	}

	return longURL, nil
}
