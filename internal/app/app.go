// Package app initializes and runs the main application service.
// It configures logging, storage, sessions and routing, runs the HTTP and
// the optional gRPC health server, and handles graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/patric-chuzhbe/tinyapp/internal/auth"
	"github.com/patric-chuzhbe/tinyapp/internal/config"
	"github.com/patric-chuzhbe/tinyapp/internal/db/jsondb"
	"github.com/patric-chuzhbe/tinyapp/internal/db/memorystorage"
	"github.com/patric-chuzhbe/tinyapp/internal/db/postgresdb"
	"github.com/patric-chuzhbe/tinyapp/internal/grpcserver"
	"github.com/patric-chuzhbe/tinyapp/internal/ipchecker"
	"github.com/patric-chuzhbe/tinyapp/internal/logger"
	"github.com/patric-chuzhbe/tinyapp/internal/models"
	"github.com/patric-chuzhbe/tinyapp/internal/password"
	"github.com/patric-chuzhbe/tinyapp/internal/router"
	"github.com/patric-chuzhbe/tinyapp/internal/service"
	"github.com/patric-chuzhbe/tinyapp/internal/user"
	"github.com/patric-chuzhbe/tinyapp/internal/views"
)

const shutdownTimeout = 10 * time.Second

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
	Close() error
}

// App encapsulates the configuration, HTTP handler, storage backend
// and the gRPC health server needed to run the URL shortener service.
type App struct {
	cfg         *config.Config
	db          storage
	httpHandler http.Handler
	grpcServer  *grpcserver.Server
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting and setting up storage
// - setting up sessions, the service and the router
// - setting up the gRPC health server when an address is configured
func New(opts ...config.InitOption) (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New(opts...)
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	signingKeys, err := sessionSigningKeys(app.cfg)
	if err != nil {
		return nil, app.closeOnError(err)
	}

	theAuth, err := auth.New(
		app.db,
		app.cfg.SessionCookieName,
		signingKeys,
		app.cfg.SessionTTL,
		app.cfg.EnableHTTPS,
	)
	if err != nil {
		return nil, app.closeOnError(err)
	}

	pages, err := views.New()
	if err != nil {
		return nil, app.closeOnError(err)
	}

	guard, err := ipchecker.New(app.cfg.TrustedSubnet)
	if err != nil {
		return nil, app.closeOnError(err)
	}

	svc := service.New(
		app.db,
		password.New(app.cfg.PasswordHashCost),
		app.cfg.ShortURLBase,
		service.WithShortIDGenerationAttempts(app.cfg.ShortIDGenerationAttempts),
	)

	app.httpHandler = router.New(svc, theAuth, pages, guard)

	if app.cfg.GRPCAddr != "" {
		app.grpcServer = grpcserver.New(app.db)
	}

	return app, nil
}

// sessionSigningKeys decodes the configured keys or, with none configured,
// makes a random one.
func sessionSigningKeys(cfg *config.Config) ([][]byte, error) {
	keys, err := cfg.DecodedSigningKeys()
	if !errors.Is(err, config.ErrNoSigningKeys) {
		return keys, err
	}

	key, err := auth.NewSigningKey()
	if err != nil {
		return nil, err
	}
	logger.Log.Warnln("SESSION_SIGNING_KEYS is not set, sessions are signed with a random key and will not survive a restart")

	return [][]byte{key}, nil
}

func (a *App) closeOnError(err error) error {
	if closeErr := a.db.Close(); closeErr != nil {
		return errors.Join(err, closeErr)
	}
	return err
}

// Run starts the servers with graceful shutdown support.
// It listens for system signals and cleans up resources upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return a.serve(ctx)
}

func (a *App) serve(ctx context.Context) error {
	server := &http.Server{
		Addr:              a.cfg.RunAddr,
		Handler:           a.httpHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 2)
	go func() {
		logger.Log.Infoln("server running", "RunAddr", a.cfg.RunAddr, "HTTPS", a.cfg.EnableHTTPS)
		var err error
		if a.cfg.EnableHTTPS {
			err = server.ListenAndServeTLS(a.cfg.TLSCertFile, a.cfg.TLSKeyFile)
		} else {
			err = server.ListenAndServe()
		}
		serverErrCh <- fmt.Errorf("http server: %w", err)
	}()

	if a.grpcServer != nil {
		lis, err := grpcserver.Listen(a.cfg.GRPCAddr)
		if err != nil {
			return a.shutdown(server, fmt.Errorf("grpc listen: %w", err))
		}
		a.grpcServer.Refresh(ctx)
		go func() {
			logger.Log.Infoln("gRPC server running", "GRPCAddr", lis.Addr().String())
			serverErrCh <- fmt.Errorf("grpc server: %w", a.grpcServer.Serve(lis))
		}()
	}

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Saving database and exiting...")
		return a.shutdown(server, nil)

	case err := <-serverErrCh:
		return a.shutdown(server, err)
	}
}

func (a *App) shutdown(server *http.Server, cause error) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := []error{cause}
	if a.grpcServer != nil {
		a.grpcServer.Shutdown()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}
	if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("storage close error: %w", err))
	}

	return errors.Join(errs...)
}

// Handler exposes the HTTP handler, mostly for tests.
func (a *App) Handler() http.Handler {
	return a.httpHandler
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	if cfg.DBFileName != "" {
		return models.StorageTypeFile
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		logger.Log.Infoln("using PostgreSQL storage")
		return postgresdb.New(
			context.Background(),
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
		)

	case models.StorageTypeFile:
		logger.Log.Infoln("using JSON file storage", "path", cfg.DBFileName)
		return jsondb.New(cfg.DBFileName)
	}

	logger.Log.Infoln("using in-memory storage")
	return memorystorage.New()
}
