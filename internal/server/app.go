// Package server wires configuration, storage, token issuance and the HTTP
// transport together and runs them until the process is signalled.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/tubekeeper/internal/logging"
	"github.com/dmitrijs2005/tubekeeper/internal/server/auth"
	"github.com/dmitrijs2005/tubekeeper/internal/server/config"
	"github.com/dmitrijs2005/tubekeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/tubekeeper/internal/server/media"
	"github.com/dmitrijs2005/tubekeeper/internal/server/password"
	"github.com/dmitrijs2005/tubekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tubekeeper/internal/server/services"
)

// seams for tests
var (
	openDB = func(dsn string) (*sql.DB, error) {
		return sql.Open("pgx", dsn)
	}

	newRepositoryManager = func() repomanager.RepositoryManager {
		return repomanager.NewPostgresRepositoryManager()
	}

	newMediaStorage = func(ctx context.Context, c *config.Config) (media.Storage, error) {
		return media.NewS3Storage(ctx, c)
	}
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	issuer, err := auth.NewIssuer(auth.Config{
		AccessSecret:  c.AccessTokenSecret,
		AccessTTL:     c.AccessTokenValidityDuration,
		RefreshSecret: c.RefreshTokenSecret,
		RefreshTTL:    c.RefreshTokenValidityDuration,
	})
	if err != nil {
		return nil, fmt.Errorf("token issuer: %w", err)
	}

	hasher, err := password.NewBcrypt(c.PasswordCost)
	if err != nil {
		return nil, fmt.Errorf("password hasher: %w", err)
	}

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := newRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	storage, err := newMediaStorage(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("media storage: %w", err)
	}

	sessions := services.NewSessionService(db, rm, issuer, hasher, logger)
	accounts := services.NewAccountService(db, rm, hasher, storage, logger)
	channels := services.NewChannelService(db, rm)

	return &App{
		config: c,
		logger: logger,
		db:     db,
		server: httpapi.NewServer(c, sessions, accounts, channels, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server stopped", "error", err)
		cancelFunc()
	}
}

// Run blocks until ctx is cancelled, a termination signal arrives or the
// HTTP server fails.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing database", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
