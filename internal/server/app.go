// Package server wires the authkeeper server together: database pool,
// migrations, repositories, the user service and the HTTP server. It also
// handles graceful shutdown on SIGINT, SIGTERM and SIGQUIT.
package server

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/rest"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/samber/oops"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	userService *services.UserService
	httpServer  *rest.Server
}

// NewApp connects to the database, applies migrations and builds the services.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "open database").Wrap(err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "ping database").Wrap(err)
	}

	app, err := newApp(ctx, c, db, repomanager.NewPostgresRepositoryManager(), logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, db *sql.DB, rm repomanager.RepositoryManager, logger logging.Logger) (*App, error) {
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}

	us := services.NewUserService(db, rm,
		auth.NewTokenCodec([]byte(c.SecretKey)),
		auth.NewBcryptHasher(c.PasswordHashCost),
		c, logger.With("module", "user_service"))

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		userService: us,
		httpServer:  rest.NewServer(logger, us, c),
	}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.httpServer.Run(ctx); err != nil {
		logging.LogError(ctx, app.logger, "HTTP server failed", err)
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a shutdown signal arrives, then
// closes the database pool.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(ctx, cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		logging.LogError(context.Background(), app.logger, "close database", err)
	}
	app.logger.Info(context.Background(), "App stopped")
}
