// Package runtime assembles configuration, storage, services and the HTTP
// server into a runnable process.
package runtime

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/taskpom/taskpom/internal/api/httpserver"
	app "github.com/taskpom/taskpom/internal/app"
	"github.com/taskpom/taskpom/internal/app/auth"
	"github.com/taskpom/taskpom/internal/app/httpapi"
	"github.com/taskpom/taskpom/internal/app/metrics"
	"github.com/taskpom/taskpom/internal/app/storage/postgres"
	"github.com/taskpom/taskpom/internal/config"
	"github.com/taskpom/taskpom/internal/middleware"
	"github.com/taskpom/taskpom/internal/platform/cache"
	"github.com/taskpom/taskpom/internal/platform/database"
	"github.com/taskpom/taskpom/internal/platform/migrations"
	"github.com/taskpom/taskpom/pkg/logger"
)

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg        *config.Config
	log        *logger.Logger
	httpServer *httpserver.Server
	app        *app.Application
	db         *sql.DB
	statsCache *cache.StatsCache
}

// NewApplication constructs a new application instance with default wiring.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewApplicationWithConfig(cfg)
}

// NewApplicationWithConfig constructs an application from an explicit
// configuration, used by tests and the CLI.
func NewApplicationWithConfig(cfg *config.Config) (*Application, error) {
	log := logger.New(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePrefix: cfg.Logging.FilePrefix,
	})

	stores, db, err := buildStores(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("configure stores: %w", err)
	}

	statsCache := cache.New(cfg.Redis, log)

	opts := app.Options{StatsCache: statsCache}
	if cfg.Pomodoro.SweeperEnabled {
		opts.SweepSchedule = cfg.Pomodoro.SweepSchedule
	}

	application, err := app.New(stores, opts, log)
	if err != nil {
		return nil, err
	}

	var authMgr *auth.Manager
	if cfg.Auth.Enabled {
		users := make([]auth.User, 0, len(cfg.Auth.Users))
		for _, u := range cfg.Auth.Users {
			users = append(users, auth.User{Username: u.Username, Password: u.Password, Role: u.Role})
		}
		authMgr = auth.NewManager(cfg.Auth.JWTSecret, users, time.Duration(cfg.Auth.TokenTTL)*time.Second)
	}

	handler := buildHandler(cfg, log, application, authMgr)
	httpSrv := httpserver.New(cfg.Server, log, handler)

	return &Application{
		cfg:        cfg,
		log:        log,
		httpServer: httpSrv,
		app:        application,
		db:         db,
		statsCache: statsCache,
	}, nil
}

// App exposes the wired application services, primarily for tests.
func (a *Application) App() *app.Application {
	return a.app
}

// Run starts background services and the HTTP server, blocking until the
// context is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP server listening on %s", a.httpServer.Addr())
		if err := a.httpServer.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server, background services and
// persistence handles.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownWindow())
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := a.app.Stop(shutdownCtx); err != nil {
		a.log.WithError(err).Warn("error stopping services")
	}

	if a.statsCache != nil {
		if err := a.statsCache.Close(); err != nil {
			a.log.WithError(err).Warn("error closing stats cache")
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
	}

	return nil
}

func buildStores(cfg *config.Config, log *logger.Logger) (app.Stores, *sql.DB, error) {
	if cfg.Database.DSN == "" {
		log.Warn("database dsn not configured; using in-memory storage")
		return app.Stores{}, nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return app.Stores{}, nil, err
	}

	if err := migrations.Apply(ctx, db); err != nil {
		db.Close()
		return app.Stores{}, nil, fmt.Errorf("apply migrations: %w", err)
	}

	store := postgres.New(db)
	return app.Stores{Tasks: store, Pomodoro: store}, db, nil
}

func buildHandler(cfg *config.Config, log *logger.Logger, application *app.Application, authMgr *auth.Manager) http.Handler {
	handler := httpapi.NewHandler(application, authMgr)

	if authMgr != nil {
		authMW := middleware.NewAuthMiddleware(authMgr, log, []string{"/", "/healthz", "/metrics", "/auth/login"})
		handler = authMW.Handler(handler)
	}
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log)
		limiter.StartCleanup(time.Minute)
		handler = limiter.Handler(handler)
	}
	handler = middleware.NewCORSMiddleware(cfg.CORS.AllowedOrigins).Handler(handler)
	handler = middleware.NewTracingMiddleware(log).Handler(handler)
	handler = metrics.InstrumentHandler(handler)

	return handler
}
