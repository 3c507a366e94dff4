package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	httpapi "github.com/dricommerce/authcore/internal/auth/http"
	"github.com/dricommerce/authcore/internal/auth/metrics"
	"github.com/dricommerce/authcore/internal/auth/service"
	"github.com/dricommerce/authcore/internal/auth/store"
	"github.com/dricommerce/authcore/internal/auth/store/drivers/postgres"
	"github.com/dricommerce/authcore/internal/auth/store/drivers/sqlite"
	"github.com/dricommerce/authcore/pkg/clockx"
	"github.com/dricommerce/authcore/pkg/cryptox"
	"github.com/dricommerce/authcore/pkg/httpx"
	"github.com/dricommerce/authcore/pkg/jwtx"
	"github.com/dricommerce/authcore/pkg/ratelimit"
	"github.com/dricommerce/authcore/pkg/slogx"
)

// BuildVersion is overridden at build time with -ldflags "-X".
var BuildVersion = "v0.1.0"

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger
	clock  clockx.Clock

	// Core dependencies
	db         store.Store
	keyManager *jwtx.KeyManager
	hasher     *cryptox.Hasher
	limiter    *ratelimit.Limiter
	registry   *prometheus.Registry
	proxies    httpx.TrustedProxies

	// Services
	tokenService        *service.TokenService
	loginService        *service.LoginService
	refreshService      *service.RefreshService
	userService         *service.UserService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
// It fails if the signing key cannot be loaded; the service never serves
// without one.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg:   cfg,
		clock: clockx.System(),
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	proxies, err := httpx.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("failed to parse AUTH_TRUSTED_PROXIES: %w", err)
	}
	app.proxies = proxies

	// Keys first: nothing else is worth starting without them.
	keyManager, err := InitAuthKeys(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT keys: %w", err)
	}
	app.keyManager = keyManager

	pepper, err := cryptox.LoadOrCreatePepper(cfg.PepperFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}

	ctx := context.Background()
	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}

	if err := app.initHasher(ctx, pepper); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()

	if err := app.seedAdmin(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initHTTP()

	return app, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			_ = app.db.Close()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// OpenStore connects to the configured database and applies migrations.
// It is shared with the auth-admin CLI.
func OpenStore(ctx context.Context, cfg Config) (store.Store, error) {
	var (
		st  store.Store
		err error
	)

	switch cfg.DatabaseDriver {
	case DriverSQLite:
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.DatabaseFile)
		st, err = sqlite.NewStore(dsn)
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("AUTH_DATABASE_URL is required for the postgres driver")
		}
		st, err = postgres.NewStore(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DatabaseDriver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := st.ApplyMigrations(); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}
	return st, nil
}

func (app *Application) initDatabase(ctx context.Context) error {
	st, err := OpenStore(ctx, app.cfg)
	if err != nil {
		return err
	}
	app.db = st

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

// initHasher sizes the dummy hash to the slowest scheme still stored. While
// legacy bcrypt hashes remain, rejecting an unknown email must cost as much
// as checking one of them. Restart after the legacy hashes are upgraded to
// return to Argon2id.
func (app *Application) initHasher(ctx context.Context, pepper string) error {
	cost, err := app.db.Users().MaxBcryptCost(ctx)
	if err != nil {
		return fmt.Errorf("failed to inspect stored password hashes: %w", err)
	}

	if cost == 0 {
		app.hasher = cryptox.NewHasher(pepper)
		return nil
	}
	app.hasher = cryptox.NewHasher(pepper, cryptox.WithBcryptDummy(cost))
	app.logger.Info("legacy bcrypt hashes present, unknown emails are checked against bcrypt", "cost", cost)
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.tokenService = service.NewTokenService(
		app.keyManager.Signer(),
		app.keyManager.Verifier,
		app.clock,
		service.TokenConfig{
			Issuer:     app.cfg.Issuer,
			AccessTTL:  app.cfg.AccessTTL,
			RefreshTTL: app.cfg.RefreshTTL,
		},
	)

	app.limiter = ratelimit.New(app.clock)
	authenticator := service.NewAuthenticator(app.db.Users(), app.hasher).
		WithRehash(app.hasher, app.db.Users())

	app.loginService = service.NewLoginService(app.limiter, authenticator, app.tokenService, app.cfg.LoginLimit)
	app.refreshService = service.NewRefreshService(app.db.Users(), app.tokenService, app.db.RevokedTokens(), app.clock)
	app.userService = service.NewUserService(app.db.Users())
	app.bootstrapService = service.NewBootstrapService(app.db, app.hasher, app.clock)

	app.housekeepingService = service.NewHousekeepingService(
		app.limiter,
		app.db.RevokedTokens(),
		app.clock,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

func (app *Application) seedAdmin(ctx context.Context) error {
	if app.cfg.AdminEmail == "" {
		return nil
	}
	ctx = slogx.WithContext(ctx, app.logger)

	if _, err := app.bootstrapService.SeedAdmin(ctx, app.cfg.AdminName, app.cfg.AdminEmail, app.cfg.AdminPassword); err != nil {
		return fmt.Errorf("failed to seed admin account: %w", err)
	}
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	router := httpapi.NewRouter(
		app.keyManager.KeySet,
		app.keyManager.Verifier,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.LoginService = app.loginService
	router.RefreshService = app.refreshService
	router.UserService = app.userService
	router.LoginPolicy.MaxAttempts = app.loginService.Limit().MaxAttempts
	router.LoginPolicy.Window = app.loginService.Limit().Window
	router.RateLimits = app.cfg.RateLimits
	router.TrustedProxies = app.proxies
	router.Metrics = metrics.NewCollector(app.registry, app.limiter.Len)
	router.MetricsGatherer = app.registry
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
