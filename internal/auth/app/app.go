package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/kindergrid/kindergrid/internal/auth/http"
	"github.com/kindergrid/kindergrid/internal/auth/service"
	"github.com/kindergrid/kindergrid/internal/auth/store"
	"github.com/kindergrid/kindergrid/internal/auth/store/drivers/sqlite"
	"github.com/kindergrid/kindergrid/pkg/jwtx"
	"github.com/kindergrid/kindergrid/pkg/slogx"
	"github.com/kindergrid/kindergrid/pkg/verify"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	signer   *jwtx.HS256Signer
	parser   *jwtx.HS256Parser
	verifier *verify.Verifier

	tokenService        *service.TokenService
	sessionService      *service.SessionService
	accountService      *service.AccountService
	mfaService          *service.MFAService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initVerification(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
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
		if err != nil && err != http.ErrServerClosed {
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

// Shutdown gracefully shuts down the application.
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

// initDatabase opens the shared database file and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initVerification builds the signer, parser, and the shared verifier. The
// verifier reads revocations through a short-TTL cache; revocation writes
// still land in the database directly, so the bounded staleness only ever
// delays a denial, never an approval.
func (app *Application) initVerification() error {
	secret := []byte(app.cfg.SigningSecret)

	signer, err := jwtx.NewHS256Signer(secret)
	if err != nil {
		return fmt.Errorf("failed to initialize signer: %w", err)
	}
	parser, err := jwtx.NewHS256Parser(secret)
	if err != nil {
		return fmt.Errorf("failed to initialize parser: %w", err)
	}

	checker := verify.NewCachedChecker(app.db.Revocations(), app.cfg.RevocationCacheTTL)
	verifier, err := verify.New(parser, checker, verify.Options{
		Issuer: app.cfg.Issuer,
		Leeway: app.cfg.ClockSkewLeeway,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize verifier: %w", err)
	}

	app.signer = signer
	app.parser = parser
	app.verifier = verifier
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	app.tokenService = &service.TokenService{
		Signer:          app.signer,
		Verifier:        app.verifier,
		Store:           app.db,
		Issuer:          app.cfg.Issuer,
		GuardianTTL:     app.cfg.GuardianTTL,
		SessionCeilings: app.cfg.SessionCeilings,
	}

	app.sessionService = &service.SessionService{
		Parser:   app.parser,
		Verifier: app.verifier,
		Store:    app.db,
		Leeway:   app.cfg.ClockSkewLeeway,
	}

	app.accountService = &service.AccountService{Store: app.db}

	app.mfaService = &service.MFAService{
		Store:  app.db,
		Issuer: app.cfg.Issuer,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.ClockSkewLeeway,
	)
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.verifier,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.TokenService = app.tokenService
	router.SessionService = app.sessionService
	router.AccountService = app.accountService
	router.MFAService = app.mfaService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
