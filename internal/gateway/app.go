package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kindergrid/kindergrid/internal/auth/store"
	"github.com/kindergrid/kindergrid/internal/auth/store/drivers/sqlite"
	"github.com/kindergrid/kindergrid/pkg/authsdk"
	"github.com/kindergrid/kindergrid/pkg/httpx"
	"github.com/kindergrid/kindergrid/pkg/jwtx"
	"github.com/kindergrid/kindergrid/pkg/slogx"
	"github.com/kindergrid/kindergrid/pkg/verify"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application is the gateway process: rate limit, verify, mint, proxy.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	verifier *verify.Verifier
	proxy    *Proxy

	server *http.Server
}

// New creates a gateway Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "gateway",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// The gateway reads the shared revocation set directly; it never writes.
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return nil, fmt.Errorf("failed to open revocation store: %w", err)
	}
	app.db = db

	parser, err := jwtx.NewHS256Parser([]byte(cfg.SigningSecret))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize parser: %w", err)
	}

	checker := verify.NewCachedChecker(db.Revocations(), cfg.RevocationCacheTTL)
	verifier, err := verify.New(parser, checker, verify.Options{
		Issuer: cfg.Issuer,
		Leeway: cfg.ClockSkewLeeway,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize verifier: %w", err)
	}
	app.verifier = verifier

	minter, err := NewIdentityMinter([]byte(cfg.IdentitySecret), cfg.IdentityTTL)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	app.proxy = &Proxy{
		Routes:          cfg.Routes,
		Minter:          minter,
		Client:          &http.Client{},
		UpstreamTimeout: cfg.UpstreamTimeout,
	}

	app.initHTTP()
	return app, nil
}

// Run starts the gateway and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("gateway starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"routes", len(app.cfg.Routes),
	)

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

// Shutdown gracefully shuts down the gateway.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down gateway...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing revocation store", "error", err)
		return err
	}

	app.logger.Info("gateway stopped")
	return nil
}

// initHTTP wires the request pipeline. Order is fixed by contract: the rate
// limiter sees every request before any verification work happens, so a
// flood of garbage tokens costs one bucket check each, not four pipeline
// steps.
func (app *Application) initHTTP() {
	mux := http.NewServeMux()

	mux.Handle("GET /livez", http.HandlerFunc(app.handleLivez))

	rateLimit := httpx.RateLimitConfig{
		RequestsPerWindow: app.cfg.RateLimitPerMinute,
		Window:            time.Minute,
		Burst:             app.cfg.RateLimitPerMinute,
	}

	mux.Handle("/", httpx.Chain(app.proxy,
		httpx.RateLimitByCaller(rateLimit),
		httpx.AuthnMiddleware(app.verifier),
	))

	handler := httpx.Chain(mux,
		slogx.HTTPMiddleware(app.logger),
	)

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

func (app *Application) handleLivez(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, authsdk.HealthResponse{
		Status:  "ok",
		Version: BuildVersion,
	})
}
