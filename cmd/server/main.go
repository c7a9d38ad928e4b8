// Command main is the entry point for the Clanhub backend server.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clanhub/internal/bootstrap"
	"clanhub/internal/config"
	"clanhub/internal/middleware"
	"clanhub/internal/notifications"
	"clanhub/internal/observability"
	"clanhub/internal/server"
)

// @title Clanhub API
// @version 1.0
// @description Clan membership, moderation and verification API
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@clanhub.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8375
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	log := middleware.Logger
	fail := func(msg string, err error) {
		log.Error(msg, slog.String("error", err.Error()))
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fail("failed to load configuration", err)
	}
	if err := middleware.ConfigureLogger(cfg); err != nil {
		fail("failed to configure logging", err)
	}
	log = middleware.Logger

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "clanhub-api",
		ServiceVersion: "1.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	})
	if err != nil {
		fail("failed to initialize tracing", err)
	}

	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{})
	if err != nil {
		fail("failed to initialize runtime", err)
	}

	srv, err := server.NewServerWithDeps(cfg, db, rdb)
	if err != nil {
		fail("failed to create server", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Staff dashboards consume the channel directly; the server only traces it.
	if err := notifications.NewNotifier(rdb).StartStaffSubscriber(ctx, func(e notifications.Event) {
		log.Debug("staff event", slog.String("event_type", string(e.Type)), slog.String("event_id", e.ID))
	}); err != nil {
		log.Warn("staff event subscriber disabled", slog.String("error", err.Error()))
	}

	go func() {
		<-ctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", slog.String("error", err.Error()))
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Error("tracing shutdown error", slog.String("error", err.Error()))
		}
	}()

	if err := srv.Start(); err != nil {
		fail("server stopped", err)
	}
}
