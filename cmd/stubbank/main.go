package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/multierr"

	"github.com/grachmannico95/bankline/internal/config"
	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/internal/eventbus"
	"github.com/grachmannico95/bankline/internal/maintenance"
	"github.com/grachmannico95/bankline/internal/realtime"
	"github.com/grachmannico95/bankline/internal/server"
	"github.com/grachmannico95/bankline/internal/storage"
	"github.com/grachmannico95/bankline/pkg/logger"
)

func main() {
	cfg := config.Load()

	log := logger.New(cfg.Logging.Level)
	defer log.Sync()

	ctx := context.Background()
	log.Info(ctx, "Starting stub bank backend")

	repo := storage.NewMemoryStore()
	if err := repo.Seed(ctx); err != nil {
		log.Fatal(ctx, "Failed to seed demo data",
			"error", err,
		)
	}
	log.Info(ctx, "Repository initialized",
		"demo_customer", storage.DemoCustomerEmail,
		"demo_admin", storage.DemoAdminEmail,
	)

	bus := eventbus.New(log, &eventbus.Config{
		ChannelBuffer: cfg.EventBus.ChannelBufferSize,
	})

	hub := realtime.NewHub(log)
	if err := bus.Subscribe(eventbus.EventTypeVersionBumped, eventbus.NewBroadcastConsumer(hub, cfg.Worker.PoolSize)); err != nil {
		log.Fatal(ctx, "Failed to subscribe consumer",
			"error", err,
		)
	}
	if err := bus.Start(ctx); err != nil {
		log.Fatal(ctx, "Failed to start event bus",
			"error", err,
		)
	}

	repo.SetNotifier(func(sig domain.ChangeSignal) {
		_ = bus.Publish(ctx, eventbus.NewEvent(eventbus.EventTypeVersionBumped, eventbus.VersionBumpedEvent{Signal: sig}))
	})
	log.Info(ctx, "Change broadcasting initialized",
		"worker_count", cfg.Worker.PoolSize,
	)

	cleaner := maintenance.NewCleaner(repo, log,
		maintenance.WithSchedule(cfg.Maintenance.Schedule),
		maintenance.WithWindow(cfg.Maintenance.IdempotencyWindow),
	)
	if err := cleaner.Start(); err != nil {
		log.Fatal(ctx, "Failed to start maintenance scheduler",
			"error", err,
		)
	}

	srv := server.New(cfg, log, repo, server.NewHandlers(repo, repo, hub, log))

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(ctx, "Failed to start HTTP server",
				"error", err,
			)
		}
	}()

	log.Info(ctx, "Stub bank backend started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info(ctx, "Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()

	// streams first, otherwise Shutdown waits on open SSE responses
	hub.Close()

	var errs error
	errs = multierr.Append(errs, srv.Shutdown(shutdownCtx))
	<-cleaner.Stop().Done()
	errs = multierr.Append(errs, bus.Shutdown(shutdownCtx))

	if errs != nil {
		log.Error(shutdownCtx, "Shutdown completed with errors",
			"error", errs,
		)
		return
	}
	log.Info(ctx, "Stub bank backend stopped gracefully")
}
