package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cedcast/dispatch/internal/billing"
	"github.com/cedcast/dispatch/internal/config"
	"github.com/cedcast/dispatch/internal/database"
	"github.com/cedcast/dispatch/internal/dispatch"
	"github.com/cedcast/dispatch/internal/logging"
	"github.com/cedcast/dispatch/internal/notification"
	"github.com/cedcast/dispatch/internal/provider"
	"github.com/cedcast/dispatch/internal/secrets"
	"github.com/cedcast/dispatch/internal/senderpool"
	"github.com/cedcast/dispatch/internal/webhook"
	"github.com/cedcast/dispatch/internal/workers"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	dbpool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}
	defer dbpool.Close()
	if err := dbpool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	dbQueries := database.New(dbpool)

	logLevel := slog.LevelInfo
	if cfg.LogLevel == "debug" {
		logLevel = slog.LevelDebug
	}
	baseHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logging.NewContextHandler(baseHandler))
	slog.SetDefault(logger)
	slog.Info("Logging initialized", "level", logLevel.String())

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("Invalid platform timezone %q: %v", cfg.Timezone, err)
	}

	var decrypter secrets.Decrypter = secrets.Plaintext{}
	if cfg.EncryptionKey != "" {
		decrypter, err = secrets.NewSecretBox(cfg.EncryptionKey)
		if err != nil {
			log.Fatalf("Invalid SMS encryption key: %v", err)
		}
	} else {
		slog.Warn("SMS_ENCRYPTION_KEY not set, treating stored credentials as plaintext")
	}

	// --- Initialize Services ---
	registry := provider.DefaultRegistry(cfg.Provider.Timeout)
	resolver := senderpool.NewResolver(dbQueries, decrypter, registry, cfg.Provider.HubtelAPIURL, logger)
	ledger := billing.NewLedger(dbpool, dbQueries, cfg.Billing.GatewayCostPerSMS.Decimal)

	retryPolicy := dispatch.RetryPolicy{
		MaxRetries: cfg.Scheduler.MaxRetries,
		MinDelay:   cfg.Scheduler.RetryMinDelay,
	}
	dispatcher := dispatch.NewDispatcher(dbQueries, resolver, ledger, retryPolicy, cfg.Scheduler.DryRun)

	notifier := notification.NewLogNotifier()

	workerManager := workers.NewManager(dbQueries, dispatcher, notifier, location, workers.Config{
		DispatchInterval:  cfg.Scheduler.Interval,
		DispatchBatchSize: cfg.Scheduler.BatchLimit,
		LowCreditInterval: cfg.Billing.LowCreditInterval,
		LowCreditHeadroom: cfg.Billing.LowCreditHeadroom,
		TickTimeout:       cfg.Scheduler.TickTimeout,
		OrgFilter:         cfg.Scheduler.OrgFilter,
	})

	// --- Start Components ---
	workerManager.StartDispatcher(ctx)
	workerManager.StartLowCreditNotifier(ctx)

	server := webhook.NewServer(cfg.Webhook, dbQueries, dbpool)
	go func() {
		if err := server.ListenAndServe(); err != nil {
			slog.Error("Webhook server error", slog.Any("error", err))
			cancel()
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	slog.Info("Shutdown signal received, shutting down gracefully...")
	cancel()

	// Let an in-flight tick settle before the pool goes away, or recipients
	// marked sent would never be billed.
	workerManager.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Webhook server shutdown error", slog.Any("error", err))
	}

	dbpool.Close()
	slog.Info("Dispatch daemon stopped")
}
