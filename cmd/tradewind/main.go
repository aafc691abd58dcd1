// Command tradewind runs the distribution-management reporting API: ledger
// uploads, job status polling, and the analytics endpoints.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/tradewind-dms/tradewind-dms/internal/analytics"
	"github.com/tradewind-dms/tradewind-dms/internal/app"
	"github.com/tradewind-dms/tradewind-dms/internal/importjob"
	"github.com/tradewind-dms/tradewind-dms/internal/ingest"
	"github.com/tradewind-dms/tradewind-dms/internal/observability"
	"github.com/tradewind-dms/tradewind-dms/internal/platform/cache"
	"github.com/tradewind-dms/tradewind-dms/internal/platform/db"
	"github.com/tradewind-dms/tradewind-dms/jobs"
)

func main() {
	if err := run(); err != nil {
		slog.Error("api exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() { _ = redisClient.Close() }()

	queueClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		return err
	}
	defer func() { _ = queueClient.Close() }()

	tracker := importjob.NewTracker(importjob.NewRepository(pool))
	analyticsCache := analytics.NewCache(redisClient)
	analyticsService := analytics.NewService(analytics.NewRepository(pool), analyticsCache, cfg.OptionsCacheTTL)

	engine := ingest.NewEngine(ingest.NewRepository(pool), tracker, analyticsCache, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:  logger,
		Config:  cfg,
		Metrics: observability.NewMetrics(),
		IngestHandler: ingest.NewHandler(ingest.HandlerConfig{
			Logger:         logger,
			Engine:         engine,
			Tracker:        tracker,
			Enqueuer:       queueClient,
			StagingDir:     cfg.ImportStagingDir,
			MaxUploadBytes: cfg.MaxUploadBytes,
		}),
		JobHandler:       importjob.NewHandler(logger, tracker),
		QueueHandler:     jobs.NewHandler(asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr}), logger),
		AnalyticsHandler: analytics.NewHandler(analyticsService, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	if app.InTestMode() {
		logger.Info("test mode enabled, skipping listener")
		return nil
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
