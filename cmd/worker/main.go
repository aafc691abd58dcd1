// Command worker consumes the ingestion queue: it processes staged ledger
// uploads and sweeps abandoned staging files on a schedule.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
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
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("worker exited", slog.Any("error", err))
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

	metrics := observability.NewMetrics()
	tracker := importjob.NewTracker(importjob.NewRepository(pool))
	engine := ingest.NewEngine(ingest.NewRepository(pool), tracker, analytics.NewCache(redisClient), logger)
	importJob := ingest.NewJob(engine, tracker, logger, metrics)

	stagingDir := cfg.ImportStagingDir
	if stagingDir == "" {
		stagingDir = filepath.Join(os.TempDir(), "tradewind-imports")
	}
	sweepTask, err := jobs.NewStagingSweepTask(stagingDir, cfg.StagingMaxAge)
	if err != nil {
		return err
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLedgerImport, Handler: importJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "@hourly", Task: sweepTask, Options: []asynq.Option{asynq.Queue(jobs.QueueDefault)}},
		},
	})
	if err != nil {
		return err
	}

	if app.InTestMode() {
		logger.Info("test mode enabled, skipping worker loop")
		return nil
	}

	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux(metrics)}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics listener", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker starting", slog.String("queue", jobs.QueueDefault))
	return worker.Run(ctx)
}

func metricsMux(metrics *observability.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return mux
}
