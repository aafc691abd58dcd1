package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/tradewind-dms/tradewind-dms/jobs"
)

// RunRecorder captures per-run import metrics. Optional.
type RunRecorder interface {
	RecordRun(typ string, rows int, duration time.Duration, err error)
}

// Job adapts the ingestion engine to the asynq worker. Failed runs are not
// retried: the engine has already marked the import job FAILED and clients
// learn about it by polling.
type Job struct {
	engine   *Engine
	tracker  JobTracker
	logger   *slog.Logger
	recorder RunRecorder
}

// NewJob constructs the asynq handler for ledger imports.
func NewJob(engine *Engine, tracker JobTracker, logger *slog.Logger, recorder RunRecorder) *Job {
	return &Job{engine: engine, tracker: tracker, logger: logger, recorder: recorder}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *Job) Handle(ctx context.Context, task *asynq.Task) error {
	var payload jobs.LedgerImportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.JobID == "" || payload.Path == "" {
		return asynq.SkipRetry
	}
	start := time.Now()

	data, err := os.ReadFile(payload.Path)
	if err != nil {
		j.failAndSkip(ctx, payload.JobID, err)
		j.record(payload.Type, 0, start, err)
		return asynq.SkipRetry
	}
	defer func() { _ = os.Remove(payload.Path) }()

	// Re-validate the staged file; the upload handler already accepted it,
	// so a failure here means the staging copy is unusable.
	prep, err := j.engine.Prepare(data, RecordType(payload.Type))
	if err != nil {
		j.failAndSkip(ctx, payload.JobID, err)
		j.record(payload.Type, 0, start, err)
		return asynq.SkipRetry
	}

	err = j.engine.Process(ctx, payload.JobID, prep, payload.Actor)
	j.record(payload.Type, len(prep.Rows), start, err)
	if err != nil {
		// The engine already marked the job FAILED.
		return asynq.SkipRetry
	}
	return nil
}

func (j *Job) record(typ string, rows int, start time.Time, err error) {
	if j.recorder != nil {
		j.recorder.RecordRun(typ, rows, time.Since(start), err)
	}
}

func (j *Job) failAndSkip(ctx context.Context, jobID string, cause error) {
	if err := j.tracker.Fail(ctx, jobID, cause.Error()); err != nil && j.logger != nil {
		j.logger.Error("mark job failed", slog.String("job_id", jobID), slog.Any("error", err))
	}
}
