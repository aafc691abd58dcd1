package jobs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerImport processes one staged ledger upload.
	TaskLedgerImport = "import:ledger"
	// TaskStagingSweep removes stale staged upload files.
	TaskStagingSweep = "import:sweep"
)

// LedgerImportPayload identifies a staged upload awaiting ingestion.
type LedgerImportPayload struct {
	JobID string `json:"job_id"`
	Type  string `json:"type"`
	Path  string `json:"path"`
	Actor string `json:"actor"`
}

// NewLedgerImportTask constructs an Asynq task.
func NewLedgerImportTask(payload LedgerImportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerImport, data), nil
}

// StagingSweepPayload configures the staged-file cleanup task.
type StagingSweepPayload struct {
	Dir    string        `json:"dir"`
	MaxAge time.Duration `json:"max_age"`
}

// NewStagingSweepTask constructs the cleanup task.
func NewStagingSweepTask(dir string, maxAge time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(StagingSweepPayload{Dir: dir, MaxAge: maxAge})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStagingSweep, data), nil
}

// HandleStagingSweepTask deletes staged upload files older than the
// configured age. Files still referenced by a PROCESSING job older than that
// are considered abandoned.
func HandleStagingSweepTask(ctx context.Context, t *asynq.Task) error {
	var payload StagingSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Dir == "" {
		return asynq.SkipRetry
	}
	maxAge := payload.MaxAge
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	cutoff := time.Now().Add(-maxAge)
	entries, err := os.ReadDir(payload.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(payload.Dir, entry.Name()))
		}
	}
	return nil
}
