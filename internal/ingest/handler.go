package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/tradewind-dms/tradewind-dms/internal/importjob"
	"github.com/tradewind-dms/tradewind-dms/internal/platform/httpx"
	"github.com/tradewind-dms/tradewind-dms/jobs"
)

// actorHeader carries the authenticated user id set by the auth gateway in
// front of this service.
const actorHeader = "X-User-Id"

// JobCreator is the slice of the tracker the upload handler needs.
type JobCreator interface {
	Create(ctx context.Context, typ importjob.Type, totalRecords int) (importjob.Job, error)
	Fail(ctx context.Context, id, message string) error
}

// Enqueuer submits staged uploads to the worker queue. *jobs.Client
// implements it.
type Enqueuer interface {
	EnqueueLedgerImport(ctx context.Context, payload jobs.LedgerImportPayload) (*asynq.TaskInfo, error)
}

// HandlerConfig wires dependencies for the upload handler.
type HandlerConfig struct {
	Logger         *slog.Logger
	Engine         *Engine
	Tracker        JobCreator
	Enqueuer       Enqueuer
	StagingDir     string
	MaxUploadBytes int64
}

// Handler accepts ledger uploads, validates them synchronously, and hands
// the heavy lifting to the worker queue. The HTTP response carries the job
// id before any row is persisted.
type Handler struct {
	logger         *slog.Logger
	engine         *Engine
	tracker        JobCreator
	enqueuer       Enqueuer
	stagingDir     string
	maxUploadBytes int64
}

// NewHandler constructs the upload handler.
func NewHandler(cfg HandlerConfig) *Handler {
	dir := cfg.StagingDir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "tradewind-imports")
	}
	maxBytes := cfg.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = 25 << 20
	}
	return &Handler{
		logger:         cfg.Logger,
		engine:         cfg.Engine,
		tracker:        cfg.Tracker,
		enqueuer:       cfg.Enqueuer,
		stagingDir:     dir,
		maxUploadBytes: maxBytes,
	}
}

// MountSales attaches the sales register import route.
func (h *Handler) MountSales(r chi.Router) {
	r.Post("/import", func(w http.ResponseWriter, req *http.Request) {
		h.importLedger(w, req, TypeSales)
	})
}

// MountStock attaches the stock ledger import route.
func (h *Handler) MountStock(r chi.Router) {
	r.Post("/import", func(w http.ResponseWriter, req *http.Request) {
		h.importLedger(w, req, TypeStock)
	})
}

func (h *Handler) importLedger(w http.ResponseWriter, r *http.Request, typ RecordType) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	prep, err := h.engine.Prepare(data, typ)
	if err != nil {
		switch {
		case errors.Is(err, ErrWrongTemplate), errors.Is(err, ErrEmptyFile):
			httpx.Error(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("prepare upload", slog.String("type", string(typ)), slog.Any("error", err))
			httpx.Error(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	job, err := h.tracker.Create(r.Context(), importjob.Type(typ), len(prep.Rows))
	if err != nil {
		h.logger.Error("create import job", slog.String("type", string(typ)), slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "Failed to initiate import")
		return
	}

	path, err := h.stageFile(data)
	if err == nil {
		_, err = h.enqueuer.EnqueueLedgerImport(r.Context(), jobs.LedgerImportPayload{
			JobID: job.ID,
			Type:  string(typ),
			Path:  path,
			Actor: r.Header.Get(actorHeader),
		})
	}
	if err != nil {
		// The job exists but will never run; fail it so polling clients
		// are not left waiting on PROCESSING.
		if failErr := h.tracker.Fail(r.Context(), job.ID, err.Error()); failErr != nil {
			h.logger.Error("fail orphaned job", slog.String("job_id", job.ID), slog.Any("error", failErr))
		}
		h.logger.Error("enqueue import", slog.String("job_id", job.ID), slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "Failed to initiate import")
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]string{
		"message": "Import started",
		"jobId":   job.ID,
	})
}

func (h *Handler) stageFile(data []byte) (string, error) {
	if err := os.MkdirAll(h.stagingDir, 0o755); err != nil {
		return "", fmt.Errorf("ingest: create staging dir: %w", err)
	}
	path := filepath.Join(h.stagingDir, uuid.NewString()+".xlsx")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("ingest: stage upload: %w", err)
	}
	return path, nil
}
