package importjob

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tradewind-dms/tradewind-dms/internal/platform/httpx"
)

// Handler exposes the polling endpoint for job status.
type Handler struct {
	logger  *slog.Logger
	tracker *Tracker
}

// NewHandler constructs the jobs HTTP handler.
func NewHandler(logger *slog.Logger, tracker *Tracker) *Handler {
	return &Handler{logger: logger, tracker: tracker}
}

// MountRoutes attaches job status routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/status/{id}", h.status)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := h.tracker.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			httpx.Error(w, http.StatusNotFound, "Job not found")
			return
		}
		h.logger.Error("job status lookup", slog.String("job_id", id), slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "Failed to fetch job status")
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}
