package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tradewind-dms/tradewind-dms/internal/analytics"
	"github.com/tradewind-dms/tradewind-dms/internal/importjob"
	"github.com/tradewind-dms/tradewind-dms/internal/ingest"
	"github.com/tradewind-dms/tradewind-dms/internal/observability"
	"github.com/tradewind-dms/tradewind-dms/jobs"
)

// RouterParams aggregates everything the HTTP router depends on.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Metrics          *observability.Metrics
	IngestHandler    *ingest.Handler
	JobHandler       *importjob.Handler
	QueueHandler     *jobs.Handler
	AnalyticsHandler *analytics.Handler
}

// NewRouter builds the portal API router.
func NewRouter(p RouterParams) chi.Router {
	r := chi.NewRouter()
	if p.Metrics != nil {
		r.Use(p.Metrics.Middleware)
	}
	for _, mw := range MiddlewareStack(MiddlewareConfig{Logger: p.Logger, Config: p.Config}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if p.Metrics != nil {
		r.Handle("/metrics", p.Metrics.Handler())
	}

	r.Route("/sales", func(r chi.Router) {
		p.IngestHandler.MountSales(r)
		p.AnalyticsHandler.MountSales(r)
	})
	r.Route("/stock", func(r chi.Router) {
		p.IngestHandler.MountStock(r)
		p.AnalyticsHandler.MountStock(r)
	})
	r.Route("/jobs", func(r chi.Router) {
		p.JobHandler.MountRoutes(r)
		p.QueueHandler.MountRoutes(r)
	})
	r.Route("/analytics", func(r chi.Router) {
		p.AnalyticsHandler.MountRoutes(r)
	})

	return r
}
