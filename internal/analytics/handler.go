package analytics

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tradewind-dms/tradewind-dms/internal/platform/httpx"
)

const dateLayout = "2006-01-02"

// Handler exposes the reporting endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs the analytics HTTP handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// MountSales attaches the sales dropdown options route.
func (h *Handler) MountSales(r chi.Router) {
	r.Get("/options", h.salesOptions)
}

// MountStock attaches the stock dropdown options route.
func (h *Handler) MountStock(r chi.Router) {
	r.Get("/options", h.stockOptions)
}

// MountRoutes attaches the summary routes under /analytics.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/sales-summary", h.salesSummary)
	r.Get("/stock-summary", h.stockSummary)
}

func (h *Handler) salesOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.service.SalesOptions(r.Context())
	if err != nil {
		h.logger.Error("sales options", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "Failed to load filter options")
		return
	}
	httpx.JSON(w, http.StatusOK, opts)
}

func (h *Handler) stockOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.service.StockOptions(r.Context())
	if err != nil {
		h.logger.Error("stock options", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "Failed to load filter options")
		return
	}
	httpx.JSON(w, http.StatusOK, opts)
}

func (h *Handler) salesSummary(w http.ResponseWriter, r *http.Request) {
	dims, filters, start, end, err := parseSummaryParams(r.URL.Query(), []string{
		"division", "depot", "prodLine", "category", "brand", "seller",
		"employeeName", "dbName", "productName",
	})
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := h.service.SalesSummary(r.Context(), SalesSummaryQuery{
		Dimensions: dims,
		Filters:    filters,
		StartDate:  start,
		EndDate:    end,
	})
	if err != nil {
		h.logger.Error("sales summary", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]interface{}{"rows": rows})
}

func (h *Handler) stockSummary(w http.ResponseWriter, r *http.Request) {
	dims, filters, start, end, err := parseSummaryParams(r.URL.Query(), []string{
		"division", "siteName", "group", "category", "brand", "source",
		"partyName", "productName",
	})
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := h.service.StockSummary(r.Context(), StockSummaryQuery{
		Dimensions: dims,
		Filters:    filters,
		StartDate:  start,
		EndDate:    end,
	})
	if err != nil {
		h.logger.Error("stock summary", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]interface{}{"rows": rows})
}

// parseSummaryParams reads ?dimensions=a,b plus repeated filter params and
// the optional startDate/endDate range.
func parseSummaryParams(values url.Values, filterFields []string) ([]string, map[string][]string, *time.Time, *time.Time, error) {
	raw := strings.TrimSpace(values.Get("dimensions"))
	if raw == "" {
		return nil, nil, nil, nil, &summaryParamError{"dimensions parameter is required"}
	}
	var dims []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			dims = append(dims, part)
		}
	}
	if len(dims) == 0 {
		return nil, nil, nil, nil, &summaryParamError{"dimensions parameter is required"}
	}

	filters := make(map[string][]string)
	for _, field := range filterFields {
		if vals := values[field]; len(vals) > 0 {
			clean := make([]string, 0, len(vals))
			for _, v := range vals {
				if v = strings.TrimSpace(v); v != "" {
					clean = append(clean, v)
				}
			}
			if len(clean) > 0 {
				filters[field] = clean
			}
		}
	}

	parseDate := func(name string) (*time.Time, error) {
		v := strings.TrimSpace(values.Get(name))
		if v == "" {
			return nil, nil
		}
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return nil, &summaryParamError{name + " must be YYYY-MM-DD"}
		}
		return &t, nil
	}
	start, err := parseDate("startDate")
	if err != nil {
		return nil, nil, nil, nil, err
	}
	end, err := parseDate("endDate")
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return dims, filters, start, end, nil
}

type summaryParamError struct{ msg string }

func (e *summaryParamError) Error() string { return e.msg }
