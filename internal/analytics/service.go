package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tradewind-dms/tradewind-dms/internal/platform/httpx"
)

// Store is the data access surface the service requires.
type Store interface {
	SalesOptions(ctx context.Context) (SalesOptions, error)
	StockOptions(ctx context.Context) (StockOptions, error)
	SalesSummary(ctx context.Context, q SalesSummaryQuery) ([]SalesSummaryRow, error)
	StockSummary(ctx context.Context, q StockSummaryQuery) ([]StockSummaryRow, error)
}

// Service validates reporting queries and layers the versioned cache over
// the option lists. Summaries hit the database directly; only the dropdown
// options are expensive enough and stable enough to cache.
type Service struct {
	store      Store
	cache      *Cache
	validate   *validator.Validate
	optionsTTL time.Duration
}

// NewService constructs the analytics service.
func NewService(store Store, cache *Cache, optionsTTL time.Duration) *Service {
	if optionsTTL <= 0 {
		optionsTTL = time.Hour
	}
	return &Service{
		store:      store,
		cache:      cache,
		validate:   validator.New(),
		optionsTTL: optionsTTL,
	}
}

// SalesOptions returns the cached sales dropdown lists.
func (s *Service) SalesOptions(ctx context.Context) (SalesOptions, error) {
	key, err := s.cache.BuildKey(ctx, "analytics", "options", "sales")
	if err != nil {
		return SalesOptions{}, err
	}
	var opts SalesOptions
	err = s.cache.GetOrCompute(ctx, key, s.optionsTTL, &opts, func(ctx context.Context) (interface{}, error) {
		return s.store.SalesOptions(ctx)
	})
	return opts, err
}

// StockOptions returns the cached stock dropdown lists.
func (s *Service) StockOptions(ctx context.Context) (StockOptions, error) {
	key, err := s.cache.BuildKey(ctx, "analytics", "options", "stock")
	if err != nil {
		return StockOptions{}, err
	}
	var opts StockOptions
	err = s.cache.GetOrCompute(ctx, key, s.optionsTTL, &opts, func(ctx context.Context) (interface{}, error) {
		return s.store.StockOptions(ctx)
	})
	return opts, err
}

// SalesSummary validates and runs a grouped sales aggregate.
func (s *Service) SalesSummary(ctx context.Context, q SalesSummaryQuery) ([]SalesSummaryRow, error) {
	if err := s.validate.Struct(q); err != nil {
		return nil, fmt.Errorf("%w: %s", httpx.ErrValidation, "invalid summary query")
	}
	return s.store.SalesSummary(ctx, q)
}

// StockSummary validates and runs a grouped stock aggregate.
func (s *Service) StockSummary(ctx context.Context, q StockSummaryQuery) ([]StockSummaryRow, error) {
	if err := s.validate.Struct(q); err != nil {
		return nil, fmt.Errorf("%w: %s", httpx.ErrValidation, "invalid summary query")
	}
	return s.store.StockSummary(ctx, q)
}
