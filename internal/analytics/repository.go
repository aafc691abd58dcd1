package analytics

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// salesColumns maps API dimension names to sales_records columns. Only names
// present here ever reach SQL text.
var salesColumns = map[string]string{
	"division":     "division",
	"depot":        "depot",
	"prodLine":     "prod_line",
	"category":     "category",
	"brand":        "brand",
	"seller":       "seller",
	"employeeName": "employee_name",
	"dbName":       "db_name",
	"productName":  "product_name",
}

// stockColumns maps API dimension names to stock_records columns.
var stockColumns = map[string]string{
	"division":    "division",
	"siteName":    "site_name",
	"group":       "prod_group",
	"category":    "category",
	"brand":       "brand",
	"source":      "source",
	"partyName":   "party_name",
	"productName": "product_name",
}

// Repository runs the aggregate queries behind the reporting endpoints.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository wrapper.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) distinct(ctx context.Context, table, column string) ([]string, error) {
	query := fmt.Sprintf(
		`SELECT DISTINCT %s FROM %s WHERE %s <> '' ORDER BY %s`,
		column, table, column, column)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("analytics: distinct %s.%s: %w", table, column, err)
	}
	defer rows.Close()
	values := make([]string, 0, 32)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// SalesOptions fans out one DISTINCT query per dropdown and assembles the
// result. The queries are independent, so they run concurrently.
func (r *Repository) SalesOptions(ctx context.Context) (SalesOptions, error) {
	var opts SalesOptions
	g, ctx := errgroup.WithContext(ctx)
	collect := func(column string, dest *[]string) {
		g.Go(func() error {
			values, err := r.distinct(ctx, "sales_records", column)
			if err != nil {
				return err
			}
			*dest = values
			return nil
		})
	}
	collect("division", &opts.Divisions)
	collect("depot", &opts.Depots)
	collect("prod_line", &opts.ProdLines)
	collect("category", &opts.Categories)
	collect("brand", &opts.Brands)
	collect("seller", &opts.Sellers)
	collect("employee_name", &opts.Employees)
	collect("db_name", &opts.DBNames)
	if err := g.Wait(); err != nil {
		return SalesOptions{}, err
	}
	return opts, nil
}

// StockOptions fans out the stock ledger dropdown queries.
func (r *Repository) StockOptions(ctx context.Context) (StockOptions, error) {
	var opts StockOptions
	g, ctx := errgroup.WithContext(ctx)
	collect := func(column string, dest *[]string) {
		g.Go(func() error {
			values, err := r.distinct(ctx, "stock_records", column)
			if err != nil {
				return err
			}
			*dest = values
			return nil
		})
	}
	collect("division", &opts.Divisions)
	collect("site_name", &opts.SiteNames)
	collect("prod_group", &opts.Groups)
	collect("category", &opts.Categories)
	collect("brand", &opts.Brands)
	collect("source", &opts.Sources)
	collect("party_name", &opts.PartyNames)
	if err := g.Wait(); err != nil {
		return StockOptions{}, err
	}
	return opts, nil
}

// summaryPlan is the sanitised shape of a summary query: resolved column
// names plus positional arguments.
type summaryPlan struct {
	groupCols []string
	dims      []string
	where     []string
	args      []interface{}
}

func buildPlan(dims []string, filters map[string][]string, columns map[string]string, dateCol string, q interface{ dates() (interface{}, interface{}) }) (summaryPlan, error) {
	plan := summaryPlan{}
	for _, dim := range dims {
		col, ok := columns[dim]
		if !ok {
			return summaryPlan{}, fmt.Errorf("analytics: unknown dimension %q", dim)
		}
		plan.dims = append(plan.dims, dim)
		plan.groupCols = append(plan.groupCols, col)
	}
	for field, values := range filters {
		if len(values) == 0 {
			continue
		}
		col, ok := columns[field]
		if !ok {
			return summaryPlan{}, fmt.Errorf("analytics: unknown filter %q", field)
		}
		plan.args = append(plan.args, values)
		plan.where = append(plan.where, fmt.Sprintf("%s = ANY($%d)", col, len(plan.args)))
	}
	start, end := q.dates()
	if start != nil {
		plan.args = append(plan.args, start)
		plan.where = append(plan.where, fmt.Sprintf("%s >= $%d", dateCol, len(plan.args)))
	}
	if end != nil {
		plan.args = append(plan.args, end)
		plan.where = append(plan.where, fmt.Sprintf("%s <= $%d", dateCol, len(plan.args)))
	}
	return plan, nil
}

func (q SalesSummaryQuery) dates() (interface{}, interface{}) {
	var start, end interface{}
	if q.StartDate != nil {
		start = *q.StartDate
	}
	if q.EndDate != nil {
		end = *q.EndDate
	}
	return start, end
}

func (q StockSummaryQuery) dates() (interface{}, interface{}) {
	var start, end interface{}
	if q.StartDate != nil {
		start = *q.StartDate
	}
	if q.EndDate != nil {
		end = *q.EndDate
	}
	return start, end
}

// SalesSummary groups the sales register by the requested dimensions.
func (r *Repository) SalesSummary(ctx context.Context, q SalesSummaryQuery) ([]SalesSummaryRow, error) {
	plan, err := buildPlan(q.Dimensions, q.Filters, salesColumns, "date", q)
	if err != nil {
		return nil, err
	}
	groupList := strings.Join(plan.groupCols, ", ")
	sql := fmt.Sprintf(
		`SELECT %s, COALESCE(SUM(qty_pc),0), COALESCE(SUM(qty_ltr_kg),0),
COALESCE(SUM(dp_value),0), COALESCE(SUM(tp_value),0), COUNT(*)
FROM sales_records`, groupList)
	if len(plan.where) > 0 {
		sql += " WHERE " + strings.Join(plan.where, " AND ")
	}
	sql += fmt.Sprintf(" GROUP BY %s ORDER BY %s", groupList, groupList)

	rows, err := r.pool.Query(ctx, sql, plan.args...)
	if err != nil {
		return nil, fmt.Errorf("analytics: sales summary: %w", err)
	}
	defer rows.Close()

	out := make([]SalesSummaryRow, 0, 64)
	keys := make([]string, len(plan.dims))
	for rows.Next() {
		dests := make([]interface{}, 0, len(keys)+5)
		for i := range keys {
			dests = append(dests, &keys[i])
		}
		var row SalesSummaryRow
		dests = append(dests, &row.QtyPc, &row.QtyLtrKg, &row.DPValue, &row.TPValue, &row.Records)
		if err := rows.Scan(dests...); err != nil {
			return nil, err
		}
		row.Keys = make(map[string]string, len(plan.dims))
		for i, dim := range plan.dims {
			row.Keys[dim] = keys[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// StockSummary groups the stock ledger by the requested dimensions.
func (r *Repository) StockSummary(ctx context.Context, q StockSummaryQuery) ([]StockSummaryRow, error) {
	plan, err := buildPlan(q.Dimensions, q.Filters, stockColumns, "stock_date", q)
	if err != nil {
		return nil, err
	}
	groupList := strings.Join(plan.groupCols, ", ")
	sql := fmt.Sprintf(
		`SELECT %s, COALESCE(SUM(qty),0), COALESCE(SUM(ltr_kg),0),
COALESCE(SUM(retailer_amount),0), COALESCE(SUM(dealer_amount),0), COUNT(*)
FROM stock_records`, groupList)
	if len(plan.where) > 0 {
		sql += " WHERE " + strings.Join(plan.where, " AND ")
	}
	sql += fmt.Sprintf(" GROUP BY %s ORDER BY %s", groupList, groupList)

	rows, err := r.pool.Query(ctx, sql, plan.args...)
	if err != nil {
		return nil, fmt.Errorf("analytics: stock summary: %w", err)
	}
	defer rows.Close()

	out := make([]StockSummaryRow, 0, 64)
	keys := make([]string, len(plan.dims))
	for rows.Next() {
		dests := make([]interface{}, 0, len(keys)+5)
		for i := range keys {
			dests = append(dests, &keys[i])
		}
		var row StockSummaryRow
		dests = append(dests, &row.Qty, &row.LtrKg, &row.RetailerAmount, &row.DealerAmount, &row.Records)
		if err := rows.Scan(dests...); err != nil {
			return nil, err
		}
		row.Keys = make(map[string]string, len(plan.dims))
		for i, dim := range plan.dims {
			row.Keys[dim] = keys[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
