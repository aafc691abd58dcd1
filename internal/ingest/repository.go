package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists normalized transaction records. Inserts are
// append-only: rows whose hash collides with an already persisted record are
// skipped, never overwritten.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository wrapper.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const insertSalesSQL = `INSERT INTO sales_records
(date, division, depot, seller, db_code, db_name, prod_line, category, brand,
 product_code, product_name, emp_id, employee_name, qty_pc, qty_ltr_kg,
 dp_value, tp_value, hash, imported_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
ON CONFLICT (hash) DO NOTHING`

const insertStockSQL = `INSERT INTO stock_records
(division, site_name, dist_code, source, party_name, prod_group, category,
 brand, product_code, product_name, batch_name, qty, retailer_price,
 dealer_price, ltr_kg, retailer_amount, dealer_amount, stock_date, hash,
 imported_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
ON CONFLICT (hash) DO NOTHING`

// InsertSales bulk-inserts a chunk of sales records, returning how many rows
// were actually persisted (duplicates are counted out).
func (r *Repository) InsertSales(ctx context.Context, records []SalesRecord) (int64, error) {
	if r == nil || r.pool == nil {
		return 0, fmt.Errorf("ingest: repository not initialised")
	}
	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(insertSalesSQL,
			rec.Date, rec.Division, rec.Depot, rec.Seller, rec.DBCode, rec.DBName,
			rec.ProdLine, rec.Category, rec.Brand, rec.ProductCode, rec.ProductName,
			rec.EmpID, rec.EmployeeName, rec.QtyPc, rec.QtyLtrKg, rec.DPValue,
			rec.TPValue, rec.Hash, rec.ImportedBy)
	}
	return r.sendBatch(ctx, batch, len(records))
}

// InsertStock bulk-inserts a chunk of stock records with duplicate-hash skip.
func (r *Repository) InsertStock(ctx context.Context, records []StockRecord) (int64, error) {
	if r == nil || r.pool == nil {
		return 0, fmt.Errorf("ingest: repository not initialised")
	}
	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(insertStockSQL,
			rec.Division, rec.SiteName, rec.DistCode, rec.Source, rec.PartyName,
			rec.Group, rec.Category, rec.Brand, rec.ProductCode, rec.ProductName,
			rec.BatchName, rec.Qty, rec.RetailerPrice, rec.DealerPrice, rec.LtrKg,
			rec.RetailerAmount, rec.DealerAmount, rec.StockDate, rec.Hash,
			rec.ImportedBy)
	}
	return r.sendBatch(ctx, batch, len(records))
}

func (r *Repository) sendBatch(ctx context.Context, batch *pgx.Batch, size int) (int64, error) {
	results := r.pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()
	var inserted int64
	for i := 0; i < size; i++ {
		tag, err := results.Exec()
		if err != nil {
			// Concurrent runs can race past ON CONFLICT; a unique
			// violation on the hash index still means duplicate.
			if isUniqueViolation(err) {
				continue
			}
			return inserted, err
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
