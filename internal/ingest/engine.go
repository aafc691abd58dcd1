package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ChunkSize is the number of rows persisted per batch.
const ChunkSize = 500

// RecordStore abstracts transaction record persistence. *Repository
// implements it.
type RecordStore interface {
	InsertSales(ctx context.Context, records []SalesRecord) (int64, error)
	InsertStock(ctx context.Context, records []StockRecord) (int64, error)
}

// JobTracker is the slice of the import job tracker the engine mutates.
type JobTracker interface {
	Advance(ctx context.Context, id string, delta int) error
	Complete(ctx context.Context, id string) error
	Fail(ctx context.Context, id, message string) error
}

// Invalidator lets the engine drop cached filter options after new records
// land. Optional.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Prepared holds the validated outcome of parsing an uploaded workbook:
// the located header and its data rows, ready for chunked processing.
type Prepared struct {
	Type   RecordType
	Header []string
	Rows   [][]string
}

// Engine drives one ingestion run end to end. A run owns exactly one import
// job for writes; chunks are processed strictly in input order and progress
// only moves forward.
type Engine struct {
	store       RecordStore
	tracker     JobTracker
	invalidator Invalidator
	logger      *slog.Logger
	now         func() time.Time
}

// NewEngine constructs the ingestion engine.
func NewEngine(store RecordStore, tracker JobTracker, invalidator Invalidator, logger *slog.Logger) *Engine {
	return &Engine{store: store, tracker: tracker, invalidator: invalidator, logger: logger, now: time.Now}
}

// WithNow overrides the engine clock for testing.
func (e *Engine) WithNow(fn func() time.Time) {
	if fn != nil {
		e.now = fn
	}
}

// Prepare parses and validates an uploaded workbook. It fails with
// ErrWrongTemplate or ErrEmptyFile before any job is created; these errors
// belong to the synchronous half of the upload request.
func (e *Engine) Prepare(data []byte, typ RecordType) (*Prepared, error) {
	rows, err := ParseWorkbook(data)
	if err != nil {
		return nil, err
	}
	headerIdx, err := Classify(rows, typ)
	if err != nil {
		return nil, err
	}
	header := rows[headerIdx]
	var dataRows [][]string
	for _, row := range rows[headerIdx+1:] {
		if rowEmpty(row) {
			continue
		}
		dataRows = append(dataRows, row)
	}
	if len(dataRows) == 0 {
		return nil, ErrEmptyFile
	}
	return &Prepared{Type: typ, Header: header, Rows: dataRows}, nil
}

// Process runs the asynchronous half of an ingestion: normalize, hash,
// filter, and persist rows in fixed-size chunks, advancing the job after
// each chunk by the number of rows read. The first chunk error marks the job
// FAILED and aborts; already inserted chunks are not rolled back.
func (e *Engine) Process(ctx context.Context, jobID string, prep *Prepared, actor string) error {
	idx := headerIndex(prep.Header)
	total := len(prep.Rows)

	for start := 0; start < total; start += ChunkSize {
		end := start + ChunkSize
		if end > total {
			end = total
		}
		chunk := prep.Rows[start:end]

		if err := e.processChunk(ctx, prep.Type, chunk, idx, actor); err != nil {
			e.fail(ctx, jobID, err)
			return err
		}
		if err := e.tracker.Advance(ctx, jobID, len(chunk)); err != nil {
			e.fail(ctx, jobID, err)
			return err
		}
	}

	if err := e.tracker.Complete(ctx, jobID); err != nil {
		return err
	}
	if e.invalidator != nil {
		if err := e.invalidator.Bump(ctx); err != nil && e.logger != nil {
			e.logger.Warn("options cache bump", slog.String("job_id", jobID), slog.Any("error", err))
		}
	}
	if e.logger != nil {
		e.logger.Info("import completed", slog.String("job_id", jobID), slog.Int("rows", total))
	}
	return nil
}

func (e *Engine) processChunk(ctx context.Context, typ RecordType, chunk [][]string, idx map[string]int, actor string) error {
	now := e.now()
	switch typ {
	case TypeSales:
		records := make([]SalesRecord, 0, len(chunk))
		for _, row := range chunk {
			rec := NormalizeSales(row, idx, actor, now)
			if rec.ProductCode == "" || rec.ProductName == "" {
				continue
			}
			rec.Hash = SalesHash(rec)
			records = append(records, rec)
		}
		if len(records) == 0 {
			return nil
		}
		_, err := e.store.InsertSales(ctx, records)
		return err
	case TypeStock:
		records := make([]StockRecord, 0, len(chunk))
		for _, row := range chunk {
			rec := NormalizeStock(row, idx, actor, now)
			if rec.ProductCode == "" || rec.ProductName == "" {
				continue
			}
			rec.Hash = StockHash(rec)
			records = append(records, rec)
		}
		if len(records) == 0 {
			return nil
		}
		_, err := e.store.InsertStock(ctx, records)
		return err
	default:
		return fmt.Errorf("ingest: unknown record type %q", typ)
	}
}

func (e *Engine) fail(ctx context.Context, jobID string, cause error) {
	if err := e.tracker.Fail(ctx, jobID, cause.Error()); err != nil && e.logger != nil {
		e.logger.Error("mark job failed", slog.String("job_id", jobID), slog.Any("error", err))
	}
	if e.logger != nil {
		e.logger.Error("import failed", slog.String("job_id", jobID), slog.Any("error", cause))
	}
}
