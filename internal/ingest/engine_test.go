package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradewind-dms/tradewind-dms/internal/importjob"
)

type memRecordStore struct {
	mu       sync.Mutex
	hashes   map[string]bool
	sales    []SalesRecord
	inserted int
	failOn   int
	calls    int
}

func newMemRecordStore() *memRecordStore {
	return &memRecordStore{hashes: make(map[string]bool), failOn: -1}
}

func (s *memRecordStore) InsertSales(_ context.Context, records []SalesRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failOn >= 0 && s.calls > s.failOn {
		return 0, errors.New("insert failed")
	}
	var n int64
	for _, rec := range records {
		if s.hashes[rec.Hash] {
			continue
		}
		s.hashes[rec.Hash] = true
		s.sales = append(s.sales, rec)
		s.inserted++
		n++
	}
	return n, nil
}

func (s *memRecordStore) InsertStock(_ context.Context, records []StockRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	var n int64
	for _, rec := range records {
		if s.hashes[rec.Hash] {
			continue
		}
		s.hashes[rec.Hash] = true
		s.inserted++
		n++
	}
	return n, nil
}

type memJobStore struct {
	mu          sync.Mutex
	jobs        map[string]importjob.Job
	progressLog []int
}

func newMemJobStore() *memJobStore {
	return &memJobStore{jobs: make(map[string]importjob.Job)}
}

func (s *memJobStore) Insert(_ context.Context, job importjob.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

func (s *memJobStore) Get(_ context.Context, id string) (importjob.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return importjob.Job{}, importjob.ErrJobNotFound
	}
	return job, nil
}

func (s *memJobStore) Advance(_ context.Context, id string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Terminal() {
		return nil
	}
	job.Processed += delta
	job.Progress = importjob.ComputeProgress(job.Processed, job.TotalRecords)
	s.jobs[id] = job
	s.progressLog = append(s.progressLog, job.Progress)
	return nil
}

func (s *memJobStore) Complete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Terminal() {
		return nil
	}
	job.Status = importjob.StatusCompleted
	job.Progress = 100
	s.jobs[id] = job
	return nil
}

func (s *memJobStore) Fail(_ context.Context, id, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Terminal() {
		return nil
	}
	job.Status = importjob.StatusFailed
	job.ErrorMessage = message
	s.jobs[id] = job
	return nil
}

type countingInvalidator struct{ bumps int }

func (c *countingInvalidator) Bump(context.Context) error {
	c.bumps++
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var salesHeader = []string{"Date", "DB Code", "Product SKU", "Product Name", "Emp. ID", "QTY PC", "DP Value", "TP Value"}

func salesRows(n int) [][]string {
	rows := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, []string{
			"2024-05-10", "DB-1", fmt.Sprintf("SKU-%d", i), fmt.Sprintf("Widget %d", i),
			"E-1", "5", "100.50", "110",
		})
	}
	return rows
}

func TestEngineProcessesChunksAndCompletes(t *testing.T) {
	recStore := newMemRecordStore()
	jobStore := newMemJobStore()
	tracker := importjob.NewTracker(jobStore)
	inval := &countingInvalidator{}
	engine := NewEngine(recStore, tracker, inval, testLogger())

	job, err := tracker.Create(context.Background(), importjob.TypeSales, 1200)
	require.NoError(t, err)

	prep := &Prepared{Type: TypeSales, Header: salesHeader, Rows: salesRows(1200)}
	require.NoError(t, engine.Process(context.Background(), job.ID, prep, "user-1"))

	final, err := jobStore.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, importjob.StatusCompleted, final.Status)
	assert.Equal(t, 1200, final.Processed)
	assert.Equal(t, 100, final.Progress)
	assert.Equal(t, 1200, recStore.inserted)
	assert.Equal(t, 1, inval.bumps)

	// Chunked advancement: 500, 1000, then 1200 rows read.
	assert.Equal(t, []int{42, 83, 100}, jobStore.progressLog)
	for i := 1; i < len(jobStore.progressLog); i++ {
		assert.GreaterOrEqual(t, jobStore.progressLog[i], jobStore.progressLog[i-1])
	}
}

func TestEngineCountsFilteredRowsAsProcessed(t *testing.T) {
	recStore := newMemRecordStore()
	jobStore := newMemJobStore()
	tracker := importjob.NewTracker(jobStore)
	engine := NewEngine(recStore, tracker, nil, testLogger())

	rows := salesRows(3)
	rows[1][3] = "" // no product name
	job, err := tracker.Create(context.Background(), importjob.TypeSales, len(rows))
	require.NoError(t, err)

	prep := &Prepared{Type: TypeSales, Header: salesHeader, Rows: rows}
	require.NoError(t, engine.Process(context.Background(), job.ID, prep, "user-1"))

	final, _ := jobStore.Get(context.Background(), job.ID)
	assert.Equal(t, importjob.StatusCompleted, final.Status)
	assert.Equal(t, 3, final.Processed)
	assert.Equal(t, 2, recStore.inserted)
}

func TestEngineReimportSkipsDuplicates(t *testing.T) {
	recStore := newMemRecordStore()
	jobStore := newMemJobStore()
	tracker := importjob.NewTracker(jobStore)
	engine := NewEngine(recStore, tracker, nil, testLogger())

	rows := salesRows(10)
	prep := &Prepared{Type: TypeSales, Header: salesHeader, Rows: rows}

	first, err := tracker.Create(context.Background(), importjob.TypeSales, len(rows))
	require.NoError(t, err)
	require.NoError(t, engine.Process(context.Background(), first.ID, prep, "user-1"))
	require.Equal(t, 10, recStore.inserted)

	second, err := tracker.Create(context.Background(), importjob.TypeSales, len(rows))
	require.NoError(t, err)
	require.NoError(t, engine.Process(context.Background(), second.ID, prep, "user-1"))

	// Same content, same hashes: nothing new lands, but the job completes.
	assert.Equal(t, 10, recStore.inserted)
	final, _ := jobStore.Get(context.Background(), second.ID)
	assert.Equal(t, importjob.StatusCompleted, final.Status)
	assert.Equal(t, 10, final.Processed)
}

func TestEngineFailureMarksJobFailed(t *testing.T) {
	recStore := newMemRecordStore()
	recStore.failOn = 1 // fail on the second chunk
	jobStore := newMemJobStore()
	tracker := importjob.NewTracker(jobStore)
	engine := NewEngine(recStore, tracker, nil, testLogger())

	job, err := tracker.Create(context.Background(), importjob.TypeSales, 700)
	require.NoError(t, err)

	prep := &Prepared{Type: TypeSales, Header: salesHeader, Rows: salesRows(700)}
	err = engine.Process(context.Background(), job.ID, prep, "user-1")
	require.Error(t, err)

	final, _ := jobStore.Get(context.Background(), job.ID)
	assert.Equal(t, importjob.StatusFailed, final.Status)
	assert.Equal(t, "insert failed", final.ErrorMessage)
	assert.Equal(t, 500, final.Processed)

	// Terminal state is absorbing.
	require.NoError(t, tracker.Complete(context.Background(), job.ID))
	final, _ = jobStore.Get(context.Background(), job.ID)
	assert.Equal(t, importjob.StatusFailed, final.Status)
}

func TestEngineProcessStockRows(t *testing.T) {
	recStore := newMemRecordStore()
	jobStore := newMemJobStore()
	tracker := importjob.NewTracker(jobStore)
	engine := NewEngine(recStore, tracker, nil, testLogger())

	header := []string{"Stock Date", "Site Name", "Product SKU", "Product Name", "Batch Name", "Qty", "Dealer Amount"}
	rows := [][]string{
		{"2024-05-10", "Depot A", "SKU-1", "Widget", "B-1", "4", "100"},
		{"2024-05-10", "Depot A", "SKU-2", "Gadget", "B-1", "2", "60"},
	}
	job, err := tracker.Create(context.Background(), importjob.TypeStock, len(rows))
	require.NoError(t, err)

	prep := &Prepared{Type: TypeStock, Header: header, Rows: rows}
	require.NoError(t, engine.Process(context.Background(), job.ID, prep, "user-1"))

	final, _ := jobStore.Get(context.Background(), job.ID)
	assert.Equal(t, importjob.StatusCompleted, final.Status)
	assert.Equal(t, 2, recStore.inserted)
}

func TestEngineWithNowPinsRecordTimestamps(t *testing.T) {
	recStore := newMemRecordStore()
	jobStore := newMemJobStore()
	tracker := importjob.NewTracker(jobStore)
	engine := NewEngine(recStore, tracker, nil, testLogger())
	fixed := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	engine.WithNow(func() time.Time { return fixed })

	header := []string{"Product SKU", "Product Name", "QTY PC", "DP Value"}
	rows := [][]string{{"SKU-1", "Widget", "5", "100"}} // no date column at all
	job, err := tracker.Create(context.Background(), importjob.TypeSales, 1)
	require.NoError(t, err)

	prep := &Prepared{Type: TypeSales, Header: header, Rows: rows}
	require.NoError(t, engine.Process(context.Background(), job.ID, prep, "user-1"))
	require.Len(t, recStore.sales, 1)
	assert.Equal(t, fixed, recStore.sales[0].Date)
	assert.Equal(t, "user-1", recStore.sales[0].ImportedBy)
}
