package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tradewind-dms/tradewind-dms/internal/importjob"
	_ "github.com/tradewind-dms/tradewind-dms/internal/testing/guard"
	"github.com/tradewind-dms/tradewind-dms/jobs"
)

func buildWorkbook(t *testing.T, rows [][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, cell := range row {
			ref, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, ref, cell))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return buf.Bytes()
}

func multipartUpload(t *testing.T, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "upload.xlsx")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

type fakeJobCreator struct {
	created []importjob.Job
	failed  map[string]string
}

func (f *fakeJobCreator) Create(_ context.Context, typ importjob.Type, totalRecords int) (importjob.Job, error) {
	job := importjob.Job{ID: "job-1", Type: typ, Status: importjob.StatusProcessing, TotalRecords: totalRecords}
	f.created = append(f.created, job)
	return job, nil
}

func (f *fakeJobCreator) Fail(_ context.Context, id, message string) error {
	if f.failed == nil {
		f.failed = make(map[string]string)
	}
	f.failed[id] = message
	return nil
}

type fakeEnqueuer struct {
	payloads []jobs.LedgerImportPayload
	err      error
}

func (f *fakeEnqueuer) EnqueueLedgerImport(_ context.Context, payload jobs.LedgerImportPayload) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.payloads = append(f.payloads, payload)
	return &asynq.TaskInfo{ID: "task-1"}, nil
}

func newTestHandler(t *testing.T, tracker *fakeJobCreator, enqueuer *fakeEnqueuer) http.Handler {
	t.Helper()
	h := NewHandler(HandlerConfig{
		Logger:     testLogger(),
		Engine:     NewEngine(nil, nil, nil, testLogger()),
		Tracker:    tracker,
		Enqueuer:   enqueuer,
		StagingDir: t.TempDir(),
	})
	r := chi.NewRouter()
	r.Route("/sales", h.MountSales)
	r.Route("/stock", h.MountStock)
	return r
}

func salesWorkbook(t *testing.T) []byte {
	return buildWorkbook(t, [][]string{
		{"Date", "DB Code", "Product SKU", "Product Name", "QTY PC", "DP Value", "TP Value"},
		{"2024-05-10", "DB-1", "SKU-1", "Widget", "5", "100", "110"},
		{"2024-05-10", "DB-1", "SKU-2", "Gadget", "2", "40", "44"},
	})
}

func TestImportSalesStartsJob(t *testing.T) {
	tracker := &fakeJobCreator{}
	enqueuer := &fakeEnqueuer{}
	router := newTestHandler(t, tracker, enqueuer)

	body, contentType := multipartUpload(t, salesWorkbook(t))
	req := httptest.NewRequest(http.MethodPost, "/sales/import", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-Id", "user-7")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Import started", resp["message"])
	assert.Equal(t, "job-1", resp["jobId"])

	require.Len(t, tracker.created, 1)
	assert.Equal(t, importjob.TypeSales, tracker.created[0].Type)
	assert.Equal(t, 2, tracker.created[0].TotalRecords)

	require.Len(t, enqueuer.payloads, 1)
	payload := enqueuer.payloads[0]
	assert.Equal(t, "job-1", payload.JobID)
	assert.Equal(t, "SALES", payload.Type)
	assert.Equal(t, "user-7", payload.Actor)
	_, err := os.Stat(payload.Path)
	assert.NoError(t, err, "staged file must exist until the worker consumes it")
}

func TestImportSalesRejectsStockTemplate(t *testing.T) {
	tracker := &fakeJobCreator{}
	enqueuer := &fakeEnqueuer{}
	router := newTestHandler(t, tracker, enqueuer)

	stockFile := buildWorkbook(t, [][]string{
		{"Stock Date", "Site Name", "Product SKU", "Product Name", "Batch Name", "Qty"},
		{"2024-05-10", "Depot A", "SKU-1", "Widget", "B-1", "4"},
	})
	body, contentType := multipartUpload(t, stockFile)
	req := httptest.NewRequest(http.MethodPost, "/sales/import", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Stock Ledger")
	assert.Empty(t, tracker.created, "no job may exist for a rejected upload")
	assert.Empty(t, enqueuer.payloads)
}

func TestImportRejectsMissingFile(t *testing.T) {
	router := newTestHandler(t, &fakeJobCreator{}, &fakeEnqueuer{})

	req := httptest.NewRequest(http.MethodPost, "/stock/import", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No file uploaded")
}

func TestImportRejectsEmptyWorkbook(t *testing.T) {
	router := newTestHandler(t, &fakeJobCreator{}, &fakeEnqueuer{})

	headerOnly := buildWorkbook(t, [][]string{
		{"Date", "Product SKU", "Product Name", "QTY PC", "DP Value"},
	})
	body, contentType := multipartUpload(t, headerOnly)
	req := httptest.NewRequest(http.MethodPost, "/sales/import", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no data found")
}

func TestImportFailsOrphanedJobWhenEnqueueFails(t *testing.T) {
	tracker := &fakeJobCreator{}
	enqueuer := &fakeEnqueuer{err: errors.New("redis down")}
	router := newTestHandler(t, tracker, enqueuer)

	body, contentType := multipartUpload(t, salesWorkbook(t))
	req := httptest.NewRequest(http.MethodPost, "/sales/import", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to initiate import")
	require.Len(t, tracker.created, 1)
	assert.Contains(t, tracker.failed, "job-1")
}
