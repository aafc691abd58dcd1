package importjob

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store abstracts job persistence. *Repository implements it.
type Store interface {
	Insert(ctx context.Context, job Job) error
	Get(ctx context.Context, id string) (Job, error)
	Advance(ctx context.Context, id string, delta int) error
	Complete(ctx context.Context, id string) error
	Fail(ctx context.Context, id, message string) error
}

// Tracker owns import job lifecycle transitions. Each job has a single
// writer (its ingestion run); reads may happen concurrently from polling
// clients.
type Tracker struct {
	store Store
	now   func() time.Time
}

// NewTracker builds the tracker.
func NewTracker(store Store) *Tracker {
	return &Tracker{store: store, now: time.Now}
}

// Create registers a new job in PROCESSING state and returns it.
func (t *Tracker) Create(ctx context.Context, typ Type, totalRecords int) (Job, error) {
	now := t.now().UTC()
	job := Job{
		ID:           uuid.NewString(),
		Type:         typ,
		Status:       StatusProcessing,
		TotalRecords: totalRecords,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := t.store.Insert(ctx, job); err != nil {
		return Job{}, err
	}
	return job, nil
}

// Advance adds delta rows read to the job's processed counter. Advancing a
// terminal job is a silent no-op.
func (t *Tracker) Advance(ctx context.Context, id string, delta int) error {
	if delta <= 0 {
		return nil
	}
	return t.store.Advance(ctx, id, delta)
}

// Complete transitions the job to COMPLETED with progress 100.
func (t *Tracker) Complete(ctx context.Context, id string) error {
	return t.store.Complete(ctx, id)
}

// Fail transitions the job to FAILED capturing the error message.
func (t *Tracker) Fail(ctx context.Context, id, message string) error {
	return t.store.Fail(ctx, id, truncateError(message))
}

// Get returns the current snapshot for polling clients.
func (t *Tracker) Get(ctx context.Context, id string) (Job, error) {
	return t.store.Get(ctx, id)
}

func truncateError(msg string) string {
	msg = strings.TrimSpace(msg)
	if len(msg) > 500 {
		return msg[:500]
	}
	return msg
}
