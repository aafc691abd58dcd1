package importjob

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	inserted  []Job
	advances  []int
	completed []string
	failures  map[string]string
	jobs      map[string]Job
}

func newStubStore() *stubStore {
	return &stubStore{failures: make(map[string]string), jobs: make(map[string]Job)}
}

func (s *stubStore) Insert(_ context.Context, job Job) error {
	s.inserted = append(s.inserted, job)
	s.jobs[job.ID] = job
	return nil
}

func (s *stubStore) Get(_ context.Context, id string) (Job, error) {
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return job, nil
}

func (s *stubStore) Advance(_ context.Context, _ string, delta int) error {
	s.advances = append(s.advances, delta)
	return nil
}

func (s *stubStore) Complete(_ context.Context, id string) error {
	s.completed = append(s.completed, id)
	return nil
}

func (s *stubStore) Fail(_ context.Context, id, message string) error {
	s.failures[id] = message
	return nil
}

func TestTrackerCreate(t *testing.T) {
	store := newStubStore()
	tracker := NewTracker(store)

	job, err := tracker.Create(context.Background(), TypeSales, 42)
	require.NoError(t, err)

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, TypeSales, job.Type)
	assert.Equal(t, StatusProcessing, job.Status)
	assert.Equal(t, 42, job.TotalRecords)
	assert.Zero(t, job.Processed)
	assert.Zero(t, job.Progress)
	assert.False(t, job.Terminal())
	require.Len(t, store.inserted, 1)

	// Each job gets its own id.
	second, err := tracker.Create(context.Background(), TypeStock, 1)
	require.NoError(t, err)
	assert.NotEqual(t, job.ID, second.ID)
}

func TestTrackerAdvanceIgnoresNonPositiveDelta(t *testing.T) {
	store := newStubStore()
	tracker := NewTracker(store)

	require.NoError(t, tracker.Advance(context.Background(), "job-1", 0))
	require.NoError(t, tracker.Advance(context.Background(), "job-1", -5))
	assert.Empty(t, store.advances)

	require.NoError(t, tracker.Advance(context.Background(), "job-1", 500))
	assert.Equal(t, []int{500}, store.advances)
}

func TestTrackerFailTruncatesLongMessages(t *testing.T) {
	store := newStubStore()
	tracker := NewTracker(store)

	long := strings.Repeat("x", 600)
	require.NoError(t, tracker.Fail(context.Background(), "job-1", long))
	assert.Len(t, store.failures["job-1"], 500)

	require.NoError(t, tracker.Fail(context.Background(), "job-2", "  short  "))
	assert.Equal(t, "short", store.failures["job-2"])
}

func TestComputeProgress(t *testing.T) {
	cases := []struct {
		processed, total, want int
	}{
		{0, 1200, 0},
		{500, 1200, 42},
		{1000, 1200, 83},
		{1200, 1200, 100},
		{1300, 1200, 100},
		{5, 0, 100},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ComputeProgress(tc.processed, tc.total))
	}
}
