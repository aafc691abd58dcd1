// Package importjob tracks the lifecycle of asynchronous ledger imports.
package importjob

import (
	"errors"
	"math"
	"time"
)

// Type identifies which ledger a job ingests.
type Type string

// Known job types.
const (
	TypeSales Type = "SALES"
	TypeStock Type = "STOCK"
)

// Status is the lifecycle state of a job.
type Status string

// Job statuses. COMPLETED and FAILED are terminal and absorbing.
const (
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// ErrJobNotFound indicates an unknown job id on status lookup.
var ErrJobNotFound = errors.New("importjob: job not found")

// Job is the polled snapshot of one file ingestion.
type Job struct {
	ID           string    `json:"id"`
	Type         Type      `json:"type"`
	Status       Status    `json:"status"`
	TotalRecords int       `json:"totalRecords"`
	Processed    int       `json:"processed"`
	Progress     int       `json:"progress"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Terminal reports whether the job reached an absorbing state.
func (j Job) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// ComputeProgress derives the 0-100 progress value from processed row counts.
// Progress reflects rows read, not rows persisted.
func ComputeProgress(processed, total int) int {
	if total <= 0 {
		return 100
	}
	pct := int(math.Round(float64(processed) / float64(total) * 100))
	if pct > 100 {
		pct = 100
	}
	return pct
}
