package sync

import (
	"time"

	"github.com/google/uuid"
)

// Status is the per-record result of a sync attempt.
type Status string

const (
	StatusUpdated Status = "updated"
	// StatusSkipped marks parties without a usable domestic identifier.
	StatusSkipped Status = "skipped_no_identifier"
	StatusFailed  Status = "failed"
)

// Outcome is the result for one party. Failures carry the error for the
// batch report; they never abort sibling records.
type Outcome struct {
	PartyID    string `json:"party_id"`
	Identifier string `json:"identifier,omitempty"`
	Status     Status `json:"status"`
	Err        error  `json:"-"`
	Reason     string `json:"reason,omitempty"`
}

// BatchReport aggregates one sync run.
type BatchReport struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Outcomes   []Outcome `json:"outcomes"`
}

// NewBatchReport stamps a fresh report.
func NewBatchReport() *BatchReport {
	return &BatchReport{ID: uuid.NewString(), StartedAt: time.Now()}
}

// Counts summarizes the report.
func (r *BatchReport) Counts() (updated, skipped, failed int) {
	for _, o := range r.Outcomes {
		switch o.Status {
		case StatusUpdated:
			updated++
		case StatusSkipped:
			skipped++
		case StatusFailed:
			failed++
		}
	}
	return
}
