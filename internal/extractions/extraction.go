// Package extractions implements the extraction phase of the valuation
// pipeline: per-document invocation of the external extraction operation,
// outcome bookkeeping, and the report-level status projection used for
// polling.
package extractions

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status is the per-document extraction state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status is completed or failed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// DocumentExtraction tracks the extraction outcome for one document within
// a report. Facts holds the structured output of a completed extraction;
// Error holds the failure description of a failed one.
type DocumentExtraction struct {
	ID         uuid.UUID       `json:"id"`
	ReportID   uuid.UUID       `json:"report_id"`
	DocumentID uuid.UUID       `json:"document_id"`
	Status     Status          `json:"status"`
	Error      *string         `json:"error"`
	Facts      json.RawMessage `json:"extracted_facts,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Detail records the outcome of one document processed during a run.
type Detail struct {
	DocumentID uuid.UUID `json:"document_id"`
	Status     Status    `json:"status"`
	Error      *string   `json:"error,omitempty"`
}

// RunSummary aggregates the outcome of one extraction run. Success is true
// when the run itself executed without an infrastructure fault; individual
// document failures do not make a run unsuccessful. Total, Completed, and
// Failed describe the report's extraction records after the run.
type RunSummary struct {
	Success   bool     `json:"success"`
	Total     int      `json:"total"`
	Completed int      `json:"completed"`
	Failed    int      `json:"failed"`
	Details   []Detail `json:"details"`
}

// StatusReport is the poll-friendly projection of a report's extraction state.
type StatusReport struct {
	Total       int                  `json:"total"`
	Completed   int                  `json:"completed"`
	Failed      int                  `json:"failed"`
	Pending     int                  `json:"pending"`
	Processing  int                  `json:"processing"`
	Extractions []DocumentExtraction `json:"extractions"`
}
