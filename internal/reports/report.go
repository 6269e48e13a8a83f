// Package reports implements the valuation report domain: report creation,
// the valuation phase of the pipeline, status projection, and section-level
// content patching. A report aggregates the extracted facts of its documents
// into a single structured valuation.
package reports

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status is the report-level pipeline state.
type Status string

// Report status values. The extraction and valuation phases share the field:
// extracting and extraction_failed are written by the extraction phase,
// valuating, completed, and failed by the valuation phase.
const (
	StatusPending          Status = "pending"
	StatusExtracting       Status = "extracting"
	StatusExtractionFailed Status = "extraction_failed"
	StatusValuating        Status = "valuating"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
)

// Report represents a business-valuation report and its pipeline state.
// Content maps section names to structured section payloads; the valuation
// phase merges its result into Content without disturbing unrelated keys.
type Report struct {
	ID        uuid.UUID                  `json:"id"`
	Owner     string                     `json:"owner"`
	Status    Status                     `json:"status"`
	Progress  int                        `json:"progress"`
	Message   string                     `json:"message"`
	Error     *string                    `json:"error"`
	Content   map[string]json.RawMessage `json:"content"`
	CreatedAt time.Time                  `json:"created_at"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

// CreateCommand carries the data needed to register a new report.
// One pending extraction record is created per distinct document.
type CreateCommand struct {
	DocumentIDs []uuid.UUID `json:"document_ids"`
}

// PatchCommand carries a single-section content patch.
// Content distinguishes "field absent" (nil) from an explicit JSON null,
// which is a legitimate payload.
type PatchCommand struct {
	Section string          `json:"section"`
	Content json.RawMessage `json:"content"`
}

// ValuationStatus is the poll-friendly projection of a report's valuation state.
type ValuationStatus struct {
	Status   Status  `json:"status"`
	Progress int     `json:"progress"`
	Message  string  `json:"message"`
	Error    *string `json:"error"`
}

// ExtractionOutcome is the per-document extraction result the valuation
// phase consumes. Facts is populated only for completed extractions.
type ExtractionOutcome struct {
	DocumentID uuid.UUID
	Status     string
	Facts      json.RawMessage
}

// Terminal reports whether the outcome's extraction reached a terminal state.
func (o ExtractionOutcome) Terminal() bool {
	return o.Status == "completed" || o.Status == "failed"
}
