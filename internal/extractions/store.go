package extractions

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/finlight/appraise/internal/reports"
)

// Store is the persistence boundary for extraction records and the
// report-level transitions that bracket a run.
type Store interface {
	// BeginRun transitions the report to extracting if no run is active.
	// A report already extracting but untouched since staleBefore counts as
	// abandoned and may be claimed by a fresh invocation. Returns
	// ErrReportNotFound, ErrReportCompleted, or ErrActiveRun when the
	// transition cannot be made. The conditional update is the per-report
	// lock: at most one caller wins the transition.
	BeginRun(ctx context.Context, reportID uuid.UUID, staleBefore time.Time) error

	// FinishRun releases the run lock by transitioning the report to the
	// given status. An empty errDesc clears the report error.
	FinishRun(ctx context.Context, reportID uuid.UUID, to reports.Status, message, errDesc string) error

	// ReportStatus returns the report's current status, or ErrReportNotFound.
	ReportStatus(ctx context.Context, reportID uuid.UUID) (reports.Status, error)

	// ListByReport returns all extraction records for a report in document
	// insertion order.
	ListByReport(ctx context.Context, reportID uuid.UUID) ([]DocumentExtraction, error)

	// Runnable returns the records eligible for processing: pending and
	// failed records, plus processing records untouched since staleBefore.
	Runnable(ctx context.Context, reportID uuid.UUID, staleBefore time.Time) ([]DocumentExtraction, error)

	// MarkProcessing transitions a record to processing.
	MarkProcessing(ctx context.Context, id uuid.UUID) error

	// Complete stores extracted facts and transitions the record to completed,
	// clearing any prior error.
	Complete(ctx context.Context, id uuid.UUID, facts json.RawMessage) error

	// Fail stores the failure description and transitions the record to failed.
	Fail(ctx context.Context, id uuid.UUID, errDesc string) error
}
