package reports

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/finlight/appraise/pkg/pagination"
)

// Store is the persistence boundary for reports. The valuation phase and
// the HTTP handlers depend on this interface rather than on the database
// directly so that pipeline behavior can be exercised without Postgres.
type Store interface {
	// Insert creates a report in pending status with empty content and one
	// pending extraction record per document, in a single transaction.
	Insert(ctx context.Context, owner string, documentIDs []uuid.UUID) (*Report, error)

	// Find returns a report by ID, or ErrNotFound.
	Find(ctx context.Context, id uuid.UUID) (*Report, error)

	// List returns a page of reports matching the given filters.
	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Report], error)

	// BeginValuation transitions the report to valuating if its current
	// status is in from, resetting progress to zero. Returns ErrNotFound
	// when the report does not exist and ErrActiveRun when its status is
	// not in from. The conditional update is the per-report lock: at most
	// one caller wins the transition.
	BeginValuation(ctx context.Context, id uuid.UUID, from []Status) error

	// SetProgress advances progress (never backwards) and replaces the
	// status message.
	SetProgress(ctx context.Context, id uuid.UUID, progress int, message string) error

	// CompleteValuation merges result into the report content, sets status
	// to completed with progress 100, clears any prior error, and returns
	// the updated report. Keys absent from result are left untouched.
	CompleteValuation(ctx context.Context, id uuid.UUID, result json.RawMessage, message string) (*Report, error)

	// FailValuation sets status to failed and records the error description.
	// Progress is left at its last value.
	FailValuation(ctx context.Context, id uuid.UUID, message, errDesc string) error

	// PatchSection replaces a single content section and returns the
	// updated report. Other sections are preserved.
	PatchSection(ctx context.Context, id uuid.UUID, section string, content json.RawMessage) (*Report, error)

	// ExtractionOutcomes returns the per-document extraction results for a
	// report in document insertion order.
	ExtractionOutcomes(ctx context.Context, id uuid.UUID) ([]ExtractionOutcome, error)
}
