package extractions

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"github.com/finlight/appraise/internal/documents"
	"github.com/finlight/appraise/internal/intelligence"
	"github.com/finlight/appraise/internal/pipeline"
)

// DocumentSource loads document bytes for extraction.
// Satisfied by the document system.
type DocumentSource interface {
	Content(ctx context.Context, id uuid.UUID) (*documents.Content, error)
}

// System defines the public contract for extraction phase operations.
type System interface {
	Handler() *Handler

	// Run executes the extraction phase for a report.
	Run(ctx context.Context, reportID uuid.UUID) (*RunSummary, error)

	// Status projects the report's current extraction state for polling.
	Status(ctx context.Context, reportID uuid.UUID) (*StatusReport, error)
}

type system struct {
	store     Store
	source    DocumentSource
	extractor intelligence.Extractor
	logger    *slog.Logger
	pipeline  pipeline.Config
}

// New creates a Postgres-backed extraction system.
func New(
	db *sql.DB,
	source DocumentSource,
	extractor intelligence.Extractor,
	logger *slog.Logger,
	pipeline pipeline.Config,
) System {
	return NewSystem(NewStore(db, logger), source, extractor, logger, pipeline)
}

// NewSystem creates an extraction system over an explicit store. It exists so
// run behavior can be driven against alternative store implementations.
func NewSystem(
	store Store,
	source DocumentSource,
	extractor intelligence.Extractor,
	logger *slog.Logger,
	pipeline pipeline.Config,
) System {
	return &system{
		store:     store,
		source:    source,
		extractor: extractor,
		logger:    logger.With("system", "extractions"),
		pipeline:  pipeline,
	}
}

func (s *system) Handler() *Handler {
	return NewHandler(s, s.logger)
}

// Status projects the current extraction state of a report. A report with no
// extraction rows (including an unknown report id) yields an empty aggregate;
// absence of rows is a valid state for pollers, not an error.
func (s *system) Status(ctx context.Context, reportID uuid.UUID) (*StatusReport, error) {
	items, err := s.store.ListByReport(ctx, reportID)
	if err != nil {
		return nil, err
	}

	if items == nil {
		items = []DocumentExtraction{}
	}

	report := StatusReport{
		Total:       len(items),
		Extractions: items,
	}

	for _, item := range items {
		switch item.Status {
		case StatusCompleted:
			report.Completed++
		case StatusFailed:
			report.Failed++
		case StatusProcessing:
			report.Processing++
		default:
			report.Pending++
		}
	}

	return &report, nil
}
