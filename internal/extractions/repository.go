package extractions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/finlight/appraise/internal/reports"
	"github.com/finlight/appraise/pkg/repository"
)

const extractionColumns = "id, report_id, document_id, status, error, extracted_facts, created_at, updated_at"

type store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore creates a Postgres-backed extraction store.
func NewStore(db *sql.DB, logger *slog.Logger) Store {
	return &store{
		db:     db,
		logger: logger.With("system", "extractions"),
	}
}

func (s *store) BeginRun(ctx context.Context, reportID uuid.UUID, staleBefore time.Time) error {
	q := `
		UPDATE reports
		SET status = $2, message = 'extraction started', updated_at = now()
		WHERE id = $1
		  AND (status IN ($3, $4, $5) OR (status = $2 AND updated_at < $6))`

	err := repository.ExecExpectOne(ctx, s.db, q,
		reportID,
		reports.StatusExtracting,
		reports.StatusPending,
		reports.StatusExtractionFailed,
		reports.StatusFailed,
		staleBefore,
	)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("begin extraction run: %w", err)
	}

	status, err := s.ReportStatus(ctx, reportID)
	if err != nil {
		return err
	}
	if status == reports.StatusCompleted {
		return ErrReportCompleted
	}
	return ErrActiveRun
}

func (s *store) ReportStatus(ctx context.Context, reportID uuid.UUID) (reports.Status, error) {
	var status reports.Status
	err := s.db.QueryRowContext(ctx, "SELECT status FROM reports WHERE id = $1", reportID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return status, ErrReportNotFound
	}
	if err != nil {
		return status, fmt.Errorf("find report %s: %w", reportID, err)
	}
	return status, nil
}

func (s *store) FinishRun(
	ctx context.Context,
	reportID uuid.UUID,
	to reports.Status,
	message, errDesc string,
) error {
	var errVal *string
	if errDesc != "" {
		errVal = &errDesc
	}

	q := `
		UPDATE reports
		SET status = $2, message = $3, error = $4, updated_at = now()
		WHERE id = $1`

	if err := repository.ExecExpectOne(ctx, s.db, q, reportID, to, message, errVal); err != nil {
		return fmt.Errorf("finish extraction run: %w", err)
	}
	return nil
}

func (s *store) ListByReport(ctx context.Context, reportID uuid.UUID) ([]DocumentExtraction, error) {
	q := fmt.Sprintf(`
		SELECT %s
		FROM document_extractions
		WHERE report_id = $1
		ORDER BY created_at, id`, extractionColumns)

	items, err := repository.QueryMany(ctx, s.db, q, []any{reportID}, scanExtraction)
	if err != nil {
		return nil, fmt.Errorf("query extractions: %w", err)
	}
	return items, nil
}

func (s *store) Runnable(
	ctx context.Context,
	reportID uuid.UUID,
	staleBefore time.Time,
) ([]DocumentExtraction, error) {
	q := fmt.Sprintf(`
		SELECT %s
		FROM document_extractions
		WHERE report_id = $1
		  AND (status IN ($2, $3) OR (status = $4 AND updated_at < $5))
		ORDER BY created_at, id`, extractionColumns)

	items, err := repository.QueryMany(ctx, s.db, q,
		[]any{reportID, StatusPending, StatusFailed, StatusProcessing, staleBefore},
		scanExtraction,
	)
	if err != nil {
		return nil, fmt.Errorf("query runnable extractions: %w", err)
	}
	return items, nil
}

func (s *store) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	q := `
		UPDATE document_extractions
		SET status = $2, updated_at = now()
		WHERE id = $1`

	return repository.ExecExpectOne(ctx, s.db, q, id, StatusProcessing)
}

func (s *store) Complete(ctx context.Context, id uuid.UUID, facts json.RawMessage) error {
	q := `
		UPDATE document_extractions
		SET status = $2, extracted_facts = $3::jsonb, error = NULL, updated_at = now()
		WHERE id = $1`

	return repository.ExecExpectOne(ctx, s.db, q, id, StatusCompleted, []byte(facts))
}

func (s *store) Fail(ctx context.Context, id uuid.UUID, errDesc string) error {
	q := `
		UPDATE document_extractions
		SET status = $2, error = $3, updated_at = now()
		WHERE id = $1`

	return repository.ExecExpectOne(ctx, s.db, q, id, StatusFailed, errDesc)
}

func scanExtraction(sc repository.Scanner) (DocumentExtraction, error) {
	var (
		e     DocumentExtraction
		facts []byte
	)

	err := sc.Scan(
		&e.ID,
		&e.ReportID,
		&e.DocumentID,
		&e.Status,
		&e.Error,
		&facts,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return e, err
	}

	if len(facts) > 0 {
		e.Facts = json.RawMessage(facts)
	}

	return e, nil
}
