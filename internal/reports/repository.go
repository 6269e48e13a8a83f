package reports

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/finlight/appraise/pkg/pagination"
	"github.com/finlight/appraise/pkg/query"
	"github.com/finlight/appraise/pkg/repository"
)

const reportColumns = "id, owner, status, progress, message, error, content, created_at, updated_at"

type store struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// NewStore creates a Postgres-backed report store.
func NewStore(db *sql.DB, logger *slog.Logger, pagination pagination.Config) Store {
	return &store{
		db:         db,
		logger:     logger.With("system", "reports"),
		pagination: pagination,
	}
}

func (s *store) Insert(ctx context.Context, owner string, documentIDs []uuid.UUID) (*Report, error) {
	id := uuid.New()

	insertReport := fmt.Sprintf(`
		INSERT INTO reports(id, owner, status, progress, message, content)
		VALUES ($1, $2, $3, 0, 'report created', '{}'::jsonb)
		RETURNING %s`, reportColumns)

	insertExtraction := `
		INSERT INTO document_extractions(id, report_id, document_id, status)
		VALUES ($1, $2, $3, 'pending')`

	r, err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) (Report, error) {
		r, err := repository.QueryOne(ctx, tx, insertReport, []any{id, owner, StatusPending}, scanReport)
		if err != nil {
			return r, err
		}

		for _, docID := range documentIDs {
			if _, err := tx.ExecContext(ctx, insertExtraction, uuid.New(), id, docID); err != nil {
				return r, fmt.Errorf("insert extraction record for %s: %w", docID, err)
			}
		}

		return r, nil
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	return &r, nil
}

func (s *store) Find(ctx context.Context, id uuid.UUID) (*Report, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	r, err := repository.QueryOne(ctx, s.db, q, args, scanReport)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &r, nil
}

func (s *store) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Report], error) {
	page.Normalize(s.pagination)

	qb := query.NewBuilder(projection, defaultSort)
	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count reports: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, s.db, pageSQL, pageArgs, scanReport)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (s *store) BeginValuation(ctx context.Context, id uuid.UUID, from []Status) error {
	placeholders := make([]string, len(from))
	args := []any{id}
	for i, status := range from {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, status)
	}

	q := fmt.Sprintf(`
		UPDATE reports
		SET status = 'valuating', progress = 0, message = 'valuation started', updated_at = now()
		WHERE id = $1 AND status IN (%s)`, strings.Join(placeholders, ", "))

	err := repository.ExecExpectOne(ctx, s.db, q, args...)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("begin valuation: %w", err)
	}

	// The transition failed: distinguish a missing report from a status
	// that does not permit valuation.
	current, findErr := s.Find(ctx, id)
	if findErr != nil {
		return findErr
	}
	if current.Status == StatusCompleted {
		return ErrAlreadyCompleted
	}
	return ErrActiveRun
}

func (s *store) SetProgress(ctx context.Context, id uuid.UUID, progress int, message string) error {
	q := `
		UPDATE reports
		SET progress = GREATEST(progress, $2), message = $3, updated_at = now()
		WHERE id = $1`

	if err := repository.ExecExpectOne(ctx, s.db, q, id, progress, message); err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return nil
}

func (s *store) CompleteValuation(
	ctx context.Context,
	id uuid.UUID,
	result json.RawMessage,
	message string,
) (*Report, error) {
	q := fmt.Sprintf(`
		UPDATE reports
		SET status = $2, progress = 100, message = $3, error = NULL,
			content = content || $4::jsonb, updated_at = now()
		WHERE id = $1
		RETURNING %s`, reportColumns)

	r, err := repository.QueryOne(ctx, s.db, q, []any{id, StatusCompleted, message, []byte(result)}, scanReport)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &r, nil
}

func (s *store) FailValuation(ctx context.Context, id uuid.UUID, message, errDesc string) error {
	q := `
		UPDATE reports
		SET status = $2, message = $3, error = $4, updated_at = now()
		WHERE id = $1`

	if err := repository.ExecExpectOne(ctx, s.db, q, id, StatusFailed, message, errDesc); err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return nil
}

func (s *store) PatchSection(
	ctx context.Context,
	id uuid.UUID,
	section string,
	content json.RawMessage,
) (*Report, error) {
	q := fmt.Sprintf(`
		UPDATE reports
		SET content = content || jsonb_build_object($2::text, $3::jsonb), updated_at = now()
		WHERE id = $1
		RETURNING %s`, reportColumns)

	r, err := repository.QueryOne(ctx, s.db, q, []any{id, section, []byte(content)}, scanReport)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &r, nil
}

func (s *store) ExtractionOutcomes(ctx context.Context, id uuid.UUID) ([]ExtractionOutcome, error) {
	q := `
		SELECT document_id, status, extracted_facts
		FROM document_extractions
		WHERE report_id = $1
		ORDER BY created_at, id`

	scan := func(sc repository.Scanner) (ExtractionOutcome, error) {
		var (
			o     ExtractionOutcome
			facts []byte
		)
		if err := sc.Scan(&o.DocumentID, &o.Status, &facts); err != nil {
			return o, err
		}
		if len(facts) > 0 {
			o.Facts = json.RawMessage(facts)
		}
		return o, nil
	}

	outcomes, err := repository.QueryMany(ctx, s.db, q, []any{id}, scan)
	if err != nil {
		return nil, fmt.Errorf("query extraction outcomes: %w", err)
	}
	return outcomes, nil
}
