package reports

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"github.com/finlight/appraise/internal/auth"
	"github.com/finlight/appraise/internal/intelligence"
	"github.com/finlight/appraise/internal/pipeline"
	"github.com/finlight/appraise/pkg/pagination"
)

// System defines the public contract for report domain operations.
type System interface {
	Handler() *Handler

	Create(ctx context.Context, owner string, cmd CreateCommand) (*Report, error)
	Find(ctx context.Context, id uuid.UUID) (*Report, error)
	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Report], error)

	// Valuate runs the valuation phase over the report's extracted facts.
	Valuate(ctx context.Context, id uuid.UUID) (*Report, error)

	// ValuationStatus projects the report's current valuation state for polling.
	ValuationStatus(ctx context.Context, id uuid.UUID) (*ValuationStatus, error)

	// PatchSection replaces one content section on behalf of userID.
	// Only the report owner may patch.
	PatchSection(ctx context.Context, userID string, id uuid.UUID, cmd PatchCommand) (*Report, error)
}

type system struct {
	store      Store
	valuator   intelligence.Valuator
	auth       auth.System
	logger     *slog.Logger
	pagination pagination.Config
	pipeline   pipeline.Config
}

// New creates a Postgres-backed report system.
func New(
	db *sql.DB,
	valuator intelligence.Valuator,
	authSys auth.System,
	logger *slog.Logger,
	pagination pagination.Config,
	pipeline pipeline.Config,
) System {
	return NewSystem(
		NewStore(db, logger, pagination),
		valuator,
		authSys,
		logger,
		pagination,
		pipeline,
	)
}

// NewSystem creates a report system over an explicit store. It exists so
// pipeline behavior can be driven against alternative store implementations.
func NewSystem(
	store Store,
	valuator intelligence.Valuator,
	authSys auth.System,
	logger *slog.Logger,
	pagination pagination.Config,
	pipeline pipeline.Config,
) System {
	return &system{
		store:      store,
		valuator:   valuator,
		auth:       authSys,
		logger:     logger.With("system", "reports"),
		pagination: pagination,
		pipeline:   pipeline,
	}
}

func (s *system) Handler() *Handler {
	return NewHandler(s, s.auth, s.logger, s.pagination)
}

func (s *system) Create(ctx context.Context, owner string, cmd CreateCommand) (*Report, error) {
	ids := dedupe(cmd.DocumentIDs)
	if len(ids) == 0 {
		return nil, ErrNoDocuments
	}

	r, err := s.store.Insert(ctx, owner, ids)
	if err != nil {
		return nil, err
	}

	s.logger.Info("report created", "report", r.ID, "owner", owner, "documents", len(ids))
	return r, nil
}

func (s *system) Find(ctx context.Context, id uuid.UUID) (*Report, error) {
	return s.store.Find(ctx, id)
}

func (s *system) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Report], error) {
	return s.store.List(ctx, page, filters)
}

func (s *system) ValuationStatus(ctx context.Context, id uuid.UUID) (*ValuationStatus, error) {
	r, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	return &ValuationStatus{
		Status:   r.Status,
		Progress: r.Progress,
		Message:  r.Message,
		Error:    r.Error,
	}, nil
}

func (s *system) PatchSection(
	ctx context.Context,
	userID string,
	id uuid.UUID,
	cmd PatchCommand,
) (*Report, error) {
	if cmd.Section == "" {
		return nil, ErrInvalidSection
	}
	if cmd.Content == nil {
		return nil, ErrMissingContent
	}

	r, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	if r.Owner != userID {
		return nil, ErrForbidden
	}

	return s.store.PatchSection(ctx, id, cmd.Section, cmd.Content)
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
