package documents

import (
	"context"

	"github.com/google/uuid"

	"github.com/finlight/appraise/pkg/pagination"
)

// System defines the public contract for document domain operations.
type System interface {
	Handler(maxUploadSize int64) *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Document], error)

	Find(ctx context.Context, id uuid.UUID) (*Document, error)
	Create(ctx context.Context, cmd CreateCommand) (*Document, error)

	// Content loads a document's raw bytes from blob storage.
	Content(ctx context.Context, id uuid.UUID) (*Content, error)
}
