// Package intelligence provides clients for the external document
// understanding service: per-document financial fact extraction and
// report-level valuation. Both operations are opaque HTTP calls; the
// payloads they return are stored and forwarded without interpretation.
package intelligence

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

// DocumentPayload carries one document into the extraction operation.
type DocumentPayload struct {
	DocumentID uuid.UUID
	Filename   string
	Data       []byte
}

// Extractor performs the per-document extraction operation.
type Extractor interface {
	// Extract derives structured financial facts from a single document.
	// The returned payload is opaque to the caller.
	Extract(ctx context.Context, doc DocumentPayload) (json.RawMessage, error)
}

// Valuator performs the report-level valuation operation.
type Valuator interface {
	// Valuate combines extracted facts into a structured valuation result.
	Valuate(ctx context.Context, reportID uuid.UUID, facts []json.RawMessage) (json.RawMessage, error)
}
