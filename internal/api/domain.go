package api

import (
	"github.com/finlight/appraise/internal/documents"
	"github.com/finlight/appraise/internal/extractions"
	"github.com/finlight/appraise/internal/reports"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Documents   documents.System
	Reports     reports.System
	Extractions extractions.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	docsSystem := documents.New(
		runtime.Database.Connection(),
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
	)

	reportsSystem := reports.New(
		runtime.Database.Connection(),
		runtime.Intelligence,
		runtime.Auth,
		runtime.Logger,
		runtime.Pagination,
		runtime.Pipeline,
	)

	extractionsSystem := extractions.New(
		runtime.Database.Connection(),
		docsSystem,
		runtime.Intelligence,
		runtime.Logger,
		runtime.Pipeline,
	)

	return &Domain{
		Documents:   docsSystem,
		Reports:     reportsSystem,
		Extractions: extractionsSystem,
	}
}
