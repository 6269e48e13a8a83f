package api

import (
	"github.com/finlight/appraise/internal/config"
	"github.com/finlight/appraise/internal/infrastructure"
	"github.com/finlight/appraise/internal/intelligence"
	"github.com/finlight/appraise/internal/pipeline"
	"github.com/finlight/appraise/pkg/pagination"
)

// Runtime extends Infrastructure with API-scoped configuration and the
// intelligence service client shared by both pipeline phases.
type Runtime struct {
	*infrastructure.Infrastructure
	Intelligence *intelligence.Client
	Pagination   pagination.Config
	Pipeline     pipeline.Config
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	logger := infra.Logger.With("module", "api")

	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    logger,
			Database:  infra.Database,
			Storage:   infra.Storage,
			Auth:      infra.Auth,
		},
		Intelligence: intelligence.NewClient(&cfg.Intelligence, logger),
		Pagination:   cfg.API.Pagination,
		Pipeline:     cfg.Pipeline,
	}
}
