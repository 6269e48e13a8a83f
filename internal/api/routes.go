package api

import (
	"net/http"

	"github.com/finlight/appraise/internal/config"
	"github.com/finlight/appraise/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
) {
	routes.Register(
		mux,
		domain.Documents.Handler(cfg.API.MaxUploadSizeBytes()).Routes(),
		domain.Reports.Handler().Routes(),
		domain.Extractions.Handler().Routes(),
	)
}
