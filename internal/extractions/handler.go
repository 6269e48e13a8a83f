package extractions

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/finlight/appraise/pkg/handlers"
	"github.com/finlight/appraise/pkg/routes"
)

// Handler provides HTTP endpoints for extraction phase operations.
type Handler struct {
	sys    System
	logger *slog.Logger
}

func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "extractions"),
	}
}

// Routes returns the route group definition for extraction endpoints.
// Extraction routes hang off the report resource.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/reports",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/{id}/extraction", Handler: h.Run},
			{Method: "GET", Pattern: "/{id}/extraction", Handler: h.Status},
		},
	}
}

// Run triggers the extraction phase for a report.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrReportNotFound)
		return
	}

	summary, err := h.sys.Run(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, summary)
}

// Status returns the per-document extraction state for a report.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrReportNotFound)
		return
	}

	status, err := h.sys.Status(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, status)
}
