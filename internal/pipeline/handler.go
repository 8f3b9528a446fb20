package pipeline

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/wboerner/archivar/pkg/handlers"
	"github.com/wboerner/archivar/pkg/routes"
)

// Runner executes the pipeline for a single document on demand.
type Runner interface {
	Process(ctx context.Context, documentID int, forceModel string) (*Result, error)
}

// Handler provides the manual-trigger HTTP endpoint.
type Handler struct {
	runner Runner
	logger *slog.Logger
}

// NewHandler creates a Handler over the given runner.
func NewHandler(runner Runner, logger *slog.Logger) *Handler {
	return &Handler{
		runner: runner,
		logger: logger.With("handler", "pipeline"),
	}
}

// Routes returns the route group definition for pipeline endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/process",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/{documentId}", Handler: h.Process},
		},
	}
}

// Process runs the pipeline for the documentId path parameter. The optional
// tier query parameter forces a specific model.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	documentID, err := strconv.Atoi(r.PathValue("documentId"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrDocumentNotFound)
		return
	}

	result, err := h.runner.Process(r.Context(), documentID, r.URL.Query().Get("tier"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}
