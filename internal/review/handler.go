package review

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/wboerner/archivar/pkg/handlers"
	"github.com/wboerner/archivar/pkg/pagination"
	"github.com/wboerner/archivar/pkg/routes"
)

// Handler provides HTTP endpoints for review operations.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(
	sys System,
	logger *slog.Logger,
	pagination pagination.Config,
) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "review"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for review endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/review",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.Queue},
			{Method: "GET", Pattern: "/{documentId}", Handler: h.Item},
			{Method: "POST", Pattern: "/{documentId}/apply", Handler: h.Apply},
		},
	}
}

// Queue returns the paginated review queue, newest first.
func (h *Handler) Queue(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)

	result, err := h.sys.Queue(r.Context(), page)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Item returns the pending outcome alongside the document's current state.
func (h *Handler) Item(w http.ResponseWriter, r *http.Request) {
	documentID, err := strconv.Atoi(r.PathValue("documentId"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	item, err := h.sys.Item(r.Context(), documentID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, item)
}

// Apply decodes an ApplyCommand JSON body and writes the reviewer's
// corrections to the document.
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	documentID, err := strconv.Atoi(r.PathValue("documentId"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	var cmd ApplyCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	outcome, err := h.sys.Apply(r.Context(), documentID, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, outcome)
}
