package poller

import (
	"log/slog"
	"net/http"

	"github.com/wboerner/archivar/pkg/handlers"
	"github.com/wboerner/archivar/pkg/routes"
)

// Handler provides HTTP endpoints for poller control.
type Handler struct {
	poller *Poller
	logger *slog.Logger
}

// NewHandler creates a Handler over the given poller.
func NewHandler(poller *Poller, logger *slog.Logger) *Handler {
	return &Handler{
		poller: poller,
		logger: logger.With("handler", "poller"),
	}
}

// Routes returns the route group definition for poller endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/poller",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.Status},
			{Method: "POST", Pattern: "/pause", Handler: h.Pause},
			{Method: "POST", Pattern: "/resume", Handler: h.Resume},
		},
	}
}

// Status returns the poller's current state and counters.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, h.poller.Status())
}

// Pause suspends polling until resumed. The in-flight document finishes.
func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	h.poller.Pause("paused by operator")
	handlers.RespondJSON(w, http.StatusOK, h.poller.Status())
}

// Resume re-enables polling after a pause.
func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	h.poller.Resume()
	handlers.RespondJSON(w, http.StatusOK, h.poller.Status())
}
