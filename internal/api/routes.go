package api

import (
	"net/http"

	"github.com/wboerner/archivar/internal/pipeline"
	"github.com/wboerner/archivar/internal/poller"
	"github.com/wboerner/archivar/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	runtime *Runtime,
) {
	routes.Register(
		mux,
		domain.Outcomes.Handler().Routes(),
		domain.Review.Handler().Routes(),
		poller.NewHandler(domain.Poller, runtime.Logger).Routes(),
		pipeline.NewHandler(domain.Poller, runtime.Logger).Routes(),
	)
}
