// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/wboerner/archivar/internal/config"
	"github.com/wboerner/archivar/internal/infrastructure"
	"github.com/wboerner/archivar/pkg/middleware"
	"github.com/wboerner/archivar/pkg/module"
	"github.com/wboerner/archivar/pkg/openapi"
)

// NewModule creates the API module with all domain handlers and middleware.
// The returned Domain exposes the poller for lifecycle registration.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, *Domain, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	mux := http.NewServeMux()
	registerRoutes(mux, domain, runtime)

	spec, err := buildSpec(cfg)
	if err != nil {
		return nil, nil, err
	}
	mux.HandleFunc("GET /openapi.json", openapi.ServeSpec(spec))

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))

	return m, domain, nil
}
