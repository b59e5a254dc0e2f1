// Package api implements the HTTP transport: discovery endpoints under
// /v2 and /v3, the read-only admin surface, and the middleware stack that
// wraps both.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/fleetxds/control-plane/internal/admin"
	"github.com/fleetxds/control-plane/internal/discovery"
)

// Server bundles an api.Server's dependencies and read-only request-time
// settings.
type Server struct {
	Engine  *discovery.Engine
	Admin   *admin.Surface
	Version string
	Debug   bool
	// UnchangedStatus is the status code served for an Unchanged discovery
	// response.
	UnchangedStatus int

	Logger   *slog.Logger
	LogHub   *logHub
	Validate *validator.Validate
}

// NewServer wires a Server's request-time defaults.
func NewServer(engine *discovery.Engine, surface *admin.Surface, version string, debug bool, unchangedStatus int, logger *slog.Logger) *Server {
	if unchangedStatus == 0 {
		unchangedStatus = http.StatusNotModified
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		Engine:          engine,
		Admin:           surface,
		Version:         version,
		Debug:           debug,
		UnchangedStatus: unchangedStatus,
		Logger:          logger,
		Validate:        validator.New(),
	}
}

// NewRouter builds the *mux.Router serving both the discovery endpoints and
// the admin surface. Middleware order is request ID, then logging, then
// metrics, then panic recovery innermost so
// a recovered panic is still logged and counted.
func (s *Server) NewRouter() *mux.Router {
	router := mux.NewRouter()

	router.Use(requestIDMiddleware)
	router.Use(loggingMiddleware(s.Logger))
	router.Use(metricsMiddleware)
	router.Use(recoveryMiddleware(s.Logger))

	s.setupDiscoveryRoutes(router)
	s.setupAdminRoutes(router)
	s.setupDocumentationRoutes(router)

	return router
}

// setupDocumentationRoutes wires swagger UI over the admin surface.
func (s *Server) setupDocumentationRoutes(router *mux.Router) {
	router.PathPrefix("/docs").Handler(httpSwagger.WrapHandler)
}
