// Package httptransport wires domain handlers, middleware, and operational
// endpoints into the HTTP surface.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	identityhandler "chronicle/internal/identity/handler"
	"chronicle/internal/platform/health"
	"chronicle/internal/platform/middleware"
	timelinehandler "chronicle/internal/timeline/handler"
)

// Dependencies carries everything the router needs. All fields are required
// except Health, which defaults to a bare handler.
type Dependencies struct {
	Timeline *timelinehandler.Handler
	Identity *identityhandler.Handler
	Resolver middleware.PrincipalResolver
	Health   *health.Handler
	Logger   *slog.Logger
}

// NewRouter wires all endpoints with the middleware stack. Request identity
// is resolved once here; handlers read the principal from the context.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	if deps.Health != nil {
		deps.Health.Register(r)
	}
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Principal(deps.Resolver))
		deps.Identity.Register(r)
		deps.Timeline.Register(r)
		deps.Timeline.RegisterAdmin(r)
	})

	return r
}
