// Package httptransport assembles the public HTTP surface: middleware chain,
// declaration endpoints and operational endpoints.
package httptransport

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"infrastat/internal/infrastat/handler"
	platformredis "infrastat/internal/platform/redis"
	"infrastat/pkg/platform/httputil"
	"infrastat/pkg/platform/middleware/auth"
	"infrastat/pkg/platform/middleware/requestid"
	"infrastat/pkg/platform/middleware/requesttime"
)

// Deps are the collaborators the router needs.
type Deps struct {
	Handler   *handler.Handler
	Validator auth.TenantValidator
	Logger    *slog.Logger

	// Optional health probes. Nil values are skipped.
	DB    *sql.DB
	Redis *platformredis.Client
}

// NewRouter wires the middleware chain and mounts all endpoints. The
// declaration API sits behind bearer auth; health and metrics stay open.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)

	r.Get("/healthz", healthHandler(deps))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(deps.Validator, deps.Logger))
		deps.Handler.Register(r)
	})

	return r
}

func healthHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if deps.DB != nil {
			if err := deps.DB.PingContext(ctx); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy", "postgres": err.Error(),
				})
				return
			}
		}
		if deps.Redis != nil {
			if err := deps.Redis.Health(ctx); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy", "redis": err.Error(),
				})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
