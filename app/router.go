package app

import (
	"context"
	"net/http"
	"time"

	"github.com/Black-And-White-Club/club-ladder/app/shared/httpx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthCheck is one readiness probe.
type HealthCheck func(ctx context.Context) error

// Router builds the HTTP handler: open health and metrics endpoints, and the
// module APIs behind auth.
func (app *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(app.AuthModule.CORS())

	r.Get("/healthz", HealthHandler(map[string]HealthCheck{
		"database": app.DB.PingContext,
		"queue":    app.MatchModule.HealthCheck,
	}))
	r.Handle("/metrics", promhttp.HandlerFor(app.Observability.Registry, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		app.AuthModule.Protect(r)
		app.AuthModule.RegisterRoutes(r)
		app.DirectoryModule.RegisterRoutes(r)
		app.LadderModule.RegisterRoutes(r)
		app.MatchModule.RegisterRoutes(r)
	})
	return r
}

// HealthHandler runs every check and answers 503 naming the ones that failed.
func HealthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{}
		code := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status[name] = err.Error()
				code = http.StatusServiceUnavailable
				continue
			}
			status[name] = "ok"
		}
		httpx.WriteJSON(w, code, status)
	}
}
