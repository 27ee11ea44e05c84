package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"portalgate/internal/portalapi"
	"portalgate/pkg/middleware"
)

// Handler builds the HTTP handler with routes and middleware. Only
// /healthz and /metrics are reachable without an account.
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(chimw.RealIP)
	r.Use(middleware.Recover(a.log))
	r.Use(middleware.Instrument(a.log, a.cfg.Debug))
	r.Use(middleware.Tracing(a.cfg, a.log))
	r.Use(middleware.CORS(a.cfg.CORSAllowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(pr chi.Router) {
		pr.Use(middleware.RequireAccount(a.gate, a.log))
		portalapi.RegisterRoutes(pr, a.log, a.store, a.tokens)
	})
	return r
}
