package api

import (
	"log/slog"
	"net/http"

	"github.com/STRATINT/zonewatch/internal/auth"
	"github.com/STRATINT/zonewatch/internal/gateway"
	"github.com/STRATINT/zonewatch/internal/hub"
	"github.com/STRATINT/zonewatch/internal/metrics"
	"github.com/STRATINT/zonewatch/internal/stream"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Dependencies are the collaborators the router wires into handlers.
type Dependencies struct {
	Gateway  *gateway.Service
	Hub      *hub.Hub
	Metrics  *metrics.Collector
	Auth     auth.Config
	Activity ActivityLister // nil when the journal is disabled
	Logger   *slog.Logger
}

// NewRouter builds the HTTP routing tree.
func NewRouter(deps Dependencies) http.Handler {
	h := NewHandler(deps.Gateway, deps.Activity, deps.Auth, deps.Logger)
	requireAuth := auth.Middleware(deps.Auth, h.deny)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.InstrumentHandler)
	}
	r.Use(cors)

	r.Get("/healthz", h.Health)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Handle("/ws", stream.NewWebSocketHandler(deps.Hub, deps.Logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/stream", stream.NewSSEHandler(deps.Hub, deps.Logger).ServeHTTP)

		r.Get("/zones", h.ListZones)
		r.Get("/zones/{id}", h.GetZone)
		r.Get("/alerts", h.ListAlerts)
		r.Get("/metrics", h.GetMetrics)
		r.Get("/threat-levels", h.GetThreatLevels)
		r.Get("/status", h.GetStatus)
		r.Get("/activity", h.ListActivity)

		r.Post("/auth/login", h.Login)
		r.Post("/auth/logout", h.Logout)
		r.With(requireAuth).Get("/auth/user", h.CurrentUser)

		r.Group(func(r chi.Router) {
			if deps.Auth.Required {
				r.Use(requireAuth)
			}
			r.Post("/zones", h.CreateZone)
			r.Put("/zones/{id}", h.UpdateZone)
			r.Delete("/zones/{id}", h.DeleteZone)
			r.Put("/alerts/{id}/resolve", h.ResolveAlert)
		})
	})

	return r
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
