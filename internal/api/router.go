package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/technosupport/vms-analytics/internal/middleware"
	"github.com/technosupport/vms-analytics/internal/ratelimit"
)

// RouterDeps collects everything NewRouter mounts. RateLimit may be nil.
type RouterDeps struct {
	Logger         zerolog.Logger
	AllowedOrigins []string
	JWT            *middleware.JWTAuth
	RateLimit      *middleware.RateLimitMiddleware
	AnalyzeLimit   ratelimit.LimitConfig

	Cameras   *CameraHandler
	Inventory *InventoryHandler
	Views     *ViewHandler
	Settings  *SettingsHandler
	Audit     *AuditHandler
	Auth      *AuthHandler
	Health    *HealthHandler
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(middleware.Metrics)
	r.Use(middleware.CORS(d.AllowedOrigins))

	r.Get("/healthz", d.Health.Live)
	r.Get("/readyz", d.Health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if d.RateLimit != nil {
			r.Use(d.RateLimit.ByIP)
		}
		r.Use(d.JWT.Middleware)
		if d.RateLimit != nil {
			r.Use(d.RateLimit.ByCompany)
		}

		r.Post("/auth/revoke", d.Auth.Revoke)

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", d.Inventory.ListClients)
			r.Post("/", d.Inventory.CreateClient)
			r.Get("/{id}", d.Inventory.GetClient)
			r.Put("/{id}", d.Inventory.UpdateClient)
			r.Delete("/{id}", d.Inventory.DeleteClient)
		})

		r.Route("/sites", func(r chi.Router) {
			r.Get("/", d.Inventory.ListSites)
			r.Post("/", d.Inventory.CreateSite)
			r.Get("/{id}", d.Inventory.GetSite)
			r.Put("/{id}", d.Inventory.UpdateSite)
			r.Delete("/{id}", d.Inventory.DeleteSite)
		})

		r.Route("/cameras", func(r chi.Router) {
			r.Get("/", d.Cameras.List)
			r.Post("/", d.Cameras.Create)
			r.Get("/{id}", d.Cameras.Get)
			r.Patch("/{id}", d.Cameras.Update)
			r.Delete("/{id}", d.Cameras.Delete)
			r.Post("/{id}/enable", d.Cameras.Enable)
			r.Post("/{id}/disable", d.Cameras.Disable)
			r.Patch("/{id}/scene-change", d.Cameras.SetSceneChange)
			r.Delete("/{id}/reference-images", d.Cameras.ResetReferences)
		})

		r.Route("/views/{id}", func(r chi.Router) {
			analyze := http.Handler(http.HandlerFunc(d.Views.Analyze))
			if d.RateLimit != nil {
				analyze = d.RateLimit.Scoped(ratelimit.ScopeAnalyze, d.AnalyzeLimit)(analyze)
			}
			r.Method(http.MethodPost, "/analyze", analyze)
			r.Get("/analysis-results/{resultId}", d.Views.GetResult)
			r.Get("/reference-image", d.Views.ReferenceImage)
			r.Get("/tampering-events", d.Views.TamperingEvents)
		})

		r.Get("/settings/tampering-windows", d.Settings.GetTamperingWindows)
		r.Put("/settings/tampering-windows", d.Settings.PutTamperingWindows)

		r.Get("/audit/events", d.Audit.GetEvents)
	})

	return r
}
