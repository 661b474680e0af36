package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avelazco/labstock-backend/api/controllers"
	"github.com/avelazco/labstock-backend/api/middleware"
	"github.com/avelazco/labstock-backend/internal/analytics"
	"github.com/avelazco/labstock-backend/internal/components"
	"github.com/avelazco/labstock-backend/internal/export"
	"github.com/avelazco/labstock-backend/internal/notifications"
	"github.com/avelazco/labstock-backend/internal/scanner"
	"github.com/avelazco/labstock-backend/pkg/config"
	"github.com/avelazco/labstock-backend/pkg/db"
	"github.com/avelazco/labstock-backend/pkg/enums"
	"github.com/avelazco/labstock-backend/pkg/logger"
)

// Params carries every dependency the router mounts.
type Params struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            *db.Client
	Users         middleware.UserDirectory
	Components    components.Service
	Notifications notifications.Service
	Analytics     analytics.Service
	Export        *export.Service
	Scanner       *scanner.Scanner
}

// NewRouter builds the full API surface.
func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, p.DB, logg))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	auth := middleware.Auth(cfg.JWT, p.Users, logg)

	stockKeepers := middleware.RequireRole(logg, enums.UserRoleAdmin, enums.UserRoleLabTechnician)
	consumers := middleware.RequireRole(logg, enums.UserRoleAdmin, enums.UserRoleLabTechnician, enums.UserRoleEngineer)
	adminOnly := middleware.RequireRole(logg, enums.UserRoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth)

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/components", func(r chi.Router) {
			r.Get("/", controllers.ComponentList(p.Components, logg))
			r.With(stockKeepers).Post("/", controllers.ComponentCreate(p.Components, logg))
			r.Get("/categories", controllers.ComponentCategories(p.Components, logg))
			r.Get("/locations", controllers.ComponentLocations(p.Components, logg))

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", controllers.ComponentGet(p.Components, logg))
				r.With(stockKeepers).Put("/", controllers.ComponentUpdate(p.Components, logg))
				r.With(adminOnly).Delete("/", controllers.ComponentDelete(p.Components, logg))
				r.With(stockKeepers).Post("/inward", controllers.ComponentInward(p.Components, logg))
				r.With(consumers).Post("/outward", controllers.ComponentOutward(p.Components, logg))
				r.With(adminOnly).Post("/adjust", controllers.ComponentAdjust(p.Components, logg))
				r.Get("/logs", controllers.ComponentLogs(p.Components, logg))
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.NotificationList(p.Notifications, logg))
			r.Get("/unread-count", controllers.NotificationUnreadCount(p.Notifications, logg))
			r.Post("/read-all", controllers.NotificationMarkAllRead(p.Notifications, logg))
			r.With(adminOnly).Get("/stats", controllers.NotificationStats(p.Notifications, logg))
			r.Post("/{id}/read", controllers.NotificationMarkRead(p.Notifications, logg))
			r.Delete("/{id}", controllers.NotificationDelete(p.Notifications, logg))
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/dashboard", controllers.AnalyticsDashboard(p.Analytics, logg))
			r.Get("/trends", controllers.AnalyticsTrends(p.Analytics, logg))
			r.Get("/top-components", controllers.AnalyticsTopComponents(p.Analytics, logg))
		})

		r.Route("/exports", func(r chi.Router) {
			r.Get("/components", controllers.ExportComponents(p.Export, logg))
			r.Get("/logs", controllers.ExportLogs(p.Export, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(auth, adminOnly)
		r.Post("/scanner/run", controllers.ScannerRun(p.Scanner, logg))
	})

	return r
}
