package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gestion-ambientes/ambientes-backend/api/controllers"
	"github.com/gestion-ambientes/ambientes-backend/api/middleware"
	"github.com/gestion-ambientes/ambientes-backend/internal/checkitems"
	"github.com/gestion-ambientes/ambientes-backend/internal/checks"
	"github.com/gestion-ambientes/ambientes-backend/internal/notifications"
	"github.com/gestion-ambientes/ambientes-backend/pkg/config"
	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
	"github.com/gestion-ambientes/ambientes-backend/pkg/logger"
	"github.com/gestion-ambientes/ambientes-backend/pkg/metrics"
)

// Deps are the collaborators the HTTP surface is wired to.
type Deps struct {
	DB            controllers.Pinger
	Redis         controllers.Pinger
	Idempotency   middleware.RequestStore
	Checks        checks.Service
	CheckItems    checkitems.Service
	Notifications notifications.Service
	HTTPMetrics   *metrics.HTTPMetrics
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
}

var (
	initiators  = []enums.UserRole{enums.UserRoleStudent, enums.UserRoleInstructor, enums.UserRoleSupervisor}
	confirmers  = []enums.UserRole{enums.UserRoleInstructor, enums.UserRoleSupervisor}
	overriders  = []enums.UserRole{enums.UserRoleSupervisor, enums.UserRoleAdmin, enums.UserRoleAdminGeneral}
	approvers   = []enums.UserRole{enums.UserRoleSupervisor}
	itemWriters = initiators
)

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Recoverer(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Idempotency, cfg.Workflow.IdempotencyKeyTTL, logg))

		r.Route("/inventory-checks", func(r chi.Router) {
			r.Get("/", controllers.ListChecks(deps.Checks, logg))
			r.Get("/by-schedule", controllers.ChecksBySchedule(deps.Checks, logg))
			r.Get("/schedule-stats", controllers.CheckScheduleStats(deps.Checks, logg))
			r.Get("/stats", controllers.CheckStats(deps.Checks, logg))
			r.With(middleware.RequireRoles(logg, initiators...)).Post("/", controllers.InitiateCheck(deps.Checks, logg))
			r.With(middleware.RequireRoles(logg, initiators...)).Post("/by-schedule", controllers.InitiateCheckBySchedule(deps.Checks, logg))

			r.Route("/{checkId}", func(r chi.Router) {
				r.Get("/", controllers.GetCheck(deps.Checks, logg))
				r.Get("/reviews", controllers.ListCheckReviews(deps.Checks, logg))
				r.With(middleware.RequireRoles(logg, confirmers...)).Put("/confirm", controllers.ConfirmCheck(deps.Checks, logg))
				r.With(middleware.RequireRoles(logg, overriders...)).Put("/assign-role", controllers.AssignCheckRole(deps.Checks, logg))
				r.With(middleware.RequireRoles(logg, approvers...)).Put("/supervisor-approve", controllers.SupervisorApproveCheck(deps.Checks, logg))
			})
		})

		r.Route("/inventory-check-items", func(r chi.Router) {
			r.Get("/", controllers.ListCheckItems(deps.CheckItems, logg))
			r.With(middleware.RequireRoles(logg, itemWriters...)).Post("/", controllers.RecordCheckItem(deps.CheckItems, logg))
			r.With(middleware.RequireRoles(logg, itemWriters...)).Post("/batch", controllers.RecordCheckItemBatch(deps.CheckItems, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
		})
	})

	return r
}
