package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	audithttp "github.com/districthq/districthq/internal/audit/http"
	"github.com/districthq/districthq/internal/auth"
	"github.com/districthq/districthq/internal/authz"
	"github.com/districthq/districthq/internal/observability"
	"github.com/districthq/districthq/internal/rbac"
	"github.com/districthq/districthq/internal/shared"
	"github.com/districthq/districthq/internal/users"
	"github.com/districthq/districthq/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	Metrics        *observability.Metrics
	Gate           *authz.Gate

	AuthHandler  *auth.Handler
	UsersHandler *users.Handler
	RolesHandler *rbac.Handler
	AuditHandler *audithttp.Handler
	JobsHandler  *jobs.Handler

	Pool *pgxpool.Pool
}

// NewRouter constructs the chi.Router with platform defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if params.Pool != nil {
			if err := params.Pool.Ping(r.Context()); err != nil {
				params.Logger.Error("readiness ping", slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})
	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Route("/auth", func(r chi.Router) {
		params.AuthHandler.MountRoutes(r)
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(params.Gate.Require(authz.Requirements{RequireAuthenticated: true}))
		params.UsersHandler.MountRoutes(r)
	})

	r.Route("/roles", func(r chi.Router) {
		r.Use(params.Gate.Require(authz.Requirements{
			RequireStaffRole: true,
			AnyCapability:    []rbac.Capability{rbac.CapRoleManage, rbac.CapPermManage},
		}))
		params.RolesHandler.MountRoutes(r)
	})

	r.Route("/audit", func(r chi.Router) {
		r.Use(params.Gate.Require(authz.Requirements{
			RequireStaffRole:  true,
			RequireCapability: []rbac.Capability{rbac.CapOpsLogs},
		}))
		params.AuditHandler.MountRoutes(r)
	})

	if params.JobsHandler != nil {
		r.Route("/jobs", func(r chi.Router) {
			r.Use(params.Gate.Require(authz.Requirements{
				RequireStaffRole:  true,
				RequireCapability: []rbac.Capability{rbac.CapOpsMonitoring},
			}))
			params.JobsHandler.MountRoutes(r)
		})
	}

	return r
}
