package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/mhartman/cadence/internal/api/handlers"
	"github.com/mhartman/cadence/internal/api/middleware"
	"github.com/mhartman/cadence/internal/auth"
	"github.com/mhartman/cadence/internal/database/models"
	"github.com/mhartman/cadence/internal/tenant"
	"github.com/mhartman/cadence/pkg/config"
	"github.com/mhartman/cadence/pkg/crypto"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB             *gorm.DB
	TenantDB       *tenant.DB
	Redis          *redis.Client
	Logger         *slog.Logger
	JWTService     *auth.JWTService
	AuthService    *auth.Service
	Encryptor      *crypto.Encryptor
	AsynqClient    *asynq.Client
	Session        config.SessionConfig
	Modules        []string // process-wide module registry
	AllowNoTenant  bool     // dev/test only, see config.Validate
	AllowedOrigins []string // CORS allowed origins
	RateLimitReqs  int      // Rate limit requests per window
	RateLimitSecs  int      // Rate limit window in seconds
}

// moduleMounted reports whether the process registry includes name. This
// is the mount-time half of module gating; middleware.RequireModule is the
// request-time half.
func (cfg *RouterConfig) moduleMounted(name string) bool {
	for _, m := range cfg.Modules {
		if m == name {
			return true
		}
	}
	return false
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	// Rate limiting - applied globally to prevent abuse
	if cfg.RateLimitReqs > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitReqs, cfg.RateLimitSecs))
	}

	// CORS - restrict to configured origins, or allow all in development
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		// Default to localhost for development - configure in production
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.TenantHeader},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService, cfg.Session, cfg.JWTService.Expiry())
	tenantHandler := handlers.NewTenantHandler()
	projectHandler := handlers.NewProjectHandler(cfg.TenantDB)
	taskHandler := handlers.NewTaskHandler(cfg.TenantDB)
	clientHandler := handlers.NewClientHandler(cfg.TenantDB)
	crmHandler := handlers.NewCRMHandler(cfg.TenantDB)
	riskHandler := handlers.NewRiskHandler(cfg.TenantDB)
	integrationHandler := handlers.NewIntegrationHandler(cfg.TenantDB, cfg.Encryptor, cfg.AsynqClient)
	digestHandler := handlers.NewDigestHandler(cfg.TenantDB)
	adminHandler := handlers.NewAdminHandler(cfg.TenantDB)

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth endpoints
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)

		// Authenticated but tenant-independent routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTService, cfg.DB))

			r.Get("/me", authHandler.Me)
			r.Get("/memberships", authHandler.Memberships)

			// Platform administration: explicitly outside tenant scope.
			r.Get("/admin/users", adminHandler.ListUsers)
		})

		// Tenant-scoped routes: everything below runs with an established
		// tenant context and never sees the raw database handle.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTService, cfg.DB))
			r.Use(middleware.ResolveTenant(cfg.DB, cfg.AllowNoTenant, cfg.Logger))

			r.Get("/tenant", tenantHandler.Current)
			r.Get("/tenant/modules", tenantHandler.Modules)

			if cfg.moduleMounted(models.ModuleProjects) {
				r.Route("/projects", func(r chi.Router) {
					r.Use(middleware.RequireModule(models.ModuleProjects))
					r.Get("/", projectHandler.List)
					r.Post("/", projectHandler.Create)
					r.Get("/{id}", projectHandler.Get)
					r.With(middleware.RequireRole(models.RoleMember)).Put("/{id}", projectHandler.Update)
					r.With(middleware.RequireRole(models.RoleMember)).Delete("/{id}", projectHandler.Delete)
				})

				r.Route("/tasks", func(r chi.Router) {
					r.Use(middleware.RequireModule(models.ModuleProjects))
					r.Get("/", taskHandler.List)
					r.With(middleware.RequireRole(models.RoleMember)).Post("/", taskHandler.Create)
					r.With(middleware.RequireRole(models.RoleMember)).Put("/{id}/status", taskHandler.UpdateStatus)
					r.With(middleware.RequireRole(models.RoleMember)).Delete("/{id}", taskHandler.Delete)
				})
			}

			if cfg.moduleMounted(models.ModuleClients) {
				r.Route("/clients", func(r chi.Router) {
					r.Use(middleware.RequireModule(models.ModuleClients))
					r.Get("/", clientHandler.List)
					r.With(middleware.RequireRole(models.RoleMember)).Post("/", clientHandler.Create)
					r.Get("/{id}", clientHandler.Get)
					r.With(middleware.RequireRole(models.RoleMember)).Put("/{id}", clientHandler.Update)
					r.With(middleware.RequireRole(models.RoleMember)).Delete("/{id}", clientHandler.Delete)
				})
			}

			if cfg.moduleMounted(models.ModuleCRM) {
				r.Route("/crm", func(r chi.Router) {
					r.Use(middleware.RequireModule(models.ModuleCRM))
					r.Get("/accounts", crmHandler.ListAccounts)
					r.With(middleware.RequireRole(models.RoleMember)).Post("/accounts", crmHandler.CreateAccount)
					r.Get("/accounts/{id}", crmHandler.GetAccount)
					r.With(middleware.RequireRole(models.RoleMember)).Post("/opportunities", crmHandler.CreateOpportunity)
					r.With(middleware.RequireRole(models.RoleMember)).Put("/opportunities/{id}/stage", crmHandler.UpdateOpportunityStage)
					r.Get("/pipeline", crmHandler.Pipeline)
				})
			}

			if cfg.moduleMounted(models.ModuleRisks) {
				r.Route("/risks", func(r chi.Router) {
					r.Use(middleware.RequireModule(models.ModuleRisks))
					r.Get("/", riskHandler.List)
					r.With(middleware.RequireRole(models.RoleMember)).Post("/", riskHandler.Create)
					r.Get("/{id}", riskHandler.Get)
					r.With(middleware.RequireRole(models.RoleMember)).Put("/{id}/status", riskHandler.UpdateStatus)
					r.With(middleware.RequireRole(models.RoleMember)).Delete("/{id}", riskHandler.Delete)
				})
			}

			if cfg.moduleMounted(models.ModuleForecasting) {
				r.Route("/integrations", func(r chi.Router) {
					r.Use(middleware.RequireModule(models.ModuleForecasting))
					r.Use(middleware.RequireRole(models.RoleAdmin))
					r.Get("/", integrationHandler.List)
					r.Post("/", integrationHandler.Create)
					r.Delete("/{id}", integrationHandler.Delete)
					r.Post("/{id}/refresh", integrationHandler.RefreshForecast)
				})

				r.Route("/digests", func(r chi.Router) {
					r.Use(middleware.RequireModule(models.ModuleForecasting))
					r.Get("/", digestHandler.List)
					r.With(middleware.RequireRole(models.RoleAdmin)).Post("/", digestHandler.Create)
					r.With(middleware.RequireRole(models.RoleAdmin)).Delete("/{id}", digestHandler.Delete)
				})
			}
		})
	})

	return &Router{r}
}

var _ http.Handler = (*Router)(nil)
