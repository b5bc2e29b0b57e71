package http

import (
	"log/slog"
	"time"

	"github.com/TharinduDesh/incidenthub/internal/auth"
	"github.com/TharinduDesh/incidenthub/internal/cache"
	"github.com/TharinduDesh/incidenthub/internal/config"
	"github.com/TharinduDesh/incidenthub/internal/domain/user"
	"github.com/TharinduDesh/incidenthub/internal/http/handlers"
	"github.com/TharinduDesh/incidenthub/internal/http/middlewares"
	"github.com/TharinduDesh/incidenthub/internal/observability"
	"github.com/TharinduDesh/incidenthub/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxRequestBody = 1 << 20 // 1 MiB

// NewRouter wires the full HTTP surface: middleware chain, auth
// routes, incident routes and the admin group.
func NewRouter(
	cfg config.Config,
	log *slog.Logger,
	pool *pgxpool.Pool,
	cacheStore cache.Store,
	prom *observability.Prom,
) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.MaxBodyBytes(maxRequestBody))
	r.Use(otelgin.Middleware("incidenthub-api"))
	r.Use(prom.HTTPMiddleware())

	// repositories
	usersRepo := postgres.NewUsersRepo(pool, prom)
	incidentsRepo := postgres.NewIncidentsRepo(pool, prom)
	jobsRepo := postgres.NewJobsRepo(pool, prom)
	onboarding := postgres.NewOnboarding(pool, usersRepo, jobsRepo)

	// session plumbing
	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.SessionTTL())
	session := middlewares.NewSessionMiddleware(jwtManager, cfg.CookieName)

	// handlers
	authHandler := handlers.NewAuthHandler(usersRepo, onboarding, jobsRepo, jwtManager, cfg, log)
	incidentsHandler := handlers.NewIncidentsHandler(incidentsRepo, cacheStore, log)
	adminUsersHandler := handlers.NewAdminUsersHandler(usersRepo, log)
	profileHandler := handlers.NewProfileHandler(usersRepo, log)
	dashboardHandler := handlers.NewDashboardHandler(incidentsRepo, usersRepo, cacheStore, log)
	adminJobsHandler := handlers.NewAdminJobsHandler(jobsRepo)

	// health + metrics
	deps := map[string]handlers.Pinger{"db": pool}
	if p, ok := cacheStore.(handlers.Pinger); ok {
		deps["cache"] = p
	}
	health := handlers.NewHealthHandler(deps)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)
	r.GET("/metrics", prom.Handler())

	// Login and the recovery endpoints are brute-forceable, keep a
	// per-IP window on them.
	authLimiter := middlewares.NewRateLimiter(20, time.Minute)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	{
		limited := authLimiter.Middleware(middlewares.KeyByIP)

		authGroup.POST("/signup", limited, authHandler.SignUp)
		authGroup.POST("/verify-email", limited, authHandler.VerifyEmail)
		authGroup.POST("/login", limited, authHandler.Login)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.POST("/forgot-password", limited, authHandler.ForgotPassword)
		authGroup.POST("/reset-password/:token", limited, authHandler.ResetPassword)
		authGroup.GET("/check-auth", session.RequireSession(), authHandler.CheckAuth)
	}

	incidents := api.Group("/incidents", session.RequireSession())
	{
		incidents.POST("", incidentsHandler.CreateIncident)
		incidents.GET("", incidentsHandler.ListIncidents)
		incidents.GET("/:id", incidentsHandler.GetIncidentByID)
		incidents.PATCH("/:id/status", session.RequireRole(user.RoleAdmin), incidentsHandler.UpdateIncidentStatus)
		incidents.PATCH("/:id/assignment", session.RequireRole(user.RoleAdmin), incidentsHandler.UpdateIncidentAssignment)
	}

	api.PUT("/users/me/profile", session.RequireSession(), profileHandler.UpdateProfile)

	admin := api.Group("/admin", session.RequireSession(), session.RequireRole(user.RoleAdmin))
	{
		admin.GET("/users", adminUsersHandler.ListUsers)
		admin.POST("/users", adminUsersHandler.CreateUser)
		admin.PUT("/users/:id", adminUsersHandler.UpdateUser)
		admin.DELETE("/users/:id", adminUsersHandler.DeleteUser)

		admin.GET("/dashboard", dashboardHandler.GetDashboard)
		admin.GET("/dashboard-stats", dashboardHandler.GetDashboardStats)

		admin.GET("/jobs", adminJobsHandler.List)
		admin.POST("/jobs/:id/retry", adminJobsHandler.Retry)
	}

	return r
}
