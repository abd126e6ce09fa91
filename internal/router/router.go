package router

import (
	"context"
	"time"

	"mypostelma/internal/config"
	"mypostelma/internal/handler"
	"mypostelma/internal/infra"
	"mypostelma/internal/middleware"
	"mypostelma/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the already-built collaborators the HTTP layer needs.
// Redis and Breaker may be nil.
type Deps struct {
	DB        *gorm.DB
	Redis     *redis.Client
	Breaker   *infra.CircuitBreaker
	Sessions  service.SessionService
	Ledger    service.LedgerService
	Locations service.LocationService
}

// New returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigin))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(ctx, cfg.RateLimitPerMinute, time.Minute))

	caisseH := handler.NewCaisseHandler(deps.Sessions, deps.Ledger)
	locationsH := handler.NewLocationsHandler(deps.Locations)

	// Public
	r.GET("/health", handler.Health(deps.DB, deps.Redis, deps.Breaker))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	anyRole := middleware.RequireRole(middleware.RoleCashier, middleware.RoleSupervisor, middleware.RoleAdmin)
	supervisors := middleware.RequireRole(middleware.RoleSupervisor, middleware.RoleAdmin)

	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		sessions := v1.Group("/caisse/sessions")
		{
			sessions.POST("", anyRole, caisseH.Open)
			sessions.GET("", supervisors, caisseH.History)
			sessions.GET("/:id", anyRole, caisseH.Report)
			sessions.GET("/:id/statistics", anyRole, caisseH.Statistics)
			sessions.POST("/:id/movements", anyRole, caisseH.RecordMovement)
			sessions.GET("/:id/movements", anyRole, caisseH.ListMovements)
			sessions.POST("/:id/close", anyRole, caisseH.Close)
			sessions.POST("/:id/annotations", supervisors, caisseH.Annotate)
			sessions.GET("/:id/export", supervisors, caisseH.Export)
		}

		locations := v1.Group("/locations")
		{
			locations.GET("", anyRole, locationsH.List)
			locations.GET("/:id/active-session", anyRole, caisseH.ActiveSession)
			locations.POST("", middleware.RequireRole(middleware.RoleAdmin), locationsH.Create)
			locations.PATCH("/:id", middleware.RequireRole(middleware.RoleAdmin), locationsH.SetActive)
		}
	}

	// Swagger UI, outside production only
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
