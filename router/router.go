// api/router/router.go

package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/dev-mohitbeniwal/gatekeeper/api/config"
	"github.com/dev-mohitbeniwal/gatekeeper/api/controller"
	"github.com/dev-mohitbeniwal/gatekeeper/api/middleware"
	"github.com/dev-mohitbeniwal/gatekeeper/api/service"
)

// SetupRouter wires the middleware chain in request order: request id,
// logging, recovery, rate limiting, authentication, tenant resolution and
// auditing. API routes are additionally guarded by the decision engine.
func SetupRouter(
	cfg *config.Configuration,
	controllers *controller.Controllers,
	services *service.Services,
	redisClient *redis.Client,
) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(gin.Recovery())
	if redisClient != nil {
		router.Use(middleware.RateLimiter(redisClient, cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	router.Use(middleware.Authenticate(cfg.Auth.JWTSecret))
	router.Use(middleware.TenantResolver(services.Tenant))
	audits := middleware.NewAuditRoutes()
	router.Use(middleware.AuditTrail(services.Audit, cfg.Server.APIPrefix, audits))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group(cfg.Server.APIPrefix)
	api.Use(middleware.AccessGuard(services.Access))

	controllers.Policy.RegisterRoutes(api, audits)
	controllers.Audit.RegisterRoutes(api, audits)

	return router
}
