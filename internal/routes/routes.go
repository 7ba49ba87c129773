package routes

import (
	"expiring-cache-api/internal/handlers"
	"expiring-cache-api/internal/middleware"
	"expiring-cache-api/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the services the router needs.
type Deps struct {
	Handler     *handlers.Handler
	RateLimiter *ratelimit.CounterStore
	// RateLimit is the number of requests admitted per caller, route and window.
	RateLimit int64
	// Admins are the usernames allowed on /api/admin.
	Admins []string
}

func SetupRoutes(deps Deps) *gin.Engine {
	h := deps.Handler

	// Create a new GIN Router
	ginRouter := gin.New()
	ginRouter.Use(middleware.RequestLogger(h.Logger), gin.Recovery())

	// CORS middleware (for frontend integration)
	ginRouter.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Retry-After, X-RateLimit-Limit, X-RateLimit-Remaining")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check endpoint
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Expiring cache API is running",
		})
	})
	ginRouter.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public routes (no authentication required)
	api := ginRouter.Group("/api")
	{
		api.POST("/register", h.Register)
		api.POST("/login", h.Login)
	}

	// Protected routes (authentication and rate limiting)
	protectedRoutes := api.Group("")
	protectedRoutes.Use(
		middleware.SessionAuthMiddleware(h.Tokens, h.Sessions),
		middleware.RateLimitMiddleware(deps.RateLimiter, deps.RateLimit, h.Logger),
	)
	{
		protectedRoutes.GET("/me", h.Me)
		protectedRoutes.GET("/accounts", h.ListAccounts)
		protectedRoutes.POST("/logout", h.Logout)
		protectedRoutes.GET("/ws", h.WebSocket)
	}

	adminRoutes := protectedRoutes.Group("/admin")
	adminRoutes.Use(middleware.AdminOnlyMiddleware(h.Accounts, deps.Admins, h.Logger))
	{
		adminRoutes.POST("/flush", h.FlushCaches)
		adminRoutes.GET("/stats", h.Stats)
	}

	return ginRouter
}
