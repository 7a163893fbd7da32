package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/guttosm/cryptopulse/internal/middleware"
)

const requestTimeout = 10 * time.Second

// RouterOptions carries the optional parts of the router.
type RouterOptions struct {
	Stream       *StreamHandler // nil disables /api/v1/stream
	RateLimitRPM int            // per client IP; 0 disables limiting
}

// NewRouter creates a Gin engine with routes configured.
//
// Responsibilities:
//   - Registers global middlewares (RequestID, Logger, Recovery, ErrorHandler, RateLimiter).
//   - Adds request timeout handling (10 seconds) to the JSON endpoints.
//   - Mounts Swagger docs (/swagger/*any).
//   - Configures API v1 routes (/api/v1), including the websocket stream.
//
// Health and readiness endpoints (/healthz, /readyz) are registered in app.InitializeApp().
func NewRouter(handler *Handler, opts RouterOptions) *gin.Engine {
	router := gin.New()

	// ─── Middlewares ───────────────────────────────
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.RecoveryMiddleware(),
		middleware.ErrorHandler,
		middleware.RateLimiter(opts.RateLimitRPM),
	)

	// ─── Swagger ──────────────────────────────────
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// ─── API v1 ───────────────────────────────────
	v1 := router.Group("/api/v1")
	if opts.Stream != nil {
		// long-lived; outside the request timeout
		v1.GET("/stream", opts.Stream.Stream)
	}

	q := v1.Group("", timeout(requestTimeout))
	{
		q.GET("/summary", handler.GetSummary)
		q.GET("/metrics/daily", handler.GetDailyMetrics)
		q.GET("/assets/top", handler.GetTopAssets)
		q.GET("/users/summary", handler.GetUserSummary)
		q.GET("/patterns", handler.GetPatterns)
		q.GET("/freshness", handler.GetFreshness)
	}

	return router
}

func timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
