package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/guttosm/cryptopulse/internal/logger"
)

// healthPaths are polled by orchestrators; they are logged at debug level.
var healthPaths = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
}

// RequestLogger is a Gin middleware that logs one structured line per
// dashboard request.
//
// Fields: request_id, method, route (the registered pattern, or the raw path
// when no route matched), query, status, bytes, latency_ms, client_ip and
// the last error attached with c.Error. The level follows the status: 5xx
// is error, 4xx is warn, health checks are debug, everything else info.
//
// Usage:
//
//	router := gin.New()
//	router.Use(middleware.RequestID(), middleware.RequestLogger())
//
// Example log output:
//
//	{"level":"info","request_id":"123e4567-...","method":"GET","route":"/api/v1/summary","query":"symbol=BTC-USD","status":200,"latency_ms":15,"message":"http_request"}
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = path
		}
		status := c.Writer.Status()

		ev := logger.L().WithLevel(levelFor(status, path)).
			Str("request_id", toString(c.Value(RequestIDKey))).
			Str("method", c.Request.Method).
			Str("route", route).
			Str("query", c.Request.URL.RawQuery).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Int64("latency_ms", time.Since(start).Milliseconds()).
			Str("client_ip", c.ClientIP())
		if last := c.Errors.Last(); last != nil {
			ev = ev.Str("error", last.Error())
		}
		ev.Msg("http_request")
	}
}

func levelFor(status int, path string) zerolog.Level {
	switch {
	case status >= 500:
		return zerolog.ErrorLevel
	case status >= 400:
		return zerolog.WarnLevel
	case healthPaths[path]:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
