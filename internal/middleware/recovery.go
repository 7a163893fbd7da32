package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/cryptopulse/internal/domain/dto"
	"github.com/guttosm/cryptopulse/internal/logger"
)

// RecoveryMiddleware returns a Gin middleware that recovers from panics in
// dashboard handlers, logs the stack trace and answers 500.
//
// Behavior:
//   - The panic value and stack are logged with the request id and route.
//   - The client receives a generic dto.ErrorResponse; the panic value is not echoed.
//   - http.ErrAbortHandler is re-raised so net/http can drop the connection.
//   - When the response was already started (e.g. a hijacked websocket), nothing is written.
//
// Example:
//
//	router := gin.New()
//	router.Use(middleware.RecoveryMiddleware())
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if err, ok := r.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(r)
			}

			logger.L().Error().
				Str("request_id", toString(c.Value(RequestIDKey))).
				Str("route", c.FullPath()).
				Str("panic", fmt.Sprintf("%v", r)).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponse("internal server error", nil))
		}()

		c.Next()
	}
}
