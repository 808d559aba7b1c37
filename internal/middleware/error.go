package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

// ErrorHandler renders the last error a handler attached with c.Error as the
// standard envelope. Server-side failures are logged with their cause.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		lastErr := c.Errors.Last().Err
		body := httputil.NewErrorBody(lastErr, c.Request.URL.Path, httputil.Now(c))

		event := log.Warn()
		if body.Status >= 500 {
			event = log.Error()
		}
		event.
			Err(lastErr).
			Str("request_id", c.GetString(ContextRequestID)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", body.Status).
			Msg("Request error")

		if c.Writer.Written() {
			return
		}
		c.AbortWithStatusJSON(body.Status, body)
	}
}
