package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// SecurityHeaders sets the response headers every API answer carries. The
// API only serves JSON, so nothing may be framed, sniffed or cached.
type SecurityHeaders struct {
	HSTSMaxAge int
}

func DefaultSecurityHeaders() SecurityHeaders {
	return SecurityHeaders{HSTSMaxAge: 31536000}
}

func (s SecurityHeaders) Handler() gin.HandlerFunc {
	headers := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Referrer-Policy":         "no-referrer",
		"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
		"Cache-Control":           "no-store",
	}
	if s.HSTSMaxAge > 0 {
		headers["Strict-Transport-Security"] = "max-age=" + strconv.Itoa(s.HSTSMaxAge) + "; includeSubDomains"
	}

	return func(c *gin.Context) {
		for k, v := range headers {
			c.Header(k, v)
		}
		c.Next()
	}
}
