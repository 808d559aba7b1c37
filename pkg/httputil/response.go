package httputil

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/pkg/errors"
)

const (
	timestampLayout = "2006-01-02 15:04:05"
	contextClock    = "httputil.clock"
)

// SetClock makes every envelope written for this request take its timestamp
// from now.
func SetClock(c *gin.Context, now func() time.Time) {
	c.Set(contextClock, now)
}

// Now reads the request clock installed by SetClock, falling back to the
// wall clock.
func Now(c *gin.Context) time.Time {
	if v, ok := c.Get(contextClock); ok {
		if now, ok := v.(func() time.Time); ok {
			return now()
		}
	}
	return time.Now()
}

// ErrorBody is the envelope every failed request is answered with.
type ErrorBody struct {
	Timestamp string   `json:"timestamp"`
	Status    int      `json:"status"`
	Error     string   `json:"error"`
	Message   string   `json:"message"`
	Path      string   `json:"path"`
	Errors    []string `json:"errors"`
}

// NewErrorBody maps err onto the envelope. Errors outside the application
// taxonomy are reported as unexpected without leaking their text.
func NewErrorBody(err error, path string, now time.Time) ErrorBody {
	appErr, ok := errors.As(err)
	if !ok {
		appErr = errors.Unexpected("An unexpected error occurred", err)
	}

	fieldErrors := appErr.FieldErrors
	if fieldErrors == nil {
		fieldErrors = []string{}
	}

	return ErrorBody{
		Timestamp: now.Format(timestampLayout),
		Status:    appErr.StatusCode(),
		Error:     appErr.Label(),
		Message:   appErr.Message,
		Path:      path,
		Errors:    fieldErrors,
	}
}

// RespondWithError aborts the request with the error envelope.
func RespondWithError(c *gin.Context, err error) {
	body := NewErrorBody(err, c.Request.URL.Path, Now(c))
	c.AbortWithStatusJSON(body.Status, body)
}

// RespondWithStatus aborts with an envelope for a transport-level failure
// that has no application error behind it.
func RespondWithStatus(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorBody{
		Timestamp: Now(c).Format(timestampLayout),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Path:      c.Request.URL.Path,
		Errors:    []string{},
	})
}
