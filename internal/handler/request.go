package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// BindJSON decodes the request body into obj. Any decoding failure is
// reported as invalid input; field rules are checked later by the services.
func BindJSON(c *gin.Context, obj interface{}) error {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return nil
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return apperrors.BadInput("Request body is too large", err)
	case errors.Is(err, io.EOF):
		return apperrors.BadInput("Request body is required", err)
	default:
		return apperrors.BadInput("Malformed request body", err)
	}
}

// ParseID reads a uuid path parameter.
func ParseID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperrors.ValidationFailed([]string{name + ": must be a valid UUID"})
	}
	return id, nil
}

// ParseDateRange reads the optional startDate and endDate query parameters.
// Absent or empty parameters leave the bound nil.
func ParseDateRange(c *gin.Context) (model.DateRange, error) {
	var (
		r          model.DateRange
		violations []string
	)

	parse := func(name string) *model.Date {
		raw := strings.TrimSpace(c.Query(name))
		if raw == "" {
			return nil
		}
		d, err := model.ParseDate(raw)
		if err != nil {
			violations = append(violations, name+": must be a date in yyyy-MM-dd format")
			return nil
		}
		return &d
	}

	r.Start = parse("startDate")
	r.End = parse("endDate")
	if len(violations) > 0 {
		return model.DateRange{}, apperrors.ValidationFailed(violations)
	}
	return r, nil
}
