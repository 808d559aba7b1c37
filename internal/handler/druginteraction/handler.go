package druginteraction

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Service interface {
	Lookup(ctx context.Context, rxcui string) (json.RawMessage, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/drug-interaction", h.GetDrugInteraction)
}

// GetDrugInteraction relays the upstream document unchanged.
func (h *Handler) GetDrugInteraction(c *gin.Context) {
	body, err := h.service.Lookup(c.Request.Context(), c.Query("rxcui"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
