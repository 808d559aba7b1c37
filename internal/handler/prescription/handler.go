package prescription

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
)

// Service is the prescription behaviour the HTTP layer depends on.
type Service interface {
	Create(ctx context.Context, req *model.PrescriptionRequest) (*model.PrescriptionResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*model.PrescriptionResponse, error)
	List(ctx context.Context, r model.DateRange) ([]*model.PrescriptionResponse, error)
	Search(ctx context.Context, patientName string) ([]*model.PrescriptionResponse, error)
	Update(ctx context.Context, id uuid.UUID, req *model.PrescriptionRequest) (*model.PrescriptionResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DayWiseCount(ctx context.Context, r model.DateRange) ([]model.DayWiseCountResponse, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	prescriptions := r.Group("/prescription")
	{
		prescriptions.POST("", h.CreatePrescription)
		prescriptions.GET("", h.ListPrescriptions)
		prescriptions.GET("/search", h.SearchPrescriptions)
		prescriptions.GET("/report/day-wise-count", h.DayWiseCount)
		prescriptions.GET("/:id", h.GetPrescription)
		prescriptions.PUT("/:id", h.UpdatePrescription)
		prescriptions.DELETE("/:id", h.DeletePrescription)
	}
}

func (h *Handler) CreatePrescription(c *gin.Context) {
	var req model.PrescriptionRequest
	if err := handler.BindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	resp, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) GetPrescription(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ListPrescriptions(c *gin.Context) {
	dates, err := handler.ParseDateRange(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp, err := h.service.List(c.Request.Context(), dates)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) SearchPrescriptions(c *gin.Context) {
	resp, err := h.service.Search(c.Request.Context(), c.Query("patientName"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) UpdatePrescription(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req model.PrescriptionRequest
	if err := handler.BindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	resp, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) DeletePrescription(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) DayWiseCount(c *gin.Context) {
	dates, err := handler.ParseDateRange(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp, err := h.service.DayWiseCount(c.Request.Context(), dates)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
