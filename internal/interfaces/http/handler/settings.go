package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	capapp "github.com/schoolgrants/backend/internal/application/capitation"
	"github.com/schoolgrants/backend/internal/domain/capitation"
	"github.com/schoolgrants/backend/internal/interfaces/http/middleware"
)

// SettingsService is the capitation settings use case surface
type SettingsService interface {
	List(ctx context.Context) ([]capapp.SettingsResponse, error)
	Get(ctx context.Context, academicYear int) (*capapp.SettingsResponse, error)
	Upsert(ctx context.Context, academicYear int, req capapp.UpsertSettingsRequest, updatedBy string) (*capapp.SettingsResponse, error)
	Delete(ctx context.Context, academicYear int) error
	Resolve(ctx context.Context, academicYear int, category, schoolType string) (*capitation.ResolvedRule, error)
}

// SettingsHandler serves /settings/capitation
type SettingsHandler struct {
	BaseHandler
	service SettingsService
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(service SettingsService) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// List handles GET /settings/capitation
func (h *SettingsHandler) List(c *gin.Context) {
	settings, err := h.service.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settings)
}

// Get handles GET /settings/capitation/:academicYear
func (h *SettingsHandler) Get(c *gin.Context) {
	year, ok := h.intParam(c, "academicYear")
	if !ok {
		return
	}
	settings, err := h.service.Get(c.Request.Context(), year)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settings)
}

// Upsert handles PUT /settings/capitation/:academicYear
func (h *SettingsHandler) Upsert(c *gin.Context) {
	year, ok := h.intParam(c, "academicYear")
	if !ok {
		return
	}
	var req capapp.UpsertSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	settings, err := h.service.Upsert(c.Request.Context(), year, req, middleware.GetActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settings)
}

// Delete handles DELETE /settings/capitation/:academicYear
func (h *SettingsHandler) Delete(c *gin.Context) {
	year, ok := h.intParam(c, "academicYear")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), year); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Resolve handles GET /settings/capitation/:academicYear/resolve
func (h *SettingsHandler) Resolve(c *gin.Context) {
	year, ok := h.intParam(c, "academicYear")
	if !ok {
		return
	}
	rule, err := h.service.Resolve(c.Request.Context(), year, c.Query("category"), c.Query("schoolType"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rule)
}
