package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	accapp "github.com/schoolgrants/backend/internal/application/accountability"
	budgetapp "github.com/schoolgrants/backend/internal/application/budget"
	"github.com/schoolgrants/backend/internal/domain/budget"
	"github.com/schoolgrants/backend/internal/interfaces/http/dto"
	"github.com/schoolgrants/backend/internal/interfaces/http/middleware"
)

// BudgetService is the budget use case surface
type BudgetService interface {
	Submit(ctx context.Context, req budgetapp.SubmitBudgetRequest) (*budget.Budget, error)
	Get(ctx context.Context, id uuid.UUID) (*budget.Budget, error)
	Eligibility(ctx context.Context, id uuid.UUID) (*budgetapp.EligibilityResponse, error)
}

// BudgetReviewer converts a budget into an accountability record
type BudgetReviewer interface {
	ReviewBudget(ctx context.Context, budgetID uuid.UUID, reviewer string) (*accapp.ReviewResult, error)
}

// BudgetHandler serves /budget
type BudgetHandler struct {
	BaseHandler
	service  BudgetService
	reviewer BudgetReviewer
}

// NewBudgetHandler creates a new BudgetHandler
func NewBudgetHandler(service BudgetService, reviewer BudgetReviewer) *BudgetHandler {
	return &BudgetHandler{service: service, reviewer: reviewer}
}

// Submit handles POST /budget
func (h *BudgetHandler) Submit(c *gin.Context) {
	var req budgetapp.SubmitBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	b, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, b)
}

// Get handles GET /budget/:id
func (h *BudgetHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	b, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, b)
}

// Eligibility handles GET /budget/:id/eligibility
func (h *BudgetHandler) Eligibility(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.service.Eligibility(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// reviewRequest optionally names the reviewer; the token actor is used otherwise
type reviewRequest struct {
	ReviewedBy string `json:"reviewedBy" binding:"max=200"`
}

// Review handles POST /budget/:id/review. A new record answers 201 with the
// record, an existing one 200 with only its id.
func (h *BudgetHandler) Review(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req reviewRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}
	reviewer := req.ReviewedBy
	if reviewer == "" {
		reviewer = middleware.GetActor(c)
	}

	result, err := h.reviewer.ReviewBudget(c.Request.Context(), id, reviewer)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.Created {
		h.Created(c, result)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"accountabilityId": result.AccountabilityID}))
}
