package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	accapp "github.com/schoolgrants/backend/internal/application/accountability"
	"github.com/schoolgrants/backend/internal/domain/accountability"
	"github.com/schoolgrants/backend/internal/domain/shared"
	"github.com/schoolgrants/backend/internal/interfaces/http/middleware"
)

// TrancheService is the tranche lifecycle use case surface
type TrancheService interface {
	Get(ctx context.Context, id uuid.UUID) (*accountability.Accountability, error)
	List(ctx context.Context, q accapp.ListQuery) (*shared.Paginated[accountability.Accountability], error)
	Approve(ctx context.Context, id uuid.UUID, req accapp.ApproveTrancheRequest, actor string) (*accountability.Tranche, error)
	Disburse(ctx context.Context, id uuid.UUID, req accapp.DisburseTrancheRequest, actor string) (*accountability.Tranche, error)
	RecordReturnedFunds(ctx context.Context, id uuid.UUID, req accapp.ReturnedFundsRequest, actor string) (*accountability.Tranche, error)
	RecordHeldFunds(ctx context.Context, id uuid.UUID, req accapp.HeldFundsRequest, actor string) (*accountability.Tranche, error)
	RecordRevenue(ctx context.Context, id uuid.UUID, req accapp.FlowRequest) (*accountability.Tranche, error)
	RecordExpenditure(ctx context.Context, id uuid.UUID, req accapp.FlowRequest) (*accountability.Tranche, error)
}

// LedgerService is the accounting entry use case surface
type LedgerService interface {
	AddEntry(ctx context.Context, id uuid.UUID, req accapp.AddEntryRequest, actor string) (*accountability.AccountingEntry, error)
	UpdateEntry(ctx context.Context, id, entryID uuid.UUID, req accapp.UpdateEntryRequest) (*accountability.AccountingEntry, error)
	DeleteEntry(ctx context.Context, id, entryID uuid.UUID, trancheName string) error
}

// ReceiptService issues presigned receipt URLs
type ReceiptService interface {
	RequestUpload(ctx context.Context, id, entryID uuid.UUID, req accapp.ReceiptUploadRequest) (*accapp.ReceiptURLResponse, error)
	DownloadURL(ctx context.Context, id, entryID uuid.UUID, trancheName string) (*accapp.ReceiptURLResponse, error)
}

// SummaryService computes financial summaries
type SummaryService interface {
	Calculate(ctx context.Context, id uuid.UUID, academicYear int) (*accountability.FinancialSummary, error)
	UpdateStored(ctx context.Context, id uuid.UUID) (*accountability.FinancialSummary, error)
}

// AccountabilityHandler serves /accountability
type AccountabilityHandler struct {
	BaseHandler
	tranches TrancheService
	ledger   LedgerService
	receipts ReceiptService
	summary  SummaryService
}

// NewAccountabilityHandler creates a new AccountabilityHandler
func NewAccountabilityHandler(tranches TrancheService, ledger LedgerService, receipts ReceiptService, summary SummaryService) *AccountabilityHandler {
	return &AccountabilityHandler{
		tranches: tranches,
		ledger:   ledger,
		receipts: receipts,
		summary:  summary,
	}
}

// List handles GET /accountability
func (h *AccountabilityHandler) List(c *gin.Context) {
	var q accapp.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	page, err := h.tranches.List(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Get handles GET /accountability/:id
func (h *AccountabilityHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	record, err := h.tranches.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, record)
}

// bindTranche decodes the body of a tranche mutation and returns the record id
func bindTranche[T any](h *AccountabilityHandler, c *gin.Context, req *T) (uuid.UUID, bool) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return uuid.Nil, false
	}
	if err := c.ShouldBindJSON(req); err != nil {
		h.BindError(c, err)
		return uuid.Nil, false
	}
	return id, true
}

// respondTranche writes the updated tranche or the error
func (h *AccountabilityHandler) respondTranche(c *gin.Context, t *accountability.Tranche, err error) {
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, t)
}

// Approve handles PATCH /accountability/:id/approve
func (h *AccountabilityHandler) Approve(c *gin.Context) {
	var req accapp.ApproveTrancheRequest
	id, ok := bindTranche(h, c, &req)
	if !ok {
		return
	}
	t, err := h.tranches.Approve(c.Request.Context(), id, req, middleware.GetActor(c))
	h.respondTranche(c, t, err)
}

// Disburse handles PATCH /accountability/:id/disburse
func (h *AccountabilityHandler) Disburse(c *gin.Context) {
	var req accapp.DisburseTrancheRequest
	id, ok := bindTranche(h, c, &req)
	if !ok {
		return
	}
	t, err := h.tranches.Disburse(c.Request.Context(), id, req, middleware.GetActor(c))
	h.respondTranche(c, t, err)
}

// ReturnedFunds handles PATCH /accountability/:id/returned-funds
func (h *AccountabilityHandler) ReturnedFunds(c *gin.Context) {
	var req accapp.ReturnedFundsRequest
	id, ok := bindTranche(h, c, &req)
	if !ok {
		return
	}
	t, err := h.tranches.RecordReturnedFunds(c.Request.Context(), id, req, middleware.GetActor(c))
	h.respondTranche(c, t, err)
}

// HeldFunds handles PATCH /accountability/:id/held-funds
func (h *AccountabilityHandler) HeldFunds(c *gin.Context) {
	var req accapp.HeldFundsRequest
	id, ok := bindTranche(h, c, &req)
	if !ok {
		return
	}
	t, err := h.tranches.RecordHeldFunds(c.Request.Context(), id, req, middleware.GetActor(c))
	h.respondTranche(c, t, err)
}

// Revenue handles POST /accountability/:id/revenues
func (h *AccountabilityHandler) Revenue(c *gin.Context) {
	var req accapp.FlowRequest
	id, ok := bindTranche(h, c, &req)
	if !ok {
		return
	}
	t, err := h.tranches.RecordRevenue(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, t)
}

// Expenditure handles POST /accountability/:id/expenditures
func (h *AccountabilityHandler) Expenditure(c *gin.Context) {
	var req accapp.FlowRequest
	id, ok := bindTranche(h, c, &req)
	if !ok {
		return
	}
	t, err := h.tranches.RecordExpenditure(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, t)
}

// AddEntry handles POST /accountability/:id/accounting
func (h *AccountabilityHandler) AddEntry(c *gin.Context) {
	var req accapp.AddEntryRequest
	id, ok := bindTranche(h, c, &req)
	if !ok {
		return
	}
	entry, err := h.ledger.AddEntry(c.Request.Context(), id, req, middleware.GetActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, entry)
}

// UpdateEntry handles PATCH /accountability/:id/accounting/:entryId
func (h *AccountabilityHandler) UpdateEntry(c *gin.Context) {
	var req accapp.UpdateEntryRequest
	id, ok := bindTranche(h, c, &req)
	if !ok {
		return
	}
	entryID, ok := h.pathID(c, "entryId")
	if !ok {
		return
	}
	entry, err := h.ledger.UpdateEntry(c.Request.Context(), id, entryID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// DeleteEntry handles DELETE /accountability/:id/accounting/:entryId?trancheName=
func (h *AccountabilityHandler) DeleteEntry(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	entryID, ok := h.pathID(c, "entryId")
	if !ok {
		return
	}
	if err := h.ledger.DeleteEntry(c.Request.Context(), id, entryID, c.Query("trancheName")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RequestReceiptUpload handles POST /accountability/:id/accounting/:entryId/receipt
func (h *AccountabilityHandler) RequestReceiptUpload(c *gin.Context) {
	var req accapp.ReceiptUploadRequest
	id, ok := bindTranche(h, c, &req)
	if !ok {
		return
	}
	entryID, ok := h.pathID(c, "entryId")
	if !ok {
		return
	}
	resp, err := h.receipts.RequestUpload(c.Request.Context(), id, entryID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ReceiptDownload handles GET /accountability/:id/accounting/:entryId/receipt?trancheName=
func (h *AccountabilityHandler) ReceiptDownload(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	entryID, ok := h.pathID(c, "entryId")
	if !ok {
		return
	}
	resp, err := h.receipts.DownloadURL(c.Request.Context(), id, entryID, c.Query("trancheName"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// FinancialSummary handles GET /accountability/:id/financial-summary?academicYear=
func (h *AccountabilityHandler) FinancialSummary(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	year := 0
	if raw := c.Query("academicYear"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1900 || v > 9999 {
			h.BadRequest(c, "Invalid academicYear")
			return
		}
		year = v
	}
	s, err := h.summary.Calculate(c.Request.Context(), id, year)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, s)
}

// RefreshFinancialSummary handles POST /accountability/:id/financial-summary/refresh
func (h *AccountabilityHandler) RefreshFinancialSummary(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	s, err := h.summary.UpdateStored(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, s)
}
