package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	accapp "github.com/schoolgrants/backend/internal/application/accountability"
	"github.com/schoolgrants/backend/internal/domain/accountability"
	"github.com/schoolgrants/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type accountabilityMocks struct {
	tranches *MockTrancheService
	ledger   *MockLedgerService
	receipts *MockReceiptService
	summary  *MockSummaryService
}

func accountabilityRouter() (*gin.Engine, accountabilityMocks) {
	m := accountabilityMocks{
		tranches: new(MockTrancheService),
		ledger:   new(MockLedgerService),
		receipts: new(MockReceiptService),
		summary:  new(MockSummaryService),
	}
	h := NewAccountabilityHandler(m.tranches, m.ledger, m.receipts, m.summary)
	r := newTestEngine()
	g := r.Group("/accountability")
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PATCH("/:id/approve", h.Approve)
	g.PATCH("/:id/disburse", h.Disburse)
	g.PATCH("/:id/returned-funds", h.ReturnedFunds)
	g.PATCH("/:id/held-funds", h.HeldFunds)
	g.POST("/:id/revenues", h.Revenue)
	g.POST("/:id/expenditures", h.Expenditure)
	g.POST("/:id/accounting", h.AddEntry)
	g.PATCH("/:id/accounting/:entryId", h.UpdateEntry)
	g.DELETE("/:id/accounting/:entryId", h.DeleteEntry)
	g.POST("/:id/accounting/:entryId/receipt", h.RequestReceiptUpload)
	g.GET("/:id/accounting/:entryId/receipt", h.ReceiptDownload)
	g.GET("/:id/financial-summary", h.FinancialSummary)
	g.POST("/:id/financial-summary/refresh", h.RefreshFinancialSummary)
	return r, m
}

func TestAccountabilityHandler_List(t *testing.T) {
	r, m := accountabilityRouter()
	page := shared.NewPaginated([]accountability.Accountability{{Code: "CES-0456", AcademicYear: 2024}}, 21, 2, 20)
	m.tranches.On("List", mock.Anything, accapp.ListQuery{Code: "CES-0456", AcademicYear: 2024, Page: 2}).Return(&page, nil)

	w := perform(r, http.MethodGet, "/accountability?code=CES-0456&academicYear=2024&page=2", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(21), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.TotalPages)

	w = perform(r, http.MethodGet, "/accountability?pageSize=500", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAccountabilityHandler_Get(t *testing.T) {
	r, m := accountabilityRouter()
	id := uuid.New()
	m.tranches.On("Get", mock.Anything, id).Return(nil, shared.ErrAccountabilityNotFound)

	w := perform(r, http.MethodGet, "/accountability/"+id.String(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, shared.CodeAccountabilityMissing, decode(t, w).Error.Code)
}

func TestAccountabilityHandler_Approve(t *testing.T) {
	r, m := accountabilityRouter()
	id := uuid.New()
	m.tranches.On("Approve", mock.Anything, id, mock.MatchedBy(func(req accapp.ApproveTrancheRequest) bool {
		return req.TrancheName == "Tranche 1" && req.Status == "Approved" && req.AmountApproved.Equal(decimal.NewFromInt(650))
	}), testActor).Return(&accountability.Tranche{Name: "Tranche 1", AmountApproved: decimal.NewFromInt(650)}, nil)

	w := perform(r, http.MethodPatch, "/accountability/"+id.String()+"/approve",
		`{"trancheName":"Tranche 1","status":"Approved","amountApproved":650}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Tranche 1", dataMap(t, decode(t, w))["name"])

	w = perform(r, http.MethodPatch, "/accountability/"+id.String()+"/approve", `{"status":"Approved"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	m.tranches.AssertNumberOfCalls(t, "Approve", 1)
}

func TestAccountabilityHandler_DisburseErrors(t *testing.T) {
	r, m := accountabilityRouter()
	id := uuid.New()

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"exceeds approved", accountability.ExceedsApprovedError(decimal.NewFromInt(800), decimal.NewFromInt(700)), http.StatusBadRequest, shared.CodeExceedsApproved},
		{"bad channel", shared.NewDomainError(shared.CodeInvalidPaidThrough, "paidThrough must be one of Bank, Pay Agent, Mobile Money"), http.StatusBadRequest, shared.CodeInvalidPaidThrough},
		{"unknown tranche", shared.ErrTrancheNotFound, http.StatusNotFound, shared.CodeTrancheNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m.tranches.On("Disburse", mock.Anything, id, mock.Anything, testActor).Return(nil, tt.err).Once()

			w := perform(r, http.MethodPatch, "/accountability/"+id.String()+"/disburse",
				`{"trancheName":"Tranche 1","amountDisbursed":800,"paidThrough":"Bank"}`)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decode(t, w).Error.Code)
		})
	}
}

func TestAccountabilityHandler_FundsAndFlows(t *testing.T) {
	r, m := accountabilityRouter()
	id := uuid.New()
	tr := &accountability.Tranche{Name: "Tranche 2"}

	m.tranches.On("RecordReturnedFunds", mock.Anything, id, mock.MatchedBy(func(req accapp.ReturnedFundsRequest) bool {
		return req.Amount.Equal(decimal.NewFromInt(50)) && req.Reason == "school closed"
	}), testActor).Return(tr, nil)
	m.tranches.On("RecordHeldFunds", mock.Anything, id, mock.Anything, testActor).Return(tr, nil)
	m.tranches.On("RecordRevenue", mock.Anything, id, mock.Anything).Return(tr, nil)
	m.tranches.On("RecordExpenditure", mock.Anything, id, mock.Anything).
		Return(nil, shared.NewDomainError(shared.CodeValidation, "amount must be greater than zero"))

	base := "/accountability/" + id.String()
	assert.Equal(t, http.StatusOK, perform(r, http.MethodPatch, base+"/returned-funds", `{"trancheName":"Tranche 2","amount":50,"reason":"school closed"}`).Code)
	assert.Equal(t, http.StatusOK, perform(r, http.MethodPatch, base+"/held-funds", `{"trancheName":"Tranche 2","amount":20,"heldBy":"County"}`).Code)
	assert.Equal(t, http.StatusCreated, perform(r, http.MethodPost, base+"/revenues", `{"trancheName":"Tranche 2","amount":75.5}`).Code)
	assert.Equal(t, http.StatusBadRequest, perform(r, http.MethodPost, base+"/expenditures", `{"trancheName":"Tranche 2","amount":0}`).Code)
	m.tranches.AssertExpectations(t)
}

func TestAccountabilityHandler_Ledger(t *testing.T) {
	r, m := accountabilityRouter()
	id, entryID := uuid.New(), uuid.New()
	base := "/accountability/" + id.String() + "/accounting"

	m.ledger.On("AddEntry", mock.Anything, id, mock.MatchedBy(func(req accapp.AddEntryRequest) bool {
		return req.Field == "Chalk" && req.Value != nil && req.Value.Equal(decimal.RequireFromString("12.5"))
	}), testActor).Return(&accountability.AccountingEntry{ID: entryID, Field: "Chalk"}, nil)
	w := perform(r, http.MethodPost, base, `{"trancheName":"Tranche 1","field":"Chalk","value":12.5}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, entryID.String(), dataMap(t, decode(t, w))["id"])

	m.ledger.On("UpdateEntry", mock.Anything, id, entryID, mock.MatchedBy(func(req accapp.UpdateEntryRequest) bool {
		return req.Comment != nil && *req.Comment == "fixed" && req.Field == nil
	})).Return(&accountability.AccountingEntry{ID: entryID, Comment: "fixed"}, nil)
	w = perform(r, http.MethodPatch, base+"/"+entryID.String(), `{"trancheName":"Tranche 1","comment":"fixed"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	m.ledger.On("DeleteEntry", mock.Anything, id, entryID, "Tranche 1").Return(nil).Once()
	assert.Equal(t, http.StatusNoContent, perform(r, http.MethodDelete, base+"/"+entryID.String()+"?trancheName=Tranche%201", "").Code)

	m.ledger.On("DeleteEntry", mock.Anything, id, entryID, "Tranche 1").Return(shared.ErrEntryNotFound).Once()
	w = perform(r, http.MethodDelete, base+"/"+entryID.String()+"?trancheName=Tranche%201", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, shared.CodeEntryNotFound, decode(t, w).Error.Code)

	assert.Equal(t, http.StatusBadRequest, perform(r, http.MethodDelete, base+"/nope?trancheName=Tranche%201", "").Code)
}

func TestAccountabilityHandler_Receipts(t *testing.T) {
	r, m := accountabilityRouter()
	id, entryID := uuid.New(), uuid.New()
	base := "/accountability/" + id.String() + "/accounting/" + entryID.String() + "/receipt"
	expires := time.Date(2024, 6, 1, 12, 15, 0, 0, time.UTC)

	m.receipts.On("RequestUpload", mock.Anything, id, entryID, accapp.ReceiptUploadRequest{TrancheName: "Tranche 1", ContentType: "image/png"}).
		Return(&accapp.ReceiptURLResponse{EntryID: entryID, URL: "https://s3/put", Method: http.MethodPut, ExpiresAt: expires}, nil)
	w := perform(r, http.MethodPost, base, `{"trancheName":"Tranche 1","contentType":"image/png"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://s3/put", dataMap(t, decode(t, w))["url"])

	assert.Equal(t, http.StatusBadRequest, perform(r, http.MethodPost, base, `{"trancheName":"Tranche 1"}`).Code)

	m.receipts.On("DownloadURL", mock.Anything, id, entryID, "Tranche 1").Return(nil, shared.ErrStorageUnavailable)
	w = perform(r, http.MethodGet, base+"?trancheName=Tranche%201", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAccountabilityHandler_FinancialSummary(t *testing.T) {
	r, m := accountabilityRouter()
	id := uuid.New()
	base := "/accountability/" + id.String() + "/financial-summary"

	m.summary.On("Calculate", mock.Anything, id, 0).Return(&accountability.FinancialSummary{
		AccountingPercentage: decimal.RequireFromString("50"),
		AccountabilityStatus: accountability.StatusPartiallyAccounted,
	}, nil)
	m.summary.On("Calculate", mock.Anything, id, 2023).Return(nil, shared.ErrAccountabilityNotFound)
	m.summary.On("UpdateStored", mock.Anything, id).Return(&accountability.FinancialSummary{AccountabilityStatus: accountability.StatusNotDisbursed}, nil)

	w := perform(r, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, accountability.StatusPartiallyAccounted, dataMap(t, decode(t, w))["accountabilityStatus"])

	assert.Equal(t, http.StatusNotFound, perform(r, http.MethodGet, base+"?academicYear=2023", "").Code)
	assert.Equal(t, http.StatusBadRequest, perform(r, http.MethodGet, base+"?academicYear=abc", "").Code)

	w = perform(r, http.MethodPost, base+"/refresh", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, accountability.StatusNotDisbursed, dataMap(t, decode(t, w))["accountabilityStatus"])
}
