package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	accapp "github.com/schoolgrants/backend/internal/application/accountability"
	budgetapp "github.com/schoolgrants/backend/internal/application/budget"
	capapp "github.com/schoolgrants/backend/internal/application/capitation"
	"github.com/schoolgrants/backend/internal/domain/accountability"
	"github.com/schoolgrants/backend/internal/domain/budget"
	"github.com/schoolgrants/backend/internal/domain/capitation"
	"github.com/schoolgrants/backend/internal/domain/shared"
	"github.com/schoolgrants/backend/internal/interfaces/http/dto"
	"github.com/schoolgrants/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testActor = "Mary Akol"

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// newTestEngine returns an engine with request ids and a fixed actor
func newTestEngine() *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), func(c *gin.Context) {
		c.Set(middleware.JWTActorKey, testActor)
		c.Next()
	})
	return r
}

func perform(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func dataMap(t *testing.T, resp dto.Response) map[string]any {
	t.Helper()
	m, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data is %T", resp.Data)
	return m
}

type MockSettingsService struct{ mock.Mock }

func (m *MockSettingsService) List(ctx context.Context) ([]capapp.SettingsResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]capapp.SettingsResponse), args.Error(1)
}

func (m *MockSettingsService) Get(ctx context.Context, academicYear int) (*capapp.SettingsResponse, error) {
	args := m.Called(ctx, academicYear)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*capapp.SettingsResponse), args.Error(1)
}

func (m *MockSettingsService) Upsert(ctx context.Context, academicYear int, req capapp.UpsertSettingsRequest, updatedBy string) (*capapp.SettingsResponse, error) {
	args := m.Called(ctx, academicYear, req, updatedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*capapp.SettingsResponse), args.Error(1)
}

func (m *MockSettingsService) Delete(ctx context.Context, academicYear int) error {
	return m.Called(ctx, academicYear).Error(0)
}

func (m *MockSettingsService) Resolve(ctx context.Context, academicYear int, category, schoolType string) (*capitation.ResolvedRule, error) {
	args := m.Called(ctx, academicYear, category, schoolType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*capitation.ResolvedRule), args.Error(1)
}

type MockBudgetService struct{ mock.Mock }

func (m *MockBudgetService) Submit(ctx context.Context, req budgetapp.SubmitBudgetRequest) (*budget.Budget, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*budget.Budget), args.Error(1)
}

func (m *MockBudgetService) Get(ctx context.Context, id uuid.UUID) (*budget.Budget, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*budget.Budget), args.Error(1)
}

func (m *MockBudgetService) Eligibility(ctx context.Context, id uuid.UUID) (*budgetapp.EligibilityResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*budgetapp.EligibilityResponse), args.Error(1)
}

type MockReviewer struct{ mock.Mock }

func (m *MockReviewer) ReviewBudget(ctx context.Context, budgetID uuid.UUID, reviewer string) (*accapp.ReviewResult, error) {
	args := m.Called(ctx, budgetID, reviewer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accapp.ReviewResult), args.Error(1)
}

type MockTrancheService struct{ mock.Mock }

func (m *MockTrancheService) tranche(args mock.Arguments) (*accountability.Tranche, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accountability.Tranche), args.Error(1)
}

func (m *MockTrancheService) Get(ctx context.Context, id uuid.UUID) (*accountability.Accountability, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accountability.Accountability), args.Error(1)
}

func (m *MockTrancheService) List(ctx context.Context, q accapp.ListQuery) (*shared.Paginated[accountability.Accountability], error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[accountability.Accountability]), args.Error(1)
}

func (m *MockTrancheService) Approve(ctx context.Context, id uuid.UUID, req accapp.ApproveTrancheRequest, actor string) (*accountability.Tranche, error) {
	return m.tranche(m.Called(ctx, id, req, actor))
}

func (m *MockTrancheService) Disburse(ctx context.Context, id uuid.UUID, req accapp.DisburseTrancheRequest, actor string) (*accountability.Tranche, error) {
	return m.tranche(m.Called(ctx, id, req, actor))
}

func (m *MockTrancheService) RecordReturnedFunds(ctx context.Context, id uuid.UUID, req accapp.ReturnedFundsRequest, actor string) (*accountability.Tranche, error) {
	return m.tranche(m.Called(ctx, id, req, actor))
}

func (m *MockTrancheService) RecordHeldFunds(ctx context.Context, id uuid.UUID, req accapp.HeldFundsRequest, actor string) (*accountability.Tranche, error) {
	return m.tranche(m.Called(ctx, id, req, actor))
}

func (m *MockTrancheService) RecordRevenue(ctx context.Context, id uuid.UUID, req accapp.FlowRequest) (*accountability.Tranche, error) {
	return m.tranche(m.Called(ctx, id, req))
}

func (m *MockTrancheService) RecordExpenditure(ctx context.Context, id uuid.UUID, req accapp.FlowRequest) (*accountability.Tranche, error) {
	return m.tranche(m.Called(ctx, id, req))
}

type MockLedgerService struct{ mock.Mock }

func (m *MockLedgerService) AddEntry(ctx context.Context, id uuid.UUID, req accapp.AddEntryRequest, actor string) (*accountability.AccountingEntry, error) {
	args := m.Called(ctx, id, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accountability.AccountingEntry), args.Error(1)
}

func (m *MockLedgerService) UpdateEntry(ctx context.Context, id, entryID uuid.UUID, req accapp.UpdateEntryRequest) (*accountability.AccountingEntry, error) {
	args := m.Called(ctx, id, entryID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accountability.AccountingEntry), args.Error(1)
}

func (m *MockLedgerService) DeleteEntry(ctx context.Context, id, entryID uuid.UUID, trancheName string) error {
	return m.Called(ctx, id, entryID, trancheName).Error(0)
}

type MockReceiptService struct{ mock.Mock }

func (m *MockReceiptService) RequestUpload(ctx context.Context, id, entryID uuid.UUID, req accapp.ReceiptUploadRequest) (*accapp.ReceiptURLResponse, error) {
	args := m.Called(ctx, id, entryID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accapp.ReceiptURLResponse), args.Error(1)
}

func (m *MockReceiptService) DownloadURL(ctx context.Context, id, entryID uuid.UUID, trancheName string) (*accapp.ReceiptURLResponse, error) {
	args := m.Called(ctx, id, entryID, trancheName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accapp.ReceiptURLResponse), args.Error(1)
}

type MockSummaryService struct{ mock.Mock }

func (m *MockSummaryService) Calculate(ctx context.Context, id uuid.UUID, academicYear int) (*accountability.FinancialSummary, error) {
	args := m.Called(ctx, id, academicYear)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accountability.FinancialSummary), args.Error(1)
}

func (m *MockSummaryService) UpdateStored(ctx context.Context, id uuid.UUID) (*accountability.FinancialSummary, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accountability.FinancialSummary), args.Error(1)
}
