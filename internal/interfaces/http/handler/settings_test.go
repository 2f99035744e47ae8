package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	capapp "github.com/schoolgrants/backend/internal/application/capitation"
	"github.com/schoolgrants/backend/internal/domain/capitation"
	"github.com/schoolgrants/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func settingsRouter(svc *MockSettingsService) *gin.Engine {
	h := NewSettingsHandler(svc)
	r := newTestEngine()
	r.GET("/settings/capitation", h.List)
	r.GET("/settings/capitation/:academicYear", h.Get)
	r.PUT("/settings/capitation/:academicYear", h.Upsert)
	r.DELETE("/settings/capitation/:academicYear", h.Delete)
	r.GET("/settings/capitation/:academicYear/resolve", h.Resolve)
	return r
}

func TestSettingsHandler_Get(t *testing.T) {
	svc := new(MockSettingsService)
	r := settingsRouter(svc)

	svc.On("Get", mock.Anything, 2024).Return(&capapp.SettingsResponse{AcademicYear: 2024}, nil)
	svc.On("Get", mock.Anything, 2019).Return(nil, shared.ErrSettingsNotFound)

	w := perform(r, http.MethodGet, "/settings/capitation/2024", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2024, dataMap(t, decode(t, w))["academicYear"])

	w = perform(r, http.MethodGet, "/settings/capitation/2019", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, shared.CodeSettingsNotFound, decode(t, w).Error.Code)
}

func TestSettingsHandler_UpsertPassesActorAndLegacyFields(t *testing.T) {
	svc := new(MockSettingsService)
	r := settingsRouter(svc)

	svc.On("Upsert", mock.Anything, 2024, mock.MatchedBy(func(req capapp.UpsertSettingsRequest) bool {
		rule, ok := req.CapitationGrants["PRI"]
		return ok && rule.ApprovedInflationCorrectionPct != nil && rule.ApprovedInflationCorrectionPct.String() == "5"
	}), testActor).Return(&capapp.SettingsResponse{AcademicYear: 2024, UpdatedBy: testActor}, nil)

	body := `{"capitationGrants":{"PRI":{"currency":"SSP","amountPerLearner":"1000","approvedInflationCorrectionPct":5,
		"trancheDistribution":{"tranche1Pct":70,"tranche2Pct":20,"tranche3Pct":10}}}}`
	w := perform(r, http.MethodPut, "/settings/capitation/2024", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, testActor, dataMap(t, decode(t, w))["updatedBy"])
	svc.AssertExpectations(t)
}

func TestSettingsHandler_UpsertDistributionMismatch(t *testing.T) {
	svc := new(MockSettingsService)
	r := settingsRouter(svc)
	svc.On("Upsert", mock.Anything, 2024, mock.Anything, testActor).
		Return(nil, shared.NewDomainError(shared.CodeDistributionSum, "capitationGrants.PRI tranche distribution sums to 90, expected 100"))

	w := perform(r, http.MethodPut, "/settings/capitation/2024", `{"capitationGrants":{}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, shared.CodeDistributionSum, decode(t, w).Error.Code)
}

func TestSettingsHandler_DeleteAndList(t *testing.T) {
	svc := new(MockSettingsService)
	r := settingsRouter(svc)
	svc.On("Delete", mock.Anything, 2023).Return(nil)
	svc.On("List", mock.Anything).Return([]capapp.SettingsResponse{{AcademicYear: 2023}, {AcademicYear: 2024}}, nil)

	assert.Equal(t, http.StatusNoContent, perform(r, http.MethodDelete, "/settings/capitation/2023", "").Code)

	w := perform(r, http.MethodGet, "/settings/capitation", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w).Data, 2)
}

func TestSettingsHandler_Resolve(t *testing.T) {
	svc := new(MockSettingsService)
	r := settingsRouter(svc)
	svc.On("Resolve", mock.Anything, 2025, "OPEX", "sec").Return(&capitation.ResolvedRule{
		AcademicYear: 2025,
		SchoolType:   capitation.SchoolTypeSecondary,
		Category:     capitation.CategoryOPEX,
		Rule:         capitation.DefaultRule(),
		IsDefault:    true,
	}, nil)
	svc.On("Resolve", mock.Anything, 2025, "", "XYZ").
		Return(nil, shared.NewDomainError(shared.CodeValidation, `schoolType must be one of PRI, SEC, ALP, got "XYZ"`))

	w := perform(r, http.MethodGet, "/settings/capitation/2025/resolve?category=OPEX&schoolType=sec", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := dataMap(t, decode(t, w))
	assert.Equal(t, true, data["isDefault"])
	assert.Equal(t, "SEC", data["schoolType"])

	w = perform(r, http.MethodGet, "/settings/capitation/2025/resolve?schoolType=XYZ", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
