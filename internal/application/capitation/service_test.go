package capitation

import (
	"context"
	"errors"
	"testing"

	"github.com/schoolgrants/backend/internal/domain/capitation"
	"github.com/schoolgrants/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) FindByAcademicYear(ctx context.Context, academicYear int) (*capitation.Settings, error) {
	args := m.Called(ctx, academicYear)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*capitation.Settings), args.Error(1)
}

func (m *MockSettingsRepository) List(ctx context.Context) ([]capitation.Settings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]capitation.Settings), args.Error(1)
}

func (m *MockSettingsRepository) Save(ctx context.Context, settings *capitation.Settings) error {
	return m.Called(ctx, settings).Error(0)
}

func (m *MockSettingsRepository) Delete(ctx context.Context, academicYear int) error {
	return m.Called(ctx, academicYear).Error(0)
}

func d(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func settingsWithPRI(t *testing.T, year int) *capitation.Settings {
	t.Helper()
	s, err := capitation.NewSettings(year)
	require.NoError(t, err)
	s.ApplyRaw(capitation.RawSettings{CapitationGrants: map[string]capitation.RawGrantRule{
		"PRI": {
			Currency:          "USD",
			AmountPerLearner:  d("10"),
			AmountPerSchool:   d("500"),
			ExchangeRateToSSP: d("1300"),
			TrancheDistribution: &capitation.RawTrancheDistribution{
				Tranche1Pct: d("50"), Tranche2Pct: d("30"), Tranche3Pct: d("20"),
			},
		},
	}})
	return s
}

func TestSettingsService_Upsert(t *testing.T) {
	ctx := context.Background()

	t.Run("creates new year with normalized legacy inflation", func(t *testing.T) {
		repo := new(MockSettingsRepository)
		svc := NewSettingsService(repo, nil)
		repo.On("FindByAcademicYear", ctx, 2024).Return(nil, shared.ErrSettingsNotFound)
		repo.On("Save", ctx, mock.AnythingOfType("*capitation.Settings")).Return(nil)

		resp, err := svc.Upsert(ctx, 2024, UpsertSettingsRequest{
			CapitationGrants: map[string]capitation.RawGrantRule{
				"pri": {
					ExchangeRateToSSP:              d("1"),
					ApprovedInflationCorrectionPct: d("5"),
					TrancheDistribution: &capitation.RawTrancheDistribution{
						Tranche1Pct: d("70"), Tranche2Pct: d("20"), Tranche3Pct: d("10"),
					},
				},
			},
		}, "Mary Achol")

		require.NoError(t, err)
		assert.Equal(t, 2024, resp.AcademicYear)
		assert.Equal(t, "Mary Achol", resp.UpdatedBy)
		rule := resp.CapitationGrants[capitation.SchoolTypePrimary]
		assert.True(t, rule.TrancheDistribution.Tranche2InflationCorrectionPct.Equal(decimal.NewFromInt(5)))
		repo.AssertExpectations(t)
	})

	t.Run("keeps identity of existing year", func(t *testing.T) {
		repo := new(MockSettingsRepository)
		svc := NewSettingsService(repo, nil)
		existing := settingsWithPRI(t, 2024)
		id := existing.ID
		repo.On("FindByAcademicYear", ctx, 2024).Return(existing, nil)
		repo.On("Save", ctx, existing).Return(nil)

		resp, err := svc.Upsert(ctx, 2024, UpsertSettingsRequest{}, "admin")
		require.NoError(t, err)
		assert.Equal(t, id, resp.ID)
		assert.Empty(t, resp.CapitationGrants)
	})

	t.Run("rejects distribution that does not sum to 100", func(t *testing.T) {
		repo := new(MockSettingsRepository)
		svc := NewSettingsService(repo, nil)
		repo.On("FindByAcademicYear", ctx, 2024).Return(nil, shared.ErrSettingsNotFound)

		_, err := svc.Upsert(ctx, 2024, UpsertSettingsRequest{
			CapitationGrants: map[string]capitation.RawGrantRule{
				"SEC": {
					ExchangeRateToSSP: d("1"),
					TrancheDistribution: &capitation.RawTrancheDistribution{
						Tranche1Pct: d("60"), Tranche2Pct: d("20"), Tranche3Pct: d("10"),
					},
				},
			},
		}, "admin")

		assert.True(t, shared.HasCode(err, shared.CodeDistributionSum))
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("store failure propagates", func(t *testing.T) {
		repo := new(MockSettingsRepository)
		svc := NewSettingsService(repo, nil)
		boom := errors.New("connection reset")
		repo.On("FindByAcademicYear", ctx, 2024).Return(nil, boom)

		_, err := svc.Upsert(ctx, 2024, UpsertSettingsRequest{}, "admin")
		assert.ErrorIs(t, err, boom)
	})
}

func TestSettingsService_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("stored rule", func(t *testing.T) {
		repo := new(MockSettingsRepository)
		repo.On("FindByAcademicYear", ctx, 2024).Return(settingsWithPRI(t, 2024), nil)
		svc := NewSettingsService(repo, nil)

		got, err := svc.Resolve(ctx, 2024, "opex", "pri")
		require.NoError(t, err)
		assert.False(t, got.IsDefault)
		assert.True(t, got.Rule.TrancheDistribution.Tranche1Pct.Equal(decimal.NewFromInt(50)))
	})

	t.Run("missing year falls back to default", func(t *testing.T) {
		repo := new(MockSettingsRepository)
		repo.On("FindByAcademicYear", ctx, 2030).Return(nil, shared.ErrSettingsNotFound)
		svc := NewSettingsService(repo, nil)

		got, err := svc.Resolve(ctx, 2030, "", "SEC")
		require.NoError(t, err)
		assert.True(t, got.IsDefault)
		assert.Equal(t, capitation.DefaultDistribution(), got.Rule.TrancheDistribution)
	})

	t.Run("invalid school type", func(t *testing.T) {
		svc := NewSettingsService(new(MockSettingsRepository), nil)
		_, err := svc.Resolve(ctx, 2024, "OPEX", "UNI")
		assert.True(t, shared.HasCode(err, shared.CodeValidation))
	})

	t.Run("invalid category", func(t *testing.T) {
		svc := NewSettingsService(new(MockSettingsRepository), nil)
		_, err := svc.Resolve(ctx, 2024, "payroll", "PRI")
		assert.True(t, shared.HasCode(err, shared.CodeValidation))
	})
}

func TestSettingsService_Entitlement(t *testing.T) {
	ctx := context.Background()
	repo := new(MockSettingsRepository)
	repo.On("FindByAcademicYear", ctx, 2024).Return(settingsWithPRI(t, 2024), nil)
	svc := NewSettingsService(repo, nil)

	got, err := svc.Entitlement(ctx, 2024, capitation.SchoolTypePrimary, 120)
	require.NoError(t, err)
	assert.True(t, got.Amount.Amount().Equal(decimal.NewFromInt(1700)))
	assert.True(t, got.AmountSSP.Amount().Equal(decimal.NewFromInt(2210000)))
	assert.False(t, got.IsDefault)

	_, err = svc.Entitlement(ctx, 2024, capitation.SchoolTypePrimary, -1)
	assert.Error(t, err)
}

func TestSettingsService_ListGetDelete(t *testing.T) {
	ctx := context.Background()
	repo := new(MockSettingsRepository)
	svc := NewSettingsService(repo, nil)
	s := settingsWithPRI(t, 2024)
	repo.On("List", ctx).Return([]capitation.Settings{*s}, nil)
	repo.On("FindByAcademicYear", ctx, 2023).Return(nil, shared.ErrSettingsNotFound)
	repo.On("Delete", ctx, 2024).Return(nil)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 2024, all[0].AcademicYear)

	_, err = svc.Get(ctx, 2023)
	assert.ErrorIs(t, err, shared.ErrSettingsNotFound)

	assert.NoError(t, svc.Delete(ctx, 2024))
}
