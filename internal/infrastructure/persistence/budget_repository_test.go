package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/schoolgrants/backend/internal/domain/budget"
	"github.com/schoolgrants/backend/internal/domain/shared"
	"github.com/schoolgrants/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBudgetRepository_SaveAndFind(t *testing.T) {
	repo := NewGormBudgetRepository(newTestDB(t))
	ctx := context.Background()
	b := newTestBudget(t, "EES-0001", 2024, "4200.50")
	require.NoError(t, repo.Save(ctx, b))

	got, err := repo.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "EES-0001", got.Code)
	require.NotNil(t, got.SubmittedAmount)
	assert.True(t, got.SubmittedAmount.Equal(dec("4200.5")))
	assert.True(t, got.Governance.SGB)
	require.Len(t, got.Groups, 1)
	assert.Equal(t, "Chalk", got.Groups[0].Categories[0].Items[0].Description)
	assert.Equal(t, budget.Eligible, got.Eligibility(10))

	byCode, err := repo.FindByCodeAndYear(ctx, "EES-0001", 2024)
	require.NoError(t, err)
	assert.Equal(t, b.ID, byCode.ID)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrBudgetNotFound)
}

func TestBudgetRepository_DuplicateCodeAndYear(t *testing.T) {
	repo := NewGormBudgetRepository(newTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, newTestBudget(t, "EES-0002", 2024, "10")))

	err := repo.Save(ctx, newTestBudget(t, "EES-0002", 2024, "20"))
	require.Error(t, err)
	assert.True(t, shared.HasCode(err, shared.CodeAlreadyExists))
}

func TestRegistries(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.Create(&models.SchoolModel{Code: "EES-0003", Name: "Torit Primary", Ownership: "Faith-based"}).Error)
	require.NoError(t, db.Create(&[]models.LearnerModel{
		{ID: uuid.New(), SchoolCode: "EES-0003"},
		{ID: uuid.New(), SchoolCode: "EES-0003"},
		{ID: uuid.New(), SchoolCode: "EES-0003", DroppedOut: true},
		{ID: uuid.New(), SchoolCode: "EES-0004"},
	}).Error)

	count, err := NewGormLearnerRegistry(db).CountActiveLearners(ctx, "EES-0003")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	schools := NewGormSchoolRegistry(db)
	ownership, err := schools.GetSchoolOwnership(ctx, "EES-0003")
	require.NoError(t, err)
	assert.Equal(t, "Faith-based", ownership)

	_, err = schools.GetSchoolOwnership(ctx, "NOPE")
	assert.True(t, shared.HasCode(err, shared.CodeNotFound))
}
