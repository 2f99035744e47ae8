package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/schoolgrants/backend/internal/domain/budget"
	"github.com/schoolgrants/backend/internal/domain/shared"
	"github.com/schoolgrants/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBudgetRepository implements budget.BudgetRepository using GORM
type GormBudgetRepository struct {
	db *gorm.DB
}

// NewGormBudgetRepository creates a new GormBudgetRepository
func NewGormBudgetRepository(db *gorm.DB) *GormBudgetRepository {
	return &GormBudgetRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormBudgetRepository) WithTx(tx *gorm.DB) *GormBudgetRepository {
	return &GormBudgetRepository{db: tx}
}

// FindByID finds a budget by ID
func (r *GormBudgetRepository) FindByID(ctx context.Context, id uuid.UUID) (*budget.Budget, error) {
	return r.find(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByIDForUpdate finds a budget by ID and locks its row on postgres
func (r *GormBudgetRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*budget.Budget, error) {
	q := r.db.WithContext(ctx)
	if isPostgres(q) {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.find(q.Where("id = ?", id))
}

// FindByCodeAndYear finds the budget of a school for a year
func (r *GormBudgetRepository) FindByCodeAndYear(ctx context.Context, code string, academicYear int) (*budget.Budget, error) {
	return r.find(r.db.WithContext(ctx).Where("code = ? AND academic_year = ?", code, academicYear))
}

func (r *GormBudgetRepository) find(q *gorm.DB) (*budget.Budget, error) {
	var model models.BudgetModel
	if err := q.First(&model).Error; err != nil {
		return nil, translateError(err, shared.ErrBudgetNotFound)
	}
	return model.ToDomain()
}

// Save creates or updates a budget
func (r *GormBudgetRepository) Save(ctx context.Context, b *budget.Budget) error {
	model, err := models.BudgetModelFromDomain(b)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainError(shared.CodeAlreadyExists,
				fmt.Sprintf("a budget for %s in %d already exists", b.Code, b.AcademicYear))
		}
		return fmt.Errorf("save budget %s: %w", b.ID, err)
	}
	return nil
}

var _ budget.BudgetRepository = (*GormBudgetRepository)(nil)

// GormLearnerRegistry counts learners in the shared learners table
type GormLearnerRegistry struct {
	db *gorm.DB
}

// NewGormLearnerRegistry creates a new GormLearnerRegistry
func NewGormLearnerRegistry(db *gorm.DB) *GormLearnerRegistry {
	return &GormLearnerRegistry{db: db}
}

// CountActiveLearners counts learners of a school that have not dropped out
func (r *GormLearnerRegistry) CountActiveLearners(ctx context.Context, schoolCode string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.LearnerModel{}).
		Where("school_code = ? AND dropped_out = ?", schoolCode, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count learners for %s: %w", schoolCode, err)
	}
	return count, nil
}

// GormSchoolRegistry reads school master data
type GormSchoolRegistry struct {
	db *gorm.DB
}

// NewGormSchoolRegistry creates a new GormSchoolRegistry
func NewGormSchoolRegistry(db *gorm.DB) *GormSchoolRegistry {
	return &GormSchoolRegistry{db: db}
}

// GetSchoolOwnership returns the ownership of a school
func (r *GormSchoolRegistry) GetSchoolOwnership(ctx context.Context, schoolCode string) (string, error) {
	var school models.SchoolModel
	if err := r.db.WithContext(ctx).Where("code = ?", schoolCode).First(&school).Error; err != nil {
		return "", translateError(err, shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("school %s not found", schoolCode)))
	}
	return school.Ownership, nil
}

var (
	_ budget.LearnerRegistry = (*GormLearnerRegistry)(nil)
	_ budget.SchoolRegistry  = (*GormSchoolRegistry)(nil)
)
