package budget

import (
	"context"

	"github.com/google/uuid"
)

// BudgetRepository persists budgets
type BudgetRepository interface {
	// FindByID returns shared.ErrBudgetNotFound when absent
	FindByID(ctx context.Context, id uuid.UUID) (*Budget, error)

	// FindByIDForUpdate is FindByID with a row lock held until the
	// surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Budget, error)

	// FindByCodeAndYear returns shared.ErrBudgetNotFound when absent
	FindByCodeAndYear(ctx context.Context, code string, academicYear int) (*Budget, error)

	// Save inserts or updates a budget; (code, academicYear) is unique
	Save(ctx context.Context, b *Budget) error
}

// LearnerRegistry counts enrolled learners for a school
type LearnerRegistry interface {
	// CountActiveLearners excludes dropped-out learners
	CountActiveLearners(ctx context.Context, schoolCode string) (int64, error)
}

// SchoolRegistry exposes school master data owned elsewhere
type SchoolRegistry interface {
	GetSchoolOwnership(ctx context.Context, schoolCode string) (string, error)
}
