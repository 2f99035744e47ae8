package persistence

import (
	"context"

	"github.com/schoolgrants/backend/internal/domain/accountability"
	"gorm.io/gorm"
)

// GormReviewTransactor implements accountability.ReviewTransactor using a
// GORM transaction. The budget update and the record insert either both
// commit or both roll back.
type GormReviewTransactor struct {
	db *gorm.DB
}

// NewGormReviewTransactor creates a new GormReviewTransactor
func NewGormReviewTransactor(db *gorm.DB) *GormReviewTransactor {
	return &GormReviewTransactor{db: db}
}

// WithinReview runs fn within a database transaction. If fn returns an
// error the transaction is rolled back.
func (s *GormReviewTransactor) WithinReview(ctx context.Context, fn func(ctx context.Context, scope accountability.ReviewScope) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scope := accountability.ReviewScope{
			Budgets: NewGormBudgetRepository(tx),
			Records: NewGormAccountabilityRepository(tx),
		}
		return fn(ctx, scope)
	})
}

// Ensure GormReviewTransactor implements ReviewTransactor
var _ accountability.ReviewTransactor = (*GormReviewTransactor)(nil)
