package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/schoolgrants/backend/internal/domain/capitation"
	"github.com/schoolgrants/backend/internal/domain/shared"
	"github.com/schoolgrants/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCapitationSettingsRepository implements capitation.SettingsRepository using GORM
type GormCapitationSettingsRepository struct {
	db *gorm.DB
}

// NewGormCapitationSettingsRepository creates a new GormCapitationSettingsRepository
func NewGormCapitationSettingsRepository(db *gorm.DB) *GormCapitationSettingsRepository {
	return &GormCapitationSettingsRepository{db: db}
}

// FindByAcademicYear finds the settings for a year
func (r *GormCapitationSettingsRepository) FindByAcademicYear(ctx context.Context, academicYear int) (*capitation.Settings, error) {
	var model models.CapitationSettingsModel
	err := r.db.WithContext(ctx).Where("academic_year = ?", academicYear).First(&model).Error
	if err != nil {
		return nil, translateError(err, shared.ErrSettingsNotFound)
	}
	return model.ToDomain()
}

// List returns all settings, newest year first
func (r *GormCapitationSettingsRepository) List(ctx context.Context) ([]capitation.Settings, error) {
	var rows []models.CapitationSettingsModel
	if err := r.db.WithContext(ctx).Order("academic_year DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list capitation settings: %w", err)
	}
	out := make([]capitation.Settings, 0, len(rows))
	for i := range rows {
		s, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, nil
}

// Save upserts the settings keyed by academic year
func (r *GormCapitationSettingsRepository) Save(ctx context.Context, settings *capitation.Settings) error {
	model, err := models.CapitationSettingsModelFromDomain(settings)
	if err != nil {
		return err
	}
	now := time.Now()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
	}
	model.UpdatedAt = now
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "academic_year"}},
		DoUpdates: clause.AssignmentColumns([]string{"rules", "updated_by", "updated_at"}),
	}).Create(model).Error
	if err != nil {
		return fmt.Errorf("save capitation settings for %d: %w", settings.AcademicYear, err)
	}
	return nil
}

// Delete removes the settings for a year
func (r *GormCapitationSettingsRepository) Delete(ctx context.Context, academicYear int) error {
	result := r.db.WithContext(ctx).Where("academic_year = ?", academicYear).Delete(&models.CapitationSettingsModel{})
	if result.Error != nil {
		return fmt.Errorf("delete capitation settings for %d: %w", academicYear, result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrSettingsNotFound
	}
	return nil
}

var _ capitation.SettingsRepository = (*GormCapitationSettingsRepository)(nil)
