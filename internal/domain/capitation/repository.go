package capitation

import "context"

// SettingsRepository persists capitation settings, one row per academic year
type SettingsRepository interface {
	// FindByAcademicYear returns shared.ErrSettingsNotFound when no settings exist
	FindByAcademicYear(ctx context.Context, academicYear int) (*Settings, error)

	// List returns all settings ordered by academic year, newest first
	List(ctx context.Context) ([]Settings, error)

	// Save inserts or replaces the settings for the year
	Save(ctx context.Context, settings *Settings) error

	// Delete removes the settings for the year
	Delete(ctx context.Context, academicYear int) error
}
