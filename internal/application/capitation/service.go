// Package capitation serves the per-year grant settings and resolves the
// rule that applies to a school.
package capitation

import (
	"context"
	"errors"
	"fmt"

	"github.com/schoolgrants/backend/internal/domain/capitation"
	"github.com/schoolgrants/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// SettingsService manages capitation settings
type SettingsService struct {
	repo   capitation.SettingsRepository
	logger *zap.Logger
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(repo capitation.SettingsRepository, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{repo: repo, logger: logger}
}

// List returns every stored year, newest first
func (s *SettingsService) List(ctx context.Context) ([]SettingsResponse, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]SettingsResponse, len(all))
	for i := range all {
		out[i] = ToSettingsResponse(&all[i])
	}
	return out, nil
}

// Get returns the stored settings of a year
func (s *SettingsService) Get(ctx context.Context, academicYear int) (*SettingsResponse, error) {
	settings, err := s.repo.FindByAcademicYear(ctx, academicYear)
	if err != nil {
		return nil, err
	}
	resp := ToSettingsResponse(settings)
	return &resp, nil
}

// Upsert normalizes and validates the rules, then replaces the year's settings
func (s *SettingsService) Upsert(ctx context.Context, academicYear int, req UpsertSettingsRequest, updatedBy string) (*SettingsResponse, error) {
	settings, err := s.repo.FindByAcademicYear(ctx, academicYear)
	switch {
	case errors.Is(err, shared.ErrSettingsNotFound):
		if settings, err = capitation.NewSettings(academicYear); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}

	settings.ApplyRaw(capitation.RawSettings{
		CapitationGrants: req.CapitationGrants,
		CapitalSpend:     req.CapitalSpend,
	})
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	settings.Touch(updatedBy)
	if err := s.repo.Save(ctx, settings); err != nil {
		return nil, err
	}

	s.logger.Info("Capitation settings saved",
		zap.Int("academic_year", academicYear),
		zap.String("updated_by", updatedBy),
	)
	resp := ToSettingsResponse(settings)
	return &resp, nil
}

// Delete removes the settings of a year
func (s *SettingsService) Delete(ctx context.Context, academicYear int) error {
	return s.repo.Delete(ctx, academicYear)
}

// Rule resolves the grant rule for a year, category and school type. A
// missing year falls back to the default rule rather than failing.
func (s *SettingsService) Rule(ctx context.Context, academicYear int, category capitation.FundingCategory, schoolType capitation.SchoolType) (capitation.ResolvedRule, error) {
	settings, err := s.repo.FindByAcademicYear(ctx, academicYear)
	if err != nil && !errors.Is(err, shared.ErrSettingsNotFound) {
		return capitation.ResolvedRule{}, fmt.Errorf("load capitation settings: %w", err)
	}
	resolved := capitation.Resolve(settings, academicYear, category, schoolType)
	if resolved.IsDefault {
		s.logger.Debug("Using default capitation rule",
			zap.Int("academic_year", academicYear),
			zap.String("category", string(category)),
			zap.String("school_type", string(schoolType)),
		)
	}
	return resolved, nil
}

// Resolve parses the query values and resolves the rule
func (s *SettingsService) Resolve(ctx context.Context, academicYear int, category, schoolType string) (*capitation.ResolvedRule, error) {
	cat, err := capitation.ParseFundingCategory(category)
	if err != nil {
		return nil, err
	}
	st, err := capitation.ParseSchoolType(schoolType)
	if err != nil {
		return nil, err
	}
	resolved, err := s.Rule(ctx, academicYear, cat, st)
	if err != nil {
		return nil, err
	}
	return &resolved, nil
}

// Entitlement computes the OPEX grant for a school type and learner count
func (s *SettingsService) Entitlement(ctx context.Context, academicYear int, schoolType capitation.SchoolType, learners int64) (*EntitlementResponse, error) {
	resolved, err := s.Rule(ctx, academicYear, capitation.CategoryOPEX, schoolType)
	if err != nil {
		return nil, err
	}
	local, ssp, err := resolved.Rule.Entitlement(learners)
	if err != nil {
		return nil, err
	}
	return &EntitlementResponse{
		AcademicYear: academicYear,
		SchoolType:   schoolType,
		Category:     capitation.CategoryOPEX,
		Learners:     learners,
		Amount:       local,
		AmountSSP:    ssp,
		IsDefault:    resolved.IsDefault,
	}, nil
}
