package models

import (
	"encoding/json"
	"fmt"

	"github.com/schoolgrants/backend/internal/domain/capitation"
	"gorm.io/datatypes"
)

// CapitationSettingsModel is the persistence model for capitation settings
type CapitationSettingsModel struct {
	BaseModel
	AcademicYear int            `gorm:"not null;uniqueIndex"`
	Rules        datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedBy    string         `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (CapitationSettingsModel) TableName() string {
	return "capitation_settings"
}

// ToDomain converts the model to domain settings. Rules stored in the
// legacy shape are normalized on the way out.
func (m *CapitationSettingsModel) ToDomain() (*capitation.Settings, error) {
	var raw capitation.RawSettings
	if len(m.Rules) > 0 {
		if err := json.Unmarshal(m.Rules, &raw); err != nil {
			return nil, fmt.Errorf("decode capitation rules for %d: %w", m.AcademicYear, err)
		}
	}
	s := &capitation.Settings{
		BaseEntity:   m.BaseModel.ToDomain(),
		AcademicYear: m.AcademicYear,
		UpdatedBy:    m.UpdatedBy,
	}
	s.ApplyRaw(raw)
	return s, nil
}

// CapitationSettingsModelFromDomain creates a model from domain settings
func CapitationSettingsModelFromDomain(s *capitation.Settings) (*CapitationSettingsModel, error) {
	b, err := json.Marshal(s.ToRaw())
	if err != nil {
		return nil, fmt.Errorf("encode capitation rules: %w", err)
	}
	m := &CapitationSettingsModel{
		AcademicYear: s.AcademicYear,
		Rules:        datatypes.JSON(b),
		UpdatedBy:    s.UpdatedBy,
	}
	m.FromDomainBaseEntity(s.BaseEntity)
	return m, nil
}
