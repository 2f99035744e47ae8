package capitation

import (
	"time"

	"github.com/google/uuid"
	"github.com/schoolgrants/backend/internal/domain/capitation"
	"github.com/schoolgrants/backend/internal/domain/shared/valueobject"
)

// UpsertSettingsRequest replaces all rules of one academic year. Rules may
// use the legacy single inflation percentage; it is normalized on write.
type UpsertSettingsRequest struct {
	CapitationGrants map[string]capitation.RawGrantRule `json:"capitationGrants"`
	CapitalSpend     map[string]capitation.RawGrantRule `json:"capitalSpend"`
}

// SettingsResponse is the stored settings of one academic year
type SettingsResponse struct {
	ID               uuid.UUID                                      `json:"id"`
	AcademicYear     int                                            `json:"academicYear"`
	CapitationGrants map[capitation.SchoolType]capitation.GrantRule `json:"capitationGrants"`
	CapitalSpend     map[capitation.SchoolType]capitation.GrantRule `json:"capitalSpend"`
	UpdatedBy        string                                         `json:"updatedBy"`
	UpdatedAt        time.Time                                      `json:"updatedAt"`
}

// ToSettingsResponse converts domain settings
func ToSettingsResponse(s *capitation.Settings) SettingsResponse {
	return SettingsResponse{
		ID:               s.ID,
		AcademicYear:     s.AcademicYear,
		CapitationGrants: s.CapitationGrants,
		CapitalSpend:     s.CapitalSpend,
		UpdatedBy:        s.UpdatedBy,
		UpdatedAt:        s.UpdatedAt,
	}
}

// EntitlementResponse is the grant a school is entitled to for its enrolment
type EntitlementResponse struct {
	AcademicYear int                        `json:"academicYear"`
	SchoolType   capitation.SchoolType      `json:"schoolType"`
	Category     capitation.FundingCategory `json:"category"`
	Learners     int64                      `json:"learners"`
	Amount       valueobject.Money          `json:"amount"`
	AmountSSP    valueobject.Money          `json:"amountSSP"`
	IsDefault    bool                       `json:"isDefault"`
}
