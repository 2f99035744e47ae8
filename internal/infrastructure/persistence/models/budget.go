package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/schoolgrants/backend/internal/domain/budget"
	"github.com/schoolgrants/backend/internal/domain/capitation"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// BudgetModel is the persistence model for a budget submission
type BudgetModel struct {
	AggregateModel
	Code         string `gorm:"type:varchar(50);not null;uniqueIndex:idx_budget_code_year,priority:1"`
	AcademicYear int    `gorm:"not null;uniqueIndex:idx_budget_code_year,priority:2"`
	SchoolName   string `gorm:"type:varchar(200)"`
	SchoolType   string `gorm:"type:varchar(10);not null"`
	Ownership    string `gorm:"type:varchar(50)"`
	State        string `gorm:"type:varchar(100)"`
	County       string `gorm:"type:varchar(100)"`
	Payam        string `gorm:"type:varchar(100)"`

	Groups                         datatypes.JSON                        `gorm:"type:jsonb"`
	SubmittedAmount                *decimal.Decimal                      `gorm:"type:decimal(18,2)"`
	PreviousYearLedgerAccountedFor bool                                  `gorm:"not null;default:false"`
	Governance                     datatypes.JSONType[budget.Governance] `gorm:"type:jsonb"`

	ReviewedBy       string `gorm:"type:varchar(100)"`
	ReviewDate       *time.Time
	AccountabilityID *uuid.UUID `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (BudgetModel) TableName() string {
	return "budgets"
}

// ToDomain converts the model to a domain Budget
func (m *BudgetModel) ToDomain() (*budget.Budget, error) {
	var groups []budget.Group
	if len(m.Groups) > 0 {
		if err := json.Unmarshal(m.Groups, &groups); err != nil {
			return nil, fmt.Errorf("decode budget groups for %s: %w", m.ID, err)
		}
	}
	return &budget.Budget{
		BaseAggregateRoot:              m.ToDomainAggregateRoot(),
		Code:                           m.Code,
		AcademicYear:                   m.AcademicYear,
		SchoolName:                     m.SchoolName,
		SchoolType:                     capitation.SchoolType(m.SchoolType),
		Ownership:                      m.Ownership,
		State:                          m.State,
		County:                         m.County,
		Payam:                          m.Payam,
		Groups:                         groups,
		SubmittedAmount:                m.SubmittedAmount,
		PreviousYearLedgerAccountedFor: m.PreviousYearLedgerAccountedFor,
		Governance:                     m.Governance.Data(),
		ReviewedBy:                     m.ReviewedBy,
		ReviewDate:                     m.ReviewDate,
		AccountabilityID:               m.AccountabilityID,
	}, nil
}

// BudgetModelFromDomain creates a model from a domain Budget
func BudgetModelFromDomain(b *budget.Budget) (*BudgetModel, error) {
	groups, err := json.Marshal(b.Groups)
	if err != nil {
		return nil, fmt.Errorf("encode budget groups: %w", err)
	}
	m := &BudgetModel{
		Code:                           b.Code,
		AcademicYear:                   b.AcademicYear,
		SchoolName:                     b.SchoolName,
		SchoolType:                     string(b.SchoolType),
		Ownership:                      b.Ownership,
		State:                          b.State,
		County:                         b.County,
		Payam:                          b.Payam,
		Groups:                         datatypes.JSON(groups),
		SubmittedAmount:                b.SubmittedAmount,
		PreviousYearLedgerAccountedFor: b.PreviousYearLedgerAccountedFor,
		Governance:                     datatypes.NewJSONType(b.Governance),
		ReviewedBy:                     b.ReviewedBy,
		ReviewDate:                     b.ReviewDate,
		AccountabilityID:               b.AccountabilityID,
	}
	m.FromDomainAggregateRoot(b.BaseAggregateRoot)
	return m, nil
}

// LearnerModel is a read-only view of the learner registry
type LearnerModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	SchoolCode string    `gorm:"type:varchar(50);not null;index"`
	DroppedOut bool      `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (LearnerModel) TableName() string {
	return "learners"
}

// SchoolModel is a read-only view of the school registry
type SchoolModel struct {
	Code      string `gorm:"type:varchar(50);primary_key"`
	Name      string `gorm:"type:varchar(200)"`
	Ownership string `gorm:"type:varchar(50)"`
}

// TableName returns the table name for GORM
func (SchoolModel) TableName() string {
	return "schools"
}
