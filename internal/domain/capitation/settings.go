package capitation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/schoolgrants/backend/internal/domain/shared"
	"github.com/schoolgrants/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// SchoolType identifies the school level a grant rule applies to
type SchoolType string

const (
	SchoolTypePrimary   SchoolType = "PRI"
	SchoolTypeSecondary SchoolType = "SEC"
	SchoolTypeALP       SchoolType = "ALP" // Accelerated Learning Programme
)

// IsValid checks if the school type is known
func (s SchoolType) IsValid() bool {
	switch s {
	case SchoolTypePrimary, SchoolTypeSecondary, SchoolTypeALP:
		return true
	}
	return false
}

// ParseSchoolType normalizes case and surrounding whitespace
func ParseSchoolType(s string) (SchoolType, error) {
	st := SchoolType(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", shared.NewDomainError(shared.CodeValidation, fmt.Sprintf("schoolType must be one of PRI, SEC, ALP, got %q", s))
	}
	return st, nil
}

// FundingCategory separates operational from capital rule sets
type FundingCategory string

const (
	CategoryOPEX  FundingCategory = "OPEX"  // capitationGrants
	CategoryCAPEX FundingCategory = "CAPEX" // capitalSpend
)

// ParseFundingCategory accepts the category code or its rule-set name.
// An empty string selects OPEX.
func ParseFundingCategory(s string) (FundingCategory, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "opex", "capitationgrants":
		return CategoryOPEX, nil
	case "capex", "capitalspend":
		return CategoryCAPEX, nil
	}
	return "", shared.NewDomainError(shared.CodeValidation, fmt.Sprintf("category must be OPEX or CAPEX, got %q", s))
}

// TrancheDistribution splits a grant across three tranches, each with its
// own inflation correction percentage.
type TrancheDistribution struct {
	Tranche1Pct                    decimal.Decimal `json:"tranche1Pct"`
	Tranche2Pct                    decimal.Decimal `json:"tranche2Pct"`
	Tranche3Pct                    decimal.Decimal `json:"tranche3Pct"`
	Tranche1InflationCorrectionPct decimal.Decimal `json:"tranche1InflationCorrectionPct"`
	Tranche2InflationCorrectionPct decimal.Decimal `json:"tranche2InflationCorrectionPct"`
	Tranche3InflationCorrectionPct decimal.Decimal `json:"tranche3InflationCorrectionPct"`
}

// DefaultDistribution is used when no rule exists for a year and school type
func DefaultDistribution() TrancheDistribution {
	return TrancheDistribution{
		Tranche1Pct:                    decimal.NewFromInt(70),
		Tranche2Pct:                    decimal.NewFromInt(20),
		Tranche3Pct:                    decimal.NewFromInt(10),
		Tranche1InflationCorrectionPct: decimal.Zero,
		Tranche2InflationCorrectionPct: decimal.Zero,
		Tranche3InflationCorrectionPct: decimal.Zero,
	}
}

// Percentages returns the three tranche percentages in order
func (d TrancheDistribution) Percentages() [3]decimal.Decimal {
	return [3]decimal.Decimal{d.Tranche1Pct, d.Tranche2Pct, d.Tranche3Pct}
}

// InflationPercentages returns the three inflation corrections in order
func (d TrancheDistribution) InflationPercentages() [3]decimal.Decimal {
	return [3]decimal.Decimal{d.Tranche1InflationCorrectionPct, d.Tranche2InflationCorrectionPct, d.Tranche3InflationCorrectionPct}
}

// Sum returns p1+p2+p3
func (d TrancheDistribution) Sum() decimal.Decimal {
	return d.Tranche1Pct.Add(d.Tranche2Pct).Add(d.Tranche3Pct)
}

// GrantRule is the funding rule for one school type within one category
type GrantRule struct {
	Currency            valueobject.Currency `json:"currency"`
	AmountPerLearner    decimal.Decimal      `json:"amountPerLearner"`
	AmountPerSchool     decimal.Decimal      `json:"amountPerSchool"`
	ExchangeRateToSSP   decimal.Decimal      `json:"exchangeRateToSSP"`
	TrancheDistribution TrancheDistribution  `json:"trancheDistribution"`
}

// DefaultRule returns an SSP rule with the default distribution and no amounts
func DefaultRule() GrantRule {
	return GrantRule{
		Currency:            valueobject.SSP,
		AmountPerLearner:    decimal.Zero,
		AmountPerSchool:     decimal.Zero,
		ExchangeRateToSSP:   decimal.NewFromInt(1),
		TrancheDistribution: DefaultDistribution(),
	}
}

// Entitlement computes amountPerLearner*learners + amountPerSchool in the
// rule currency, and its SSP equivalent.
func (r GrantRule) Entitlement(learners int64) (valueobject.Money, valueobject.Money, error) {
	if learners < 0 {
		return valueobject.Money{}, valueobject.Money{}, shared.NewDomainError(shared.CodeValidation, "learner count cannot be negative")
	}
	currency := r.Currency
	if currency == "" {
		currency = valueobject.SSP
	}
	amount := r.AmountPerLearner.Mul(decimal.NewFromInt(learners)).Add(r.AmountPerSchool)
	local, err := valueobject.NewMoney(valueobject.Round2(amount), currency)
	if err != nil {
		return valueobject.Money{}, valueobject.Money{}, err
	}
	ssp, err := local.ConvertToSSP(r.ExchangeRateToSSP)
	if err != nil {
		return valueobject.Money{}, valueobject.Money{}, shared.NewDomainError(shared.CodeInvalidInput, err.Error())
	}
	return local, ssp, nil
}

func (r GrantRule) validate(path string) error {
	d := r.TrancheDistribution
	if sum := d.Sum(); !sum.Equal(decimal.NewFromInt(100)) {
		return shared.NewDomainError(shared.CodeDistributionSum,
			fmt.Sprintf("%s: tranche percentages must sum to 100, got %s", path, sum.String()))
	}
	for i, p := range d.Percentages() {
		if p.IsNegative() {
			return shared.NewDomainError(shared.CodeInvalidDistribution,
				fmt.Sprintf("%s: tranche%dPct cannot be negative", path, i+1))
		}
	}
	for i, p := range d.InflationPercentages() {
		if p.IsNegative() {
			return shared.NewDomainError(shared.CodeInvalidDistribution,
				fmt.Sprintf("%s: tranche%dInflationCorrectionPct cannot be negative", path, i+1))
		}
	}
	if r.AmountPerLearner.IsNegative() || r.AmountPerSchool.IsNegative() {
		return shared.NewDomainError(shared.CodeValidation, fmt.Sprintf("%s: amounts cannot be negative", path))
	}
	if !r.ExchangeRateToSSP.IsPositive() {
		return shared.NewDomainError(shared.CodeValidation, fmt.Sprintf("%s: exchangeRateToSSP must be positive", path))
	}
	return nil
}

// Settings holds all grant rules for one academic year
type Settings struct {
	shared.BaseEntity
	AcademicYear     int                      `json:"academicYear"`
	CapitationGrants map[SchoolType]GrantRule `json:"capitationGrants"`
	CapitalSpend     map[SchoolType]GrantRule `json:"capitalSpend"`
	UpdatedBy        string                   `json:"updatedBy"`
}

// NewSettings creates empty settings for a year
func NewSettings(academicYear int) (*Settings, error) {
	if academicYear < 1900 || academicYear > 9999 {
		return nil, shared.NewDomainError(shared.CodeValidation, fmt.Sprintf("academicYear %d is out of range", academicYear))
	}
	return &Settings{
		BaseEntity:       shared.NewBaseEntity(),
		AcademicYear:     academicYear,
		CapitationGrants: make(map[SchoolType]GrantRule),
		CapitalSpend:     make(map[SchoolType]GrantRule),
	}, nil
}

// Rules returns the rule set for a category
func (s *Settings) Rules(category FundingCategory) map[SchoolType]GrantRule {
	if category == CategoryCAPEX {
		return s.CapitalSpend
	}
	return s.CapitationGrants
}

// Validate checks every rule in both categories. Rules are visited in a
// stable order so the reported error is deterministic.
func (s *Settings) Validate() error {
	for _, cat := range []FundingCategory{CategoryOPEX, CategoryCAPEX} {
		rules := s.Rules(cat)
		types := make([]string, 0, len(rules))
		for st := range rules {
			types = append(types, string(st))
		}
		sort.Strings(types)
		for _, st := range types {
			if !SchoolType(st).IsValid() {
				return shared.NewDomainError(shared.CodeValidation, fmt.Sprintf("%s: unknown school type %q", cat, st))
			}
			if err := rules[SchoolType(st)].validate(fmt.Sprintf("%s.%s", cat, st)); err != nil {
				return err
			}
		}
	}
	return nil
}

// ResolvedRule is the outcome of a settings lookup
type ResolvedRule struct {
	AcademicYear int             `json:"academicYear"`
	SchoolType   SchoolType      `json:"schoolType"`
	Category     FundingCategory `json:"category"`
	Rule         GrantRule       `json:"rule"`
	IsDefault    bool            `json:"isDefault"`
}

// Resolve returns the rule for a category and school type. Missing settings,
// categories or school types fall back to DefaultRule.
func Resolve(settings *Settings, academicYear int, category FundingCategory, schoolType SchoolType) ResolvedRule {
	resolved := ResolvedRule{
		AcademicYear: academicYear,
		SchoolType:   schoolType,
		Category:     category,
		Rule:         DefaultRule(),
		IsDefault:    true,
	}
	if settings == nil {
		return resolved
	}
	rule, ok := settings.Rules(category)[schoolType]
	if !ok {
		return resolved
	}
	if rule.Currency == "" {
		rule.Currency = valueobject.SSP
	}
	resolved.Rule = rule
	resolved.IsDefault = false
	return resolved
}

// Touch stamps the modifier and update time
func (s *Settings) Touch(updatedBy string) {
	s.UpdatedBy = updatedBy
	s.UpdatedAt = nowFunc()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
}
