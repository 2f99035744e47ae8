package capitation

import (
	"time"

	"github.com/schoolgrants/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

var nowFunc = time.Now

// RawTrancheDistribution is the stored or submitted distribution shape.
// ApprovedInflationCorrectionPct is the legacy single inflation value.
type RawTrancheDistribution struct {
	Tranche1Pct                    *decimal.Decimal `json:"tranche1Pct,omitempty"`
	Tranche2Pct                    *decimal.Decimal `json:"tranche2Pct,omitempty"`
	Tranche3Pct                    *decimal.Decimal `json:"tranche3Pct,omitempty"`
	Tranche1InflationCorrectionPct *decimal.Decimal `json:"tranche1InflationCorrectionPct,omitempty"`
	Tranche2InflationCorrectionPct *decimal.Decimal `json:"tranche2InflationCorrectionPct,omitempty"`
	Tranche3InflationCorrectionPct *decimal.Decimal `json:"tranche3InflationCorrectionPct,omitempty"`
	ApprovedInflationCorrectionPct *decimal.Decimal `json:"approvedInflationCorrectionPct,omitempty"`
}

// RawGrantRule is a grant rule as it appears on the wire or in older
// documents, where inflation could be a single rule-level percentage.
type RawGrantRule struct {
	Currency                       string                  `json:"currency,omitempty"`
	AmountPerLearner               *decimal.Decimal        `json:"amountPerLearner,omitempty"`
	AmountPerSchool                *decimal.Decimal        `json:"amountPerSchool,omitempty"`
	ExchangeRateToSSP              *decimal.Decimal        `json:"exchangeRateToSSP,omitempty"`
	ApprovedInflationCorrectionPct *decimal.Decimal        `json:"approvedInflationCorrectionPct,omitempty"`
	TrancheDistribution            *RawTrancheDistribution `json:"trancheDistribution,omitempty"`
}

// RawSettings is the wire and storage shape of Settings rules
type RawSettings struct {
	CapitationGrants map[string]RawGrantRule `json:"capitationGrants,omitempty"`
	CapitalSpend     map[string]RawGrantRule `json:"capitalSpend,omitempty"`
}

func valueOr(p *decimal.Decimal, def decimal.Decimal) decimal.Decimal {
	if p == nil {
		return def
	}
	return *p
}

// NormalizeRule converts a raw rule into the current shape. A legacy single
// inflation percentage is replicated into all three tranche fields; the
// distribution-level value takes precedence over the rule-level one. A
// missing distribution yields the default percentages.
func NormalizeRule(raw RawGrantRule) GrantRule {
	def := DefaultDistribution()
	rule := GrantRule{
		Currency:          valueobject.Currency(raw.Currency),
		AmountPerLearner:  valueOr(raw.AmountPerLearner, decimal.Zero),
		AmountPerSchool:   valueOr(raw.AmountPerSchool, decimal.Zero),
		ExchangeRateToSSP: valueOr(raw.ExchangeRateToSSP, decimal.Zero),
	}
	if rule.Currency == "" {
		rule.Currency = valueobject.SSP
	}
	if rule.Currency == valueobject.SSP && rule.ExchangeRateToSSP.IsZero() {
		rule.ExchangeRateToSSP = decimal.NewFromInt(1)
	}

	dist := def
	legacy := raw.ApprovedInflationCorrectionPct
	if rd := raw.TrancheDistribution; rd != nil {
		dist = TrancheDistribution{
			Tranche1Pct:                    valueOr(rd.Tranche1Pct, decimal.Zero),
			Tranche2Pct:                    valueOr(rd.Tranche2Pct, decimal.Zero),
			Tranche3Pct:                    valueOr(rd.Tranche3Pct, decimal.Zero),
			Tranche1InflationCorrectionPct: valueOr(rd.Tranche1InflationCorrectionPct, decimal.Zero),
			Tranche2InflationCorrectionPct: valueOr(rd.Tranche2InflationCorrectionPct, decimal.Zero),
			Tranche3InflationCorrectionPct: valueOr(rd.Tranche3InflationCorrectionPct, decimal.Zero),
		}
		if rd.ApprovedInflationCorrectionPct != nil {
			legacy = rd.ApprovedInflationCorrectionPct
		}
	}
	if legacy != nil {
		dist.Tranche1InflationCorrectionPct = *legacy
		dist.Tranche2InflationCorrectionPct = *legacy
		dist.Tranche3InflationCorrectionPct = *legacy
	}
	rule.TrancheDistribution = dist
	return rule
}

// ToRaw converts a normalized rule back to the storage shape. Legacy fields
// are never written.
func (r GrantRule) ToRaw() RawGrantRule {
	d := r.TrancheDistribution
	ptr := func(v decimal.Decimal) *decimal.Decimal { return &v }
	return RawGrantRule{
		Currency:          string(r.Currency),
		AmountPerLearner:  ptr(r.AmountPerLearner),
		AmountPerSchool:   ptr(r.AmountPerSchool),
		ExchangeRateToSSP: ptr(r.ExchangeRateToSSP),
		TrancheDistribution: &RawTrancheDistribution{
			Tranche1Pct:                    ptr(d.Tranche1Pct),
			Tranche2Pct:                    ptr(d.Tranche2Pct),
			Tranche3Pct:                    ptr(d.Tranche3Pct),
			Tranche1InflationCorrectionPct: ptr(d.Tranche1InflationCorrectionPct),
			Tranche2InflationCorrectionPct: ptr(d.Tranche2InflationCorrectionPct),
			Tranche3InflationCorrectionPct: ptr(d.Tranche3InflationCorrectionPct),
		},
	}
}

// ApplyRaw replaces the settings' rule sets with normalized raw rules.
// School type keys are upper-cased; unknown keys are kept so Validate can
// report them.
func (s *Settings) ApplyRaw(raw RawSettings) {
	s.CapitationGrants = normalizeSet(raw.CapitationGrants)
	s.CapitalSpend = normalizeSet(raw.CapitalSpend)
}

// ToRaw converts the rule sets to the storage shape
func (s *Settings) ToRaw() RawSettings {
	return RawSettings{
		CapitationGrants: rawSet(s.CapitationGrants),
		CapitalSpend:     rawSet(s.CapitalSpend),
	}
}

func normalizeSet(in map[string]RawGrantRule) map[SchoolType]GrantRule {
	out := make(map[SchoolType]GrantRule, len(in))
	for k, v := range in {
		st, err := ParseSchoolType(k)
		if err != nil {
			st = SchoolType(k)
		}
		out[st] = NormalizeRule(v)
	}
	return out
}

func rawSet(in map[SchoolType]GrantRule) map[string]RawGrantRule {
	out := make(map[string]RawGrantRule, len(in))
	for k, v := range in {
		out[string(k)] = v.ToRaw()
	}
	return out
}
