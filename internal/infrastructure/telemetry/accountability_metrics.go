package telemetry

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when no meter is supplied
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// AccountabilityMetrics records grant lifecycle activity:
//   - sgb_budget_reviews_total{school_type, outcome=created|existing}
//   - sgb_tranche_disbursements_total{paid_through, academic_year}
//   - sgb_tranche_disbursed_amount_cents{paid_through}
//   - sgb_ledger_operations_total{event_type}
type AccountabilityMetrics struct {
	reviews         *Counter
	disbursements   *Counter
	disbursedAmount *Histogram
	ledgerOps       *Counter
	logger          *zap.Logger
}

// NewAccountabilityMetrics registers the instruments on meter
func NewAccountabilityMetrics(meter metric.Meter, logger *zap.Logger) (*AccountabilityMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	reviews, err := NewCounter(meter, "sgb_budget_reviews_total",
		"Budget reviews, by whether a new accountability record was created", "{review}")
	if err != nil {
		return nil, err
	}
	disbursements, err := NewCounter(meter, "sgb_tranche_disbursements_total",
		"Successful tranche disbursements", "{disbursement}")
	if err != nil {
		return nil, err
	}
	amount, err := NewHistogram(meter, HistogramOpts{
		Name:        "sgb_tranche_disbursed_amount_cents",
		Description: "Disbursed tranche amounts",
		Unit:        "{cent}",
		Boundaries:  AmountCentsBuckets,
	})
	if err != nil {
		return nil, err
	}
	ledger, err := NewCounter(meter, "sgb_ledger_operations_total",
		"Tranche and ledger mutations, by event type", "{operation}")
	if err != nil {
		return nil, err
	}

	return &AccountabilityMetrics{
		reviews:         reviews,
		disbursements:   disbursements,
		disbursedAmount: amount,
		ledgerOps:       ledger,
		logger:          logger,
	}, nil
}

// RecordReview counts a budget review
func (m *AccountabilityMetrics) RecordReview(ctx context.Context, schoolType string, created bool) {
	outcome := "existing"
	if created {
		outcome = "created"
	}
	m.reviews.Inc(ctx, AttrSchoolType.String(schoolType), AttrOutcome.String(outcome))
}

// RecordDisbursement counts a disbursement and records its amount in cents
func (m *AccountabilityMetrics) RecordDisbursement(ctx context.Context, channel string, academicYear int, amount decimal.Decimal) {
	m.disbursements.Inc(ctx, AttrChannel.String(channel), AttrAcademicYear.Int(academicYear))
	cents, _ := amount.Shift(2).Round(0).Float64()
	m.disbursedAmount.Record(ctx, cents, AttrChannel.String(channel))
}

// RecordLedgerOperation counts a tranche or ledger mutation
func (m *AccountabilityMetrics) RecordLedgerOperation(ctx context.Context, eventType string) {
	m.ledgerOps.Inc(ctx, AttrEventType.String(eventType))
}
