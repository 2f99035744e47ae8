package accountability

import (
	"context"
	"slices"

	"github.com/schoolgrants/backend/internal/domain/accountability"
	"github.com/schoolgrants/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// SummaryCacheInvalidator evicts cached summaries when a record's
// financial position changes. The following year's record is evicted too
// because its opening balance comes from this one.
type SummaryCacheInvalidator struct {
	cache  accountability.SummaryCache
	logger *zap.Logger
}

// NewSummaryCacheInvalidator creates a new SummaryCacheInvalidator
func NewSummaryCacheInvalidator(cache accountability.SummaryCache, logger *zap.Logger) *SummaryCacheInvalidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryCacheInvalidator{cache: cache, logger: logger}
}

// EventTypes implements shared.EventHandler
func (h *SummaryCacheInvalidator) EventTypes() []string {
	return append(accountability.LedgerEventTypes(), accountability.EventTypeAccountabilityCreated)
}

// Handle implements shared.EventHandler
func (h *SummaryCacheInvalidator) Handle(ctx context.Context, event shared.DomainEvent) error {
	scoped, ok := event.(shared.SchoolScopedEvent)
	if !ok || scoped.SchoolCode() == "" {
		return nil
	}
	year := scoped.AcademicYear()
	if err := h.cache.Invalidate(ctx, scoped.SchoolCode(), year, year+1); err != nil {
		return err
	}
	h.logger.Debug("Summary cache invalidated",
		zap.String("school_code", scoped.SchoolCode()),
		zap.Int("academic_year", year),
		zap.String("event_type", event.EventType()),
	)
	return nil
}

// MetricsHandler turns tranche and ledger events into business metrics
type MetricsHandler struct {
	metrics Metrics
}

// NewMetricsHandler creates a new MetricsHandler
func NewMetricsHandler(metrics Metrics) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// EventTypes implements shared.EventHandler
func (h *MetricsHandler) EventTypes() []string {
	return accountability.LedgerEventTypes()
}

// Handle implements shared.EventHandler
func (h *MetricsHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !slices.Contains(h.EventTypes(), event.EventType()) {
		return nil
	}
	h.metrics.RecordLedgerOperation(ctx, event.EventType())
	if te, ok := event.(*accountability.TrancheEvent); ok && te.EventType() == accountability.EventTypeTrancheDisbursed {
		h.metrics.RecordDisbursement(ctx, te.Channel, te.AcademicYear(), te.Amount)
	}
	return nil
}
