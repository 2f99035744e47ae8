package accountability

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/schoolgrants/backend/internal/domain/accountability"
	"github.com/schoolgrants/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerService manages the itemized accounting entries of tranches
type LedgerService struct {
	repo      accountability.Repository
	publisher shared.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(repo accountability.Repository, publisher shared.EventPublisher, logger *zap.Logger) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{repo: repo, publisher: publisher, logger: logger, now: time.Now}
}

// AddEntry appends a ledger line and returns it with its generated id
func (s *LedgerService) AddEntry(ctx context.Context, id uuid.UUID, req AddEntryRequest, actor string) (*accountability.AccountingEntry, error) {
	name, err := accountability.RequireTrancheName(req.TrancheName)
	if err != nil {
		return nil, err
	}
	entry, err := accountability.NewAccountingEntry(accountability.EntryInput{
		Field:      req.Field,
		Value:      req.Value,
		Comment:    req.Comment,
		Category:   req.Category,
		RecordedBy: orActor(req.RecordedBy, actor),
	}, s.now())
	if err != nil {
		return nil, err
	}

	ref, err := s.repo.RecordRef(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.AddAccountingEntry(ctx, id, name, entry); err != nil {
		return nil, err
	}

	s.logger.Debug("Accounting entry added",
		zap.String("accountability_id", id.String()),
		zap.String("tranche", name),
		zap.String("entry_id", entry.ID.String()),
	)
	publish(ctx, s.publisher, s.logger,
		accountability.NewTrancheEvent(accountability.EventTypeAccountingEntryAdded, ref, name, entry.Value).WithEntry(entry.ID))
	return &entry, nil
}

// UpdateEntry applies a partial update. A patch that changes nothing is
// rejected rather than treated as a no-op write.
func (s *LedgerService) UpdateEntry(ctx context.Context, id, entryID uuid.UUID, req UpdateEntryRequest) (*accountability.AccountingEntry, error) {
	name, err := accountability.RequireTrancheName(req.TrancheName)
	if err != nil {
		return nil, err
	}
	patch := accountability.EntryPatch{
		Field:    req.Field,
		Value:    req.Value,
		Comment:  req.Comment,
		Category: req.Category,
	}
	if patch.IsEmpty() {
		return nil, shared.NewDomainError(shared.CodeValidation, "no fields to update")
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	ref, err := s.repo.RecordRef(ctx, id)
	if err != nil {
		return nil, err
	}
	entry, err := s.repo.UpdateAccountingEntry(ctx, id, name, entryID, patch)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.publisher, s.logger,
		accountability.NewTrancheEvent(accountability.EventTypeAccountingEntryUpdated, ref, name, entry.Value).WithEntry(entryID))
	return entry, nil
}

// DeleteEntry removes a ledger line
func (s *LedgerService) DeleteEntry(ctx context.Context, id, entryID uuid.UUID, trancheName string) error {
	name, err := accountability.RequireTrancheName(trancheName)
	if err != nil {
		return err
	}
	ref, err := s.repo.RecordRef(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteAccountingEntry(ctx, id, name, entryID); err != nil {
		return err
	}
	publish(ctx, s.publisher, s.logger,
		accountability.NewTrancheEvent(accountability.EventTypeAccountingEntryDeleted, ref, name, decimal.Zero).WithEntry(entryID))
	return nil
}
