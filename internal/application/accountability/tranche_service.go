package accountability

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schoolgrants/backend/internal/domain/accountability"
	"github.com/schoolgrants/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// TrancheService handles approval, disbursement and fund movements on
// tranches. Every mutation is a single conditional write in the store;
// the service validates input first and never reads the tranche before
// writing it.
type TrancheService struct {
	repo      accountability.Repository
	publisher shared.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewTrancheService creates a new TrancheService
func NewTrancheService(repo accountability.Repository, publisher shared.EventPublisher, logger *zap.Logger) *TrancheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrancheService{repo: repo, publisher: publisher, logger: logger, now: time.Now}
}

// Get returns a record with all tranches and ledger lines
func (s *TrancheService) Get(ctx context.Context, id uuid.UUID) (*accountability.Accountability, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns a page of records
func (s *TrancheService) List(ctx context.Context, q ListQuery) (*shared.Paginated[accountability.Accountability], error) {
	filter := accountability.Filter{
		Filter: shared.Filter{
			Page:     q.Page,
			PageSize: q.PageSize,
			OrderBy:  q.OrderBy,
			OrderDir: q.OrderDir,
		},
		Code:         strings.TrimSpace(q.Code),
		AcademicYear: q.AcademicYear,
		SchoolType:   strings.ToUpper(strings.TrimSpace(q.SchoolType)),
		State:        strings.TrimSpace(q.State),
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Approve sets a tranche's approval block. actor is used when the request
// names no approver.
func (s *TrancheService) Approve(ctx context.Context, id uuid.UUID, req ApproveTrancheRequest, actor string) (*accountability.Tranche, error) {
	name, err := accountability.RequireTrancheName(req.TrancheName)
	if err != nil {
		return nil, err
	}
	change, err := accountability.NewApprovalChange(accountability.ApprovalInput{
		ApprovedBy:     orActor(req.ApprovedBy, actor),
		ApproverName:   req.ApproverName,
		ApprovalDate:   req.ApprovalDate,
		Status:         req.Status,
		Remarks:        req.Remarks,
		AmountApproved: req.AmountApproved,
	}, s.now())
	if err != nil {
		return nil, err
	}

	ref, err := s.repo.RecordRef(ctx, id)
	if err != nil {
		return nil, err
	}
	t, err := s.repo.ApproveTranche(ctx, id, name, change)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Tranche approved",
		zap.String("accountability_id", id.String()),
		zap.String("tranche", name),
		zap.String("status", string(change.Approval.Status)),
	)
	publish(ctx, s.publisher, s.logger,
		accountability.NewTrancheEvent(accountability.EventTypeTrancheApproved, ref, name, t.AmountApproved))
	return t, nil
}

// Disburse records a payment, refusing amounts above the approved ceiling
func (s *TrancheService) Disburse(ctx context.Context, id uuid.UUID, req DisburseTrancheRequest, actor string) (*accountability.Tranche, error) {
	name, err := accountability.RequireTrancheName(req.TrancheName)
	if err != nil {
		return nil, err
	}
	d, err := accountability.NewDisbursement(accountability.DisbursementInput{
		Amount:           req.AmountDisbursed,
		PaidBy:           orActor(req.PaidBy, actor),
		DisbursementDate: req.DisbursementDate,
		PaidThrough:      req.PaidThrough,
	}, s.now())
	if err != nil {
		return nil, err
	}

	ref, err := s.repo.RecordRef(ctx, id)
	if err != nil {
		return nil, err
	}
	t, err := s.repo.DisburseTranche(ctx, id, name, d)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Tranche disbursed",
		zap.String("accountability_id", id.String()),
		zap.String("tranche", name),
		zap.String("amount", d.Amount.StringFixed(2)),
		zap.String("paid_through", string(d.PaidThrough)),
	)
	publish(ctx, s.publisher, s.logger,
		accountability.NewTrancheEvent(accountability.EventTypeTrancheDisbursed, ref, name, d.Amount).WithChannel(d.PaidThrough))
	return t, nil
}

// RecordReturnedFunds overwrites the tranche's returned-funds slot
func (s *TrancheService) RecordReturnedFunds(ctx context.Context, id uuid.UUID, req ReturnedFundsRequest, actor string) (*accountability.Tranche, error) {
	name, err := accountability.RequireTrancheName(req.TrancheName)
	if err != nil {
		return nil, err
	}
	rf, err := accountability.NewReturnedFunds(accountability.FundsInput{
		Amount:     req.Amount,
		Reason:     req.Reason,
		Date:       req.ReturnDate,
		RecordedBy: orActor(req.RecordedBy, actor),
	}, s.now())
	if err != nil {
		return nil, err
	}

	ref, err := s.repo.RecordRef(ctx, id)
	if err != nil {
		return nil, err
	}
	t, err := s.repo.SetReturnedFunds(ctx, id, name, rf)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.publisher, s.logger,
		accountability.NewTrancheEvent(accountability.EventTypeFundsReturned, ref, name, rf.Amount))
	return t, nil
}

// RecordHeldFunds overwrites the tranche's held-funds slot
func (s *TrancheService) RecordHeldFunds(ctx context.Context, id uuid.UUID, req HeldFundsRequest, actor string) (*accountability.Tranche, error) {
	name, err := accountability.RequireTrancheName(req.TrancheName)
	if err != nil {
		return nil, err
	}
	hf, err := accountability.NewHeldFunds(accountability.FundsInput{
		Amount:     req.Amount,
		Reason:     req.Reason,
		Date:       req.DateHeld,
		RecordedBy: orActor(req.RecordedBy, actor),
		HeldBy:     req.HeldBy,
	}, s.now())
	if err != nil {
		return nil, err
	}

	ref, err := s.repo.RecordRef(ctx, id)
	if err != nil {
		return nil, err
	}
	t, err := s.repo.SetHeldFunds(ctx, id, name, hf)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.publisher, s.logger,
		accountability.NewTrancheEvent(accountability.EventTypeFundsHeld, ref, name, hf.Amount))
	return t, nil
}

// RecordRevenue appends a revenue line to a tranche
func (s *TrancheService) RecordRevenue(ctx context.Context, id uuid.UUID, req FlowRequest) (*accountability.Tranche, error) {
	name, err := accountability.RequireTrancheName(req.TrancheName)
	if err != nil {
		return nil, err
	}
	r, err := accountability.NewRevenue(flowInput(req), s.now())
	if err != nil {
		return nil, err
	}

	ref, err := s.repo.RecordRef(ctx, id)
	if err != nil {
		return nil, err
	}
	t, err := s.repo.AddRevenue(ctx, id, name, r)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.publisher, s.logger,
		accountability.NewTrancheEvent(accountability.EventTypeRevenueRecorded, ref, name, r.Amount).WithEntry(r.ID))
	return t, nil
}

// RecordExpenditure appends an expenditure line to a tranche
func (s *TrancheService) RecordExpenditure(ctx context.Context, id uuid.UUID, req FlowRequest) (*accountability.Tranche, error) {
	name, err := accountability.RequireTrancheName(req.TrancheName)
	if err != nil {
		return nil, err
	}
	e, err := accountability.NewExpenditure(flowInput(req), s.now())
	if err != nil {
		return nil, err
	}

	ref, err := s.repo.RecordRef(ctx, id)
	if err != nil {
		return nil, err
	}
	t, err := s.repo.AddExpenditure(ctx, id, name, e)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.publisher, s.logger,
		accountability.NewTrancheEvent(accountability.EventTypeExpenditureRecorded, ref, name, e.Amount).WithEntry(e.ID))
	return t, nil
}

func flowInput(req FlowRequest) accountability.FlowInput {
	return accountability.FlowInput{
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		Date:        req.Date,
	}
}

func orActor(value, actor string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return strings.TrimSpace(actor)
}
