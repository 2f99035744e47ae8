package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/schoolgrants/backend/internal/domain/accountability"
	"github.com/schoolgrants/backend/internal/domain/shared"
	"github.com/schoolgrants/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAccountabilityRepository implements accountability.Repository using GORM.
// Tranche mutations are conditional UPDATEs against the tranche row so that
// concurrent writers never overwrite each other's fields.
type GormAccountabilityRepository struct {
	db *gorm.DB
}

// NewGormAccountabilityRepository creates a new GormAccountabilityRepository
func NewGormAccountabilityRepository(db *gorm.DB) *GormAccountabilityRepository {
	return &GormAccountabilityRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormAccountabilityRepository) WithTx(tx *gorm.DB) *GormAccountabilityRepository {
	return &GormAccountabilityRepository{db: tx}
}

func preloadTranches(q *gorm.DB) *gorm.DB {
	return q.Preload("Tranches").
		Preload("Tranches.Entries", func(db *gorm.DB) *gorm.DB { return db.Order("date_recorded ASC") }).
		Preload("Tranches.Revenues", func(db *gorm.DB) *gorm.DB { return db.Order("date_received ASC") }).
		Preload("Tranches.Expenditures", func(db *gorm.DB) *gorm.DB { return db.Order("date_spent ASC") })
}

// FindByID finds a record with all tranches
func (r *GormAccountabilityRepository) FindByID(ctx context.Context, id uuid.UUID) (*accountability.Accountability, error) {
	return r.findOne(preloadTranches(r.db.WithContext(ctx)).Where("id = ?", id))
}

// FindByCodeAndYear finds the record of a school for a year
func (r *GormAccountabilityRepository) FindByCodeAndYear(ctx context.Context, code string, academicYear int) (*accountability.Accountability, error) {
	return r.findOne(preloadTranches(r.db.WithContext(ctx)).Where("code = ? AND academic_year = ?", code, academicYear))
}

func (r *GormAccountabilityRepository) findOne(q *gorm.DB) (*accountability.Accountability, error) {
	var model models.AccountabilityModel
	if err := q.First(&model).Error; err != nil {
		return nil, translateError(err, shared.ErrAccountabilityNotFound)
	}
	return model.ToDomain()
}

// List returns a page of records matching the filter and the total count
func (r *GormAccountabilityRepository) List(ctx context.Context, filter accountability.Filter) ([]accountability.Accountability, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AccountabilityModel{})
	if filter.Code != "" {
		query = query.Where("code = ?", filter.Code)
	}
	if filter.AcademicYear != 0 {
		query = query.Where("academic_year = ?", filter.AcademicYear)
	}
	if filter.SchoolType != "" {
		query = query.Where("school_type = ?", filter.SchoolType)
	}
	if filter.State != "" {
		query = query.Where("state = ?", filter.State)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count accountabilities: %w", err)
	}

	sortField := ValidateSortField(filter.OrderBy, AccountabilitySortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	query = query.Order(sortField + " " + sortOrder)
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.AccountabilityModel
	if err := preloadTranches(query).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list accountabilities: %w", err)
	}
	out := make([]accountability.Accountability, 0, len(rows))
	for i := range rows {
		a, err := rows[i].ToDomain()
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *a)
	}
	return out, total, nil
}

// Create inserts the record with its tranches
func (r *GormAccountabilityRepository) Create(ctx context.Context, a *accountability.Accountability) error {
	model, err := models.AccountabilityModelFromDomain(a)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(model).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("create accountability for %s/%d: %w", a.Code, a.AcademicYear, err)
	}
	return nil
}

// RecordRef loads only the identifying columns of a record
func (r *GormAccountabilityRepository) RecordRef(ctx context.Context, id uuid.UUID) (accountability.RecordRef, error) {
	var model models.AccountabilityModel
	err := r.db.WithContext(ctx).Select("id", "code", "academic_year").Where("id = ?", id).First(&model).Error
	if err != nil {
		return accountability.RecordRef{}, translateError(err, shared.ErrAccountabilityNotFound)
	}
	return accountability.RecordRef{ID: model.ID, Code: model.Code, AcademicYear: model.AcademicYear}, nil
}

// trancheRow resolves a tranche by record id and name. A miss reports
// whether the record or only the tranche is absent.
func (r *GormAccountabilityRepository) trancheRow(ctx context.Context, id uuid.UUID, name string) (*models.AccountabilityTrancheModel, error) {
	var row models.AccountabilityTrancheModel
	err := r.db.WithContext(ctx).
		Where("accountability_id = ? AND name = ?", id, accountability.CanonicalTrancheName(name)).
		First(&row).Error
	if err == nil {
		return &row, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load tranche %q of %s: %w", name, id, err)
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.AccountabilityModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check accountability %s: %w", id, err)
	}
	if count == 0 {
		return nil, shared.ErrAccountabilityNotFound
	}
	return nil, shared.ErrTrancheNotFound
}

func (r *GormAccountabilityRepository) loadTranche(ctx context.Context, trancheID uuid.UUID) (*accountability.Tranche, error) {
	var row models.AccountabilityTrancheModel
	err := r.db.WithContext(ctx).
		Preload("Entries", func(db *gorm.DB) *gorm.DB { return db.Order("date_recorded ASC") }).
		Preload("Revenues", func(db *gorm.DB) *gorm.DB { return db.Order("date_received ASC") }).
		Preload("Expenditures", func(db *gorm.DB) *gorm.DB { return db.Order("date_spent ASC") }).
		Where("id = ?", trancheID).
		First(&row).Error
	if err != nil {
		return nil, translateError(err, shared.ErrTrancheNotFound)
	}
	t, err := row.ToDomain()
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// updateTranche applies cols to one tranche row in a single statement.
// It returns the number of rows matched; zero with no error means the
// extra condition did not hold.
func (r *GormAccountabilityRepository) updateTranche(ctx context.Context, trancheID uuid.UUID, cols map[string]interface{}, cond string, args ...interface{}) (int64, error) {
	cols["updated_at"] = time.Now()
	q := r.db.WithContext(ctx).Model(&models.AccountabilityTrancheModel{}).Where("id = ?", trancheID)
	if cond != "" {
		q = q.Where(cond, args...)
	}
	result := q.Updates(cols)
	if result.Error != nil {
		return 0, fmt.Errorf("update tranche %s: %w", trancheID, result.Error)
	}
	return result.RowsAffected, nil
}

// ApproveTranche applies the change through Tranche.ApplyApproval and writes
// the approval block and ceiling back
func (r *GormAccountabilityRepository) ApproveTranche(ctx context.Context, id uuid.UUID, trancheName string, change accountability.ApprovalChange) (*accountability.Tranche, error) {
	row, err := r.trancheRow(ctx, id, trancheName)
	if err != nil {
		return nil, err
	}
	t, err := row.ToDomain()
	if err != nil {
		return nil, err
	}
	t.ApplyApproval(change)
	cols := map[string]interface{}{
		"approved_by":     t.Approval.ApprovedBy,
		"approver_name":   t.Approval.ApproverName,
		"approval_date":   t.Approval.ApprovalDate,
		"approval_status": string(t.Approval.Status),
		"approval_remark": t.Approval.Remarks,
	}
	if change.AmountApproved != nil {
		cols["amount_approved"] = t.AmountApproved
	}
	if _, err := r.updateTranche(ctx, row.ID, cols, ""); err != nil {
		return nil, err
	}
	return r.loadTranche(ctx, row.ID)
}

// disburseAttempts bounds how often DisburseTranche re-reads a tranche whose
// ceiling was lowered between the read and the write
const disburseAttempts = 3

// DisburseTranche checks the ceiling with Tranche.Disburse, then writes the
// outcome in one UPDATE conditioned on amount_approved not having dropped
// below the ceiling that was checked. A lowered ceiling makes the tranche
// re-read and re-checked.
func (r *GormAccountabilityRepository) DisburseTranche(ctx context.Context, id uuid.UUID, trancheName string, d accountability.Disbursement) (*accountability.Tranche, error) {
	for attempt := 0; attempt < disburseAttempts; attempt++ {
		row, err := r.trancheRow(ctx, id, trancheName)
		if err != nil {
			return nil, err
		}
		t, err := row.ToDomain()
		if err != nil {
			return nil, err
		}
		checked := t.AmountApproved
		if err := t.Disburse(d); err != nil {
			return nil, err
		}
		cols := map[string]interface{}{
			"amount_disbursed":   t.AmountDisbursed,
			"paid_by":            t.PaidBy,
			"paid_through":       string(t.PaidThrough),
			"date_disbursed":     t.DateDisbursed,
			"received_by_school": t.FundsAccountability.ReceivedBySchool,
			"bank_instructed":    t.FundsAccountability.BankInstructed,
		}
		n, err := r.updateTranche(ctx, row.ID, cols, "amount_approved >= ?", checked)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return r.loadTranche(ctx, row.ID)
		}
	}
	return nil, shared.ErrConcurrencyConflict
}

// SetReturnedFunds replaces the returned funds slot
func (r *GormAccountabilityRepository) SetReturnedFunds(ctx context.Context, id uuid.UUID, trancheName string, rf accountability.ReturnedFunds) (*accountability.Tranche, error) {
	return r.setFundsColumn(ctx, id, trancheName, "returned_funds", rf)
}

// SetHeldFunds replaces the held funds slot
func (r *GormAccountabilityRepository) SetHeldFunds(ctx context.Context, id uuid.UUID, trancheName string, hf accountability.HeldFunds) (*accountability.Tranche, error) {
	return r.setFundsColumn(ctx, id, trancheName, "held_funds", hf)
}

func (r *GormAccountabilityRepository) setFundsColumn(ctx context.Context, id uuid.UUID, trancheName, column string, v interface{}) (*accountability.Tranche, error) {
	doc, err := models.MarshalJSON(v)
	if err != nil {
		return nil, err
	}
	row, err := r.trancheRow(ctx, id, trancheName)
	if err != nil {
		return nil, err
	}
	if _, err := r.updateTranche(ctx, row.ID, map[string]interface{}{column: doc}, ""); err != nil {
		return nil, err
	}
	return r.loadTranche(ctx, row.ID)
}

// AddRevenue appends a revenue line
func (r *GormAccountabilityRepository) AddRevenue(ctx context.Context, id uuid.UUID, trancheName string, rev accountability.Revenue) (*accountability.Tranche, error) {
	row, err := r.trancheRow(ctx, id, trancheName)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Create(models.RevenueModelFromDomain(row.ID, rev)).Error; err != nil {
		return nil, fmt.Errorf("add revenue to %q of %s: %w", row.Name, id, err)
	}
	return r.loadTranche(ctx, row.ID)
}

// AddExpenditure appends an expenditure line
func (r *GormAccountabilityRepository) AddExpenditure(ctx context.Context, id uuid.UUID, trancheName string, e accountability.Expenditure) (*accountability.Tranche, error) {
	row, err := r.trancheRow(ctx, id, trancheName)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Create(models.ExpenditureModelFromDomain(row.ID, e)).Error; err != nil {
		return nil, fmt.Errorf("add expenditure to %q of %s: %w", row.Name, id, err)
	}
	return r.loadTranche(ctx, row.ID)
}

// AddAccountingEntry appends a ledger line
func (r *GormAccountabilityRepository) AddAccountingEntry(ctx context.Context, id uuid.UUID, trancheName string, e accountability.AccountingEntry) error {
	row, err := r.trancheRow(ctx, id, trancheName)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(models.AccountingEntryModelFromDomain(row.ID, e)).Error; err != nil {
		return fmt.Errorf("add accounting entry to %q of %s: %w", row.Name, id, err)
	}
	return nil
}

// FindAccountingEntry loads one ledger line
func (r *GormAccountabilityRepository) FindAccountingEntry(ctx context.Context, id uuid.UUID, trancheName string, entryID uuid.UUID) (*accountability.AccountingEntry, error) {
	row, err := r.trancheRow(ctx, id, trancheName)
	if err != nil {
		return nil, err
	}
	return r.findEntry(ctx, row.ID, entryID)
}

func (r *GormAccountabilityRepository) findEntry(ctx context.Context, trancheID, entryID uuid.UUID) (*accountability.AccountingEntry, error) {
	var m models.AccountingEntryModel
	if err := r.db.WithContext(ctx).Where("id = ? AND tranche_id = ?", entryID, trancheID).First(&m).Error; err != nil {
		return nil, translateError(err, shared.ErrEntryNotFound)
	}
	e := m.ToDomain()
	return &e, nil
}

// UpdateAccountingEntry writes only the patched columns of a ledger line
func (r *GormAccountabilityRepository) UpdateAccountingEntry(ctx context.Context, id uuid.UUID, trancheName string, entryID uuid.UUID, patch accountability.EntryPatch) (*accountability.AccountingEntry, error) {
	row, err := r.trancheRow(ctx, id, trancheName)
	if err != nil {
		return nil, err
	}
	// Apply onto a zero entry to reuse the patch's normalization
	var normalized accountability.AccountingEntry
	patch.Apply(&normalized)
	cols := map[string]interface{}{"updated_at": time.Now()}
	if patch.Field != nil {
		cols["field"] = normalized.Field
	}
	if patch.Value != nil {
		cols["value"] = normalized.Value
	}
	if patch.Comment != nil {
		cols["comment"] = normalized.Comment
	}
	if patch.Category != nil {
		cols["category"] = normalized.Category
	}
	result := r.db.WithContext(ctx).Model(&models.AccountingEntryModel{}).
		Where("id = ? AND tranche_id = ?", entryID, row.ID).
		Updates(cols)
	if result.Error != nil {
		return nil, fmt.Errorf("update accounting entry %s: %w", entryID, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, shared.ErrEntryNotFound
	}
	return r.findEntry(ctx, row.ID, entryID)
}

// DeleteAccountingEntry removes a ledger line
func (r *GormAccountabilityRepository) DeleteAccountingEntry(ctx context.Context, id uuid.UUID, trancheName string, entryID uuid.UUID) error {
	row, err := r.trancheRow(ctx, id, trancheName)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Where("id = ? AND tranche_id = ?", entryID, row.ID).Delete(&models.AccountingEntryModel{})
	if result.Error != nil {
		return fmt.Errorf("delete accounting entry %s: %w", entryID, result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrEntryNotFound
	}
	return nil
}

// SetEntryReceipt stores the object key of an uploaded receipt
func (r *GormAccountabilityRepository) SetEntryReceipt(ctx context.Context, id uuid.UUID, trancheName string, entryID uuid.UUID, key string) error {
	row, err := r.trancheRow(ctx, id, trancheName)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Model(&models.AccountingEntryModel{}).
		Where("id = ? AND tranche_id = ?", entryID, row.ID).
		Updates(map[string]interface{}{"receipt_key": key, "updated_at": time.Now()})
	if result.Error != nil {
		return fmt.Errorf("set receipt on entry %s: %w", entryID, result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrEntryNotFound
	}
	return nil
}

// SaveSummary stores the summary snapshot columns
func (r *GormAccountabilityRepository) SaveSummary(ctx context.Context, id uuid.UUID, summary accountability.FinancialSummary) error {
	cols := models.SummaryColumns(summary)
	cols["updated_at"] = time.Now()
	result := r.db.WithContext(ctx).Model(&models.AccountabilityModel{}).Where("id = ?", id).Updates(cols)
	if result.Error != nil {
		return fmt.Errorf("save summary of %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrAccountabilityNotFound
	}
	return nil
}

var _ accountability.Repository = (*GormAccountabilityRepository)(nil)
