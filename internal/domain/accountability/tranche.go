package accountability

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schoolgrants/backend/internal/domain/shared"
	"github.com/schoolgrants/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Defaults applied to optional actor and category fields
const (
	UnknownActor    = "Unknown"
	DefaultCategory = "General"
)

var titleCaser = cases.Title(language.English)

// TrancheName returns the conventional name of the n-th tranche (1-based)
func TrancheName(n int) string {
	return fmt.Sprintf("Tranche %d", n)
}

// CanonicalTrancheName normalizes whitespace and casing so "tranche  1"
// matches "Tranche 1". An empty result means the name was blank.
func CanonicalTrancheName(name string) string {
	return titleCaser.String(strings.Join(strings.Fields(name), " "))
}

// RequireTrancheName validates and canonicalizes a caller-supplied tranche name
func RequireTrancheName(name string) (string, error) {
	n := CanonicalTrancheName(name)
	if n == "" {
		return "", shared.NewDomainError(shared.CodeValidation, "trancheName is required")
	}
	return n, nil
}

// ApprovalStatus is the approval state of a tranche
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "Pending"
	ApprovalApproved ApprovalStatus = "Approved"
	ApprovalRejected ApprovalStatus = "Rejected"
)

// IsValid checks if the status is a known ApprovalStatus
func (s ApprovalStatus) IsValid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}

// ParseApprovalStatus accepts any casing. An empty value means Approved.
func ParseApprovalStatus(s string) (ApprovalStatus, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ApprovalApproved, nil
	}
	st := ApprovalStatus(titleCaser.String(s))
	if !st.IsValid() {
		return "", shared.NewDomainError(shared.CodeInvalidApprovalStatus,
			fmt.Sprintf("status must be one of Pending, Approved, Rejected, got %q", s))
	}
	return st, nil
}

// PaidThrough is the channel a disbursement was paid through
type PaidThrough string

const (
	PaidThroughNone        PaidThrough = ""
	PaidThroughBank        PaidThrough = "Bank"
	PaidThroughPayAgent    PaidThrough = "Pay Agent"
	PaidThroughMobileMoney PaidThrough = "Mobile Money"
)

// ParsePaidThrough accepts only the three payment channels
func ParsePaidThrough(s string) (PaidThrough, error) {
	switch p := PaidThrough(s); p {
	case PaidThroughBank, PaidThroughPayAgent, PaidThroughMobileMoney:
		return p, nil
	}
	return "", shared.NewDomainError(shared.CodeInvalidPaidThrough,
		fmt.Sprintf("paidThrough must be one of Bank, Pay Agent, Mobile Money, got %q", s))
}

// Approval records who approved a tranche and when
type Approval struct {
	ApprovedBy   string         `json:"approvedBy"`
	ApproverName string         `json:"approverName"`
	ApprovalDate *time.Time     `json:"approvalDate,omitempty"`
	Status       ApprovalStatus `json:"status"`
	Remarks      string         `json:"remarks"`
}

// ReturnedFunds is money sent back by the school
type ReturnedFunds struct {
	Amount     decimal.Decimal `json:"amount"`
	ReturnDate time.Time       `json:"returnDate"`
	Reason     string          `json:"reason"`
	RecordedBy string          `json:"recordedBy"`
}

// HeldFunds is money withheld from the school
type HeldFunds struct {
	Amount     decimal.Decimal `json:"amount"`
	HeldBy     string          `json:"heldBy"`
	Reason     string          `json:"reason"`
	DateHeld   time.Time       `json:"dateHeld"`
	RecordedBy string          `json:"recordedBy"`
}

// FundsAccountability tracks what happened to disbursed money
type FundsAccountability struct {
	BankInstructed    bool              `json:"bankInstructed"`
	ReturnedFunds     *ReturnedFunds    `json:"returnedFunds,omitempty"`
	HeldFunds         *HeldFunds        `json:"heldFunds,omitempty"`
	ReceivedBySchool  decimal.Decimal   `json:"receivedBySchool"`
	AccountingEntries []AccountingEntry `json:"accountingEntries"`
}

// Revenue is income received against a tranche
type Revenue struct {
	ID           uuid.UUID       `json:"id"`
	Amount       decimal.Decimal `json:"amount"`
	Category     string          `json:"category"`
	Description  string          `json:"description"`
	DateReceived time.Time       `json:"dateReceived"`
}

// Expenditure is money spent from a tranche
type Expenditure struct {
	ID          uuid.UUID       `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	DateSpent   time.Time       `json:"dateSpent"`
}

// Tranche is one scheduled partial disbursement of a grant
type Tranche struct {
	ID                     uuid.UUID            `json:"id"`
	Name                   string               `json:"name"`
	Position               int                  `json:"position"`
	Currency               valueobject.Currency `json:"currency"`
	AmountApproved         decimal.Decimal      `json:"amountApproved"`
	AmountDisbursed        decimal.Decimal      `json:"amountDisbursed"`
	InflationCorrectionPct decimal.Decimal      `json:"inflationCorrectionPct"`
	InflationCorrection    decimal.Decimal      `json:"inflationCorrection"`
	Approval               Approval             `json:"approval"`
	PaidBy                 string               `json:"paidBy"`
	PaidThrough            PaidThrough          `json:"paidThrough"`
	DateDisbursed          *time.Time           `json:"dateDisbursed,omitempty"`
	FundsAccountability    FundsAccountability  `json:"fundsAccountability"`
	Revenues               []Revenue            `json:"revenues"`
	Expenditures           []Expenditure        `json:"expenditures"`
}

// ApprovalInput carries caller-supplied approval fields
type ApprovalInput struct {
	ApprovedBy     string
	ApproverName   string
	ApprovalDate   *time.Time
	Status         string
	Remarks        string
	AmountApproved *decimal.Decimal
}

// ApprovalChange is a validated approval with defaults applied
type ApprovalChange struct {
	Approval       Approval
	AmountApproved *decimal.Decimal
}

// NewApprovalChange validates input. approvalDate defaults to now and
// status to Approved.
func NewApprovalChange(in ApprovalInput, now time.Time) (ApprovalChange, error) {
	status, err := ParseApprovalStatus(in.Status)
	if err != nil {
		return ApprovalChange{}, err
	}
	if in.AmountApproved != nil && in.AmountApproved.IsNegative() {
		return ApprovalChange{}, shared.NewDomainError(shared.CodeValidation, "amountApproved cannot be negative")
	}
	date := now
	if in.ApprovalDate != nil {
		date = *in.ApprovalDate
	}
	change := ApprovalChange{
		Approval: Approval{
			ApprovedBy:   in.ApprovedBy,
			ApproverName: in.ApproverName,
			ApprovalDate: &date,
			Status:       status,
			Remarks:      in.Remarks,
		},
	}
	if in.AmountApproved != nil {
		amt := valueobject.Round2(*in.AmountApproved)
		change.AmountApproved = &amt
	}
	return change, nil
}

// ApplyApproval sets the approval block and optionally the ceiling
func (t *Tranche) ApplyApproval(c ApprovalChange) {
	t.Approval = c.Approval
	if c.AmountApproved != nil {
		t.AmountApproved = *c.AmountApproved
	}
}

// DisbursementInput carries caller-supplied disbursement fields
type DisbursementInput struct {
	Amount           *decimal.Decimal
	PaidBy           string
	DisbursementDate *time.Time
	PaidThrough      string
}

// Disbursement is a validated disbursement with defaults applied
type Disbursement struct {
	Amount      decimal.Decimal
	PaidBy      string
	PaidThrough PaidThrough
	Date        time.Time
}

// NewDisbursement validates the channel first, then the amount. The amount is
// taken as given, never rounded, so the ceiling check sees what was asked for.
// paidBy defaults to Unknown and the date to now.
func NewDisbursement(in DisbursementInput, now time.Time) (Disbursement, error) {
	channel, err := ParsePaidThrough(in.PaidThrough)
	if err != nil {
		return Disbursement{}, err
	}
	if in.Amount == nil {
		return Disbursement{}, shared.NewDomainError(shared.CodeValidation, "amountDisbursed is required")
	}
	if in.Amount.IsNegative() {
		return Disbursement{}, shared.NewDomainError(shared.CodeValidation, "amountDisbursed cannot be negative")
	}
	if !valueobject.IsCents(*in.Amount) {
		return Disbursement{}, shared.NewDomainError(shared.CodeValidation, "amountDisbursed cannot have more than two decimal places")
	}
	d := Disbursement{
		Amount:      *in.Amount,
		PaidBy:      orDefault(in.PaidBy, UnknownActor),
		PaidThrough: channel,
		Date:        now,
	}
	if in.DisbursementDate != nil {
		d.Date = *in.DisbursementDate
	}
	return d, nil
}

// ExceedsApprovedError builds the error naming both the requested and approved amounts
func ExceedsApprovedError(requested, approved decimal.Decimal) error {
	return shared.NewDomainError(shared.CodeExceedsApproved,
		fmt.Sprintf("Disbursement amount %s exceeds approved amount %s", requested.StringFixed(2), approved.StringFixed(2)))
}

// Disburse records a disbursement if it does not exceed the approved amount.
// The tranche is left untouched on failure.
func (t *Tranche) Disburse(d Disbursement) error {
	if d.Amount.GreaterThan(t.AmountApproved) {
		return ExceedsApprovedError(d.Amount, t.AmountApproved)
	}
	date := d.Date
	t.AmountDisbursed = d.Amount
	t.PaidBy = d.PaidBy
	t.PaidThrough = d.PaidThrough
	t.DateDisbursed = &date
	t.FundsAccountability.ReceivedBySchool = d.Amount
	if d.PaidThrough == PaidThroughBank {
		t.FundsAccountability.BankInstructed = true
	}
	return nil
}

// FundsInput carries returned or held funds fields
type FundsInput struct {
	Amount     decimal.Decimal
	Reason     string
	Date       *time.Time
	RecordedBy string
	HeldBy     string
}

func validateFundsAmount(amount decimal.Decimal) error {
	if amount.IsZero() {
		return shared.NewDomainError(shared.CodeValidation, "amount is required")
	}
	return nil
}

// NewReturnedFunds validates input; the amount must be non-zero
func NewReturnedFunds(in FundsInput, now time.Time) (ReturnedFunds, error) {
	if err := validateFundsAmount(in.Amount); err != nil {
		return ReturnedFunds{}, err
	}
	rf := ReturnedFunds{
		Amount:     valueobject.Round2(in.Amount),
		ReturnDate: now,
		Reason:     in.Reason,
		RecordedBy: orDefault(in.RecordedBy, UnknownActor),
	}
	if in.Date != nil {
		rf.ReturnDate = *in.Date
	}
	return rf, nil
}

// NewHeldFunds validates input; the amount must be non-zero
func NewHeldFunds(in FundsInput, now time.Time) (HeldFunds, error) {
	if err := validateFundsAmount(in.Amount); err != nil {
		return HeldFunds{}, err
	}
	hf := HeldFunds{
		Amount:     valueobject.Round2(in.Amount),
		HeldBy:     in.HeldBy,
		Reason:     in.Reason,
		DateHeld:   now,
		RecordedBy: orDefault(in.RecordedBy, UnknownActor),
	}
	if in.Date != nil {
		hf.DateHeld = *in.Date
	}
	return hf, nil
}

// FlowInput carries a revenue or expenditure line
type FlowInput struct {
	Amount      decimal.Decimal
	Category    string
	Description string
	Date        *time.Time
}

func newFlow(in FlowInput, now time.Time) (decimal.Decimal, string, time.Time, error) {
	if !in.Amount.IsPositive() {
		return decimal.Zero, "", time.Time{}, shared.NewDomainError(shared.CodeValidation, "amount must be positive")
	}
	date := now
	if in.Date != nil {
		date = *in.Date
	}
	return valueobject.Round2(in.Amount), orDefault(in.Category, DefaultCategory), date, nil
}

// NewRevenue validates a revenue line
func NewRevenue(in FlowInput, now time.Time) (Revenue, error) {
	amount, category, date, err := newFlow(in, now)
	if err != nil {
		return Revenue{}, err
	}
	return Revenue{ID: uuid.New(), Amount: amount, Category: category, Description: in.Description, DateReceived: date}, nil
}

// NewExpenditure validates an expenditure line
func NewExpenditure(in FlowInput, now time.Time) (Expenditure, error) {
	amount, category, date, err := newFlow(in, now)
	if err != nil {
		return Expenditure{}, err
	}
	return Expenditure{ID: uuid.New(), Amount: amount, Category: category, Description: in.Description, DateSpent: date}, nil
}

// TotalAccounted sums the tranche's accounting entry values
func (t *Tranche) TotalAccounted() decimal.Decimal {
	total := decimal.Zero
	for _, e := range t.FundsAccountability.AccountingEntries {
		total = total.Add(e.Value)
	}
	return total
}

// TotalRevenue sums the tranche's revenues
func (t *Tranche) TotalRevenue() decimal.Decimal {
	total := decimal.Zero
	for _, r := range t.Revenues {
		total = total.Add(r.Amount)
	}
	return total
}

// TotalExpenditure sums the tranche's recorded expenditures
func (t *Tranche) TotalExpenditure() decimal.Decimal {
	total := decimal.Zero
	for _, e := range t.Expenditures {
		total = total.Add(e.Amount)
	}
	return total
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
