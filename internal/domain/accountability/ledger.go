package accountability

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schoolgrants/backend/internal/domain/shared"
	"github.com/schoolgrants/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// AccountingEntry is one itemized ledger line against a tranche
type AccountingEntry struct {
	ID           uuid.UUID       `json:"id"`
	Field        string          `json:"field"`
	Value        decimal.Decimal `json:"value"`
	Comment      string          `json:"comment"`
	Category     string          `json:"category"`
	DateRecorded time.Time       `json:"dateRecorded"`
	RecordedBy   string          `json:"recordedBy"`
	ReceiptKey   string          `json:"receiptKey,omitempty"`
}

// EntryInput carries the fields of a new ledger line
type EntryInput struct {
	Field      string
	Value      *decimal.Decimal
	Comment    string
	Category   string
	RecordedBy string
}

// NewAccountingEntry validates input and assigns a fresh id and timestamp
func NewAccountingEntry(in EntryInput, now time.Time) (AccountingEntry, error) {
	field := strings.TrimSpace(in.Field)
	if field == "" {
		return AccountingEntry{}, shared.NewDomainError(shared.CodeValidation, "field is required")
	}
	if in.Value == nil {
		return AccountingEntry{}, shared.NewDomainError(shared.CodeValidation, "value must be a number")
	}
	return AccountingEntry{
		ID:           uuid.New(),
		Field:        field,
		Value:        valueobject.Round2(*in.Value),
		Comment:      in.Comment,
		Category:     orDefault(in.Category, DefaultCategory),
		DateRecorded: now,
		RecordedBy:   orDefault(in.RecordedBy, UnknownActor),
	}, nil
}

// EntryPatch is a partial update; nil fields are left unchanged
type EntryPatch struct {
	Field    *string
	Value    *decimal.Decimal
	Comment  *string
	Category *string
}

// IsEmpty reports whether the patch changes nothing
func (p EntryPatch) IsEmpty() bool {
	return p.Field == nil && p.Value == nil && p.Comment == nil && p.Category == nil
}

// Validate rejects a blank field name
func (p EntryPatch) Validate() error {
	if p.Field != nil && strings.TrimSpace(*p.Field) == "" {
		return shared.NewDomainError(shared.CodeValidation, "field cannot be blank")
	}
	return nil
}

// Apply writes the supplied fields onto e
func (p EntryPatch) Apply(e *AccountingEntry) {
	if p.Field != nil {
		e.Field = strings.TrimSpace(*p.Field)
	}
	if p.Value != nil {
		e.Value = valueobject.Round2(*p.Value)
	}
	if p.Comment != nil {
		e.Comment = *p.Comment
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
}
