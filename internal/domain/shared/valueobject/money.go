package valueobject

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	SSP Currency = "SSP" // South Sudanese Pound (reporting currency)
	USD Currency = "USD" // US Dollar
)

// DefaultCurrency is the currency grants are reported in
const DefaultCurrency = SSP

var hundred = decimal.NewFromInt(100)

// Round2 rounds a monetary amount to two decimal places, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// IsCents reports whether d has no digits beyond the second decimal place.
func IsCents(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(2))
}

// Round1 rounds a percentage to one decimal place.
func Round1(d decimal.Decimal) decimal.Decimal {
	return d.Round(1)
}

// PercentOf returns amount*pct/100 rounded to two places.
func PercentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return Round2(amount.Mul(pct).Div(hundred))
}

// Ratio returns part/whole*100 rounded to one place, or zero when whole is zero.
func Ratio(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return Round1(part.Div(whole).Mul(hundred))
}

// Money is a value object representing monetary amounts
// It is immutable - all operations return new Money instances
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates a new Money with the specified amount and currency
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	return Money{amount: amount, currency: currency}, nil
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// ConvertToSSP converts using a units-of-SSP-per-unit rate. SSP amounts
// are returned unchanged whatever the rate.
func (m Money) ConvertToSSP(rate decimal.Decimal) (Money, error) {
	if m.currency == SSP {
		return m, nil
	}
	if !rate.IsPositive() {
		return Money{}, fmt.Errorf("exchange rate for %s must be positive", m.currency)
	}
	return Money{amount: Round2(m.amount.Mul(rate)), currency: SSP}, nil
}

// String returns a string representation of the money
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.currency, m.amount.StringFixed(2))
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   decimal.Decimal `json:"amount"`
		Currency Currency        `json:"currency"`
	}{
		Amount:   m.amount,
		Currency: m.currency,
	})
}
