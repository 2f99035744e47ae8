package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNewMoney(t *testing.T) {
	t.Run("creates money with valid amount and currency", func(t *testing.T) {
		m, err := NewMoney(d("100.50"), USD)
		require.NoError(t, err)
		assert.Equal(t, USD, m.Currency())
		assert.True(t, m.Amount().Equal(d("100.5")))
	})

	t.Run("returns error for empty currency", func(t *testing.T) {
		_, err := NewMoney(d("100"), "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "currency cannot be empty")
	})
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"700.007", "700.01"},
		{"6999.993", "6999.99"},
		{"0.005", "0.01"},
		{"105", "105"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.True(t, Round2(d(tt.in)).Equal(d(tt.want)), "got %s", Round2(d(tt.in)))
		})
	}
}

func TestPercentOf(t *testing.T) {
	assert.True(t, PercentOf(d("700"), d("15")).Equal(d("105")))
	assert.True(t, PercentOf(d("1000.01"), d("70")).Equal(d("700.01")))
	assert.True(t, PercentOf(d("500"), decimal.Zero).IsZero())
}

func TestRatio(t *testing.T) {
	t.Run("zero whole yields zero", func(t *testing.T) {
		assert.True(t, Ratio(d("10"), decimal.Zero).IsZero())
	})

	t.Run("rounds to one place", func(t *testing.T) {
		assert.True(t, Ratio(d("1"), d("3")).Equal(d("33.3")))
		assert.True(t, Ratio(d("1200"), d("1000")).Equal(d("120")))
	})
}

func TestIsCents(t *testing.T) {
	assert.True(t, IsCents(d("700")))
	assert.True(t, IsCents(d("700.50")))
	assert.True(t, IsCents(d("700.100")))
	assert.False(t, IsCents(d("700.004")))
	assert.False(t, IsCents(d("-0.001")))
}

func TestMoneyConvertToSSP(t *testing.T) {
	t.Run("converts foreign currency", func(t *testing.T) {
		usd, _ := NewMoney(d("12.5"), USD)
		ssp, err := usd.ConvertToSSP(d("1300"))
		require.NoError(t, err)
		assert.Equal(t, SSP, ssp.Currency())
		assert.True(t, ssp.Amount().Equal(d("16250")))
	})

	t.Run("ssp ignores rate", func(t *testing.T) {
		m, err := NewMoney(d("10"), SSP)
		require.NoError(t, err)
		ssp, err := m.ConvertToSSP(decimal.Zero)
		require.NoError(t, err)
		assert.Equal(t, m, ssp)
	})

	t.Run("rejects non-positive rate", func(t *testing.T) {
		usd, _ := NewMoney(d("1"), USD)
		_, err := usd.ConvertToSSP(decimal.Zero)
		assert.Error(t, err)
	})
}

func TestMoneyJSON(t *testing.T) {
	m, err := NewMoney(d("12.30"), SSP)
	require.NoError(t, err)
	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"12.3","currency":"SSP"}`, string(b))
	assert.Equal(t, "SSP 12.30", m.String())
}
