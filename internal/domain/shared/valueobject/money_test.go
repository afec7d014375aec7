package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrency_DecimalPlaces(t *testing.T) {
	assert.Equal(t, int32(2), USD.DecimalPlaces())
	assert.Equal(t, int32(2), THB.DecimalPlaces())
	assert.Equal(t, int32(0), JPY.DecimalPlaces())
	assert.Equal(t, int32(0), MMK.DecimalPlaces())
}

func TestCurrency_Epsilon(t *testing.T) {
	assert.True(t, USD.Epsilon().Equal(decimal.RequireFromString("0.005")))
	assert.True(t, JPY.Epsilon().Equal(decimal.RequireFromString("0.5")))
}

func TestCurrency_IsValid(t *testing.T) {
	assert.True(t, USD.IsValid())
	assert.True(t, MMK.IsValid())
	assert.False(t, Currency("XXX").IsValid())
	assert.False(t, Currency("").IsValid())
}

func TestNewMoney(t *testing.T) {
	m, err := NewMoney(decimal.NewFromInt(100), EUR)
	require.NoError(t, err)
	assert.Equal(t, EUR, m.Currency())

	m, err = NewMoney(decimal.NewFromInt(100), "")
	require.NoError(t, err)
	assert.Equal(t, DefaultCurrency, m.Currency(), "empty currency falls back to the default")

	_, err = NewMoney(decimal.NewFromInt(100), Currency("XXX"))
	assert.Error(t, err)

	m, err = NewMoney(decimal.NewFromInt(-5), USD)
	require.NoError(t, err)
	assert.True(t, m.IsNegative(), "negative amounts are allowed for refunds")
}

func TestMoney_Arithmetic(t *testing.T) {
	a := MustNewMoney(decimal.NewFromInt(10), USD)
	b := MustNewMoney(decimal.NewFromInt(3), USD)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, sum.Amount().Equal(decimal.NewFromInt(13)))

	diff, err := a.Subtract(b)
	require.NoError(t, err)
	assert.True(t, diff.Amount().Equal(decimal.NewFromInt(7)))

	assert.True(t, a.MultiplyByInt(4).Amount().Equal(decimal.NewFromInt(40)))
	assert.True(t, b.Negate().Amount().Equal(decimal.NewFromInt(-3)))
}

func TestMoney_CurrencyMismatch(t *testing.T) {
	usd := MustNewMoney(decimal.NewFromInt(10), USD)
	eur := MustNewMoney(decimal.NewFromInt(10), EUR)

	_, err := usd.Add(eur)
	assert.Error(t, err)

	_, err = usd.Subtract(eur)
	assert.Error(t, err)

	_, err = usd.LessThan(eur)
	assert.Error(t, err)

	_, err = usd.WithinEpsilon(eur)
	assert.Error(t, err)
}

func TestMoney_WithinEpsilon(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		currency Currency
		within   bool
	}{
		{"equal", "10.00", "10.00", USD, true},
		{"at tolerance", "10.000", "10.005", USD, true},
		{"just past tolerance", "10.000", "10.006", USD, false},
		{"whole currency at tolerance", "100", "100.5", JPY, true},
		{"whole currency past tolerance", "100", "100.6", JPY, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := MustNewMoney(decimal.RequireFromString(tt.a), tt.currency)
			b := MustNewMoney(decimal.RequireFromString(tt.b), tt.currency)

			within, err := a.WithinEpsilon(b)
			require.NoError(t, err)
			assert.Equal(t, tt.within, within)
		})
	}
}

func TestMoney_Round(t *testing.T) {
	m := MustNewMoney(decimal.RequireFromString("10.006"), USD)
	assert.True(t, m.Round().Amount().Equal(decimal.RequireFromString("10.01")))

	yen := MustNewMoney(decimal.RequireFromString("100.4"), JPY)
	assert.True(t, yen.Round().Amount().Equal(decimal.NewFromInt(100)))
}

func TestMoney_Allocate(t *testing.T) {
	m := MustNewMoney(decimal.RequireFromString("100.00"), USD)

	parts, err := m.Allocate(3)
	require.NoError(t, err)
	require.Len(t, parts, 3)

	assert.True(t, parts[0].Amount().Equal(decimal.RequireFromString("33.34")), "leading part takes the remainder cent")
	assert.True(t, parts[1].Amount().Equal(decimal.RequireFromString("33.33")))
	assert.True(t, parts[2].Amount().Equal(decimal.RequireFromString("33.33")))

	total := ZeroMoney(USD)
	for _, p := range parts {
		total = total.MustAdd(p)
	}
	assert.True(t, total.Equals(m), "parts sum exactly to the original")
}

func TestMoney_Allocate_Validation(t *testing.T) {
	m := MustNewMoney(decimal.NewFromInt(10), USD)

	_, err := m.Allocate(0)
	assert.Error(t, err)

	parts, err := m.Allocate(1)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.True(t, parts[0].Equals(m))
}

func TestMoney_JSONRoundTrip(t *testing.T) {
	m := MustNewMoney(decimal.RequireFromString("19.99"), GBP)

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var got Money
	require.NoError(t, json.Unmarshal(data, &got))
	assert.True(t, got.Equals(m))
}

func TestMoney_String(t *testing.T) {
	assert.Equal(t, "19.99 USD", MustNewMoney(decimal.RequireFromString("19.99"), USD).String())
	assert.Equal(t, "100 JPY", MustNewMoney(decimal.NewFromInt(100), JPY).String())
}
