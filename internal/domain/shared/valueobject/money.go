package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 currency code.
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	CNY Currency = "CNY"
	JPY Currency = "JPY"
	THB Currency = "THB"
	MMK Currency = "MMK"
)

// DefaultCurrency is used when a tenant has not configured one.
const DefaultCurrency = USD

func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether the currency is one of the supported codes.
func (c Currency) IsValid() bool {
	switch c {
	case USD, EUR, GBP, CNY, JPY, THB, MMK:
		return true
	}
	return false
}

// DecimalPlaces returns the minor-unit precision of the currency.
func (c Currency) DecimalPlaces() int32 {
	switch c {
	case JPY, MMK:
		return 0
	default:
		return 2
	}
}

// Epsilon returns the largest difference still considered equal for this
// currency. Reconciliation compares ledger sums against cached amounts
// with this tolerance.
func (c Currency) Epsilon() decimal.Decimal {
	return decimal.New(1, -c.DecimalPlaces()).Div(decimal.NewFromInt(2))
}

// Money is an immutable amount in a single currency.
// The zero value is 0 in the default currency.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates a Money value. Negative amounts are allowed; refunds
// and corrective ledger entries need them.
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		currency = DefaultCurrency
	}
	if !currency.IsValid() {
		return Money{}, fmt.Errorf("unsupported currency: %s", currency)
	}
	return Money{amount: amount, currency: currency}, nil
}

// MustNewMoney is NewMoney that panics on error, for constants and tests.
func MustNewMoney(amount decimal.Decimal, currency Currency) Money {
	m, err := NewMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// NewMoneyFromString parses a decimal string into a Money value.
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	return NewMoney(d, currency)
}

// NewMoneyFromFloat creates a Money from a float64.
func NewMoneyFromFloat(amount float64, currency Currency) (Money, error) {
	return NewMoney(decimal.NewFromFloat(amount), currency)
}

// ZeroMoney returns 0 in the given currency.
func ZeroMoney(currency Currency) Money {
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{amount: decimal.Zero, currency: currency}
}

func (m Money) Amount() decimal.Decimal { return m.amount }

func (m Money) Currency() Currency {
	if m.currency == "" {
		return DefaultCurrency
	}
	return m.currency
}

func (m Money) IsZero() bool     { return m.amount.IsZero() }
func (m Money) IsNegative() bool { return m.amount.IsNegative() }
func (m Money) IsPositive() bool { return m.amount.IsPositive() }

// Add returns the sum. Returns an error if the currencies differ.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency() != other.Currency() {
		return Money{}, fmt.Errorf("cannot add %s and %s", m.Currency(), other.Currency())
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.Currency()}, nil
}

// MustAdd adds two Money values, panics on currency mismatch.
func (m Money) MustAdd(other Money) Money {
	result, err := m.Add(other)
	if err != nil {
		panic(err)
	}
	return result
}

// Subtract returns the difference. Returns an error if the currencies differ.
func (m Money) Subtract(other Money) (Money, error) {
	if m.Currency() != other.Currency() {
		return Money{}, fmt.Errorf("cannot subtract %s and %s", m.Currency(), other.Currency())
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.Currency()}, nil
}

// MustSubtract subtracts two Money values, panics on currency mismatch.
func (m Money) MustSubtract(other Money) Money {
	result, err := m.Subtract(other)
	if err != nil {
		panic(err)
	}
	return result
}

// Multiply returns this Money scaled by the given factor.
func (m Money) Multiply(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor), currency: m.Currency()}
}

// MultiplyByInt returns this Money scaled by an integer quantity.
func (m Money) MultiplyByInt(factor int64) Money {
	return m.Multiply(decimal.NewFromInt(factor))
}

// Negate returns this Money with the sign flipped.
func (m Money) Negate() Money {
	return Money{amount: m.amount.Neg(), currency: m.Currency()}
}

// Abs returns the absolute value.
func (m Money) Abs() Money {
	return Money{amount: m.amount.Abs(), currency: m.Currency()}
}

// Round rounds to the currency's minor-unit precision.
func (m Money) Round() Money {
	return Money{amount: m.amount.Round(m.Currency().DecimalPlaces()), currency: m.Currency()}
}

// Equals reports exact equality of amount and currency.
func (m Money) Equals(other Money) bool {
	return m.Currency() == other.Currency() && m.amount.Equal(other.amount)
}

// WithinEpsilon reports whether the two amounts differ by no more than the
// currency's tolerance. Currencies must match.
func (m Money) WithinEpsilon(other Money) (bool, error) {
	if m.Currency() != other.Currency() {
		return false, fmt.Errorf("cannot compare %s and %s", m.Currency(), other.Currency())
	}
	diff := m.amount.Sub(other.amount).Abs()
	return diff.LessThanOrEqual(m.Currency().Epsilon()), nil
}

// LessThan reports m < other. Returns an error if the currencies differ.
func (m Money) LessThan(other Money) (bool, error) {
	if m.Currency() != other.Currency() {
		return false, fmt.Errorf("cannot compare %s and %s", m.Currency(), other.Currency())
	}
	return m.amount.LessThan(other.amount), nil
}

// GreaterThan reports m > other. Returns an error if the currencies differ.
func (m Money) GreaterThan(other Money) (bool, error) {
	if m.Currency() != other.Currency() {
		return false, fmt.Errorf("cannot compare %s and %s", m.Currency(), other.Currency())
	}
	return m.amount.GreaterThan(other.amount), nil
}

// GreaterThanOrEqual reports m >= other. Returns an error if the currencies differ.
func (m Money) GreaterThanOrEqual(other Money) (bool, error) {
	if m.Currency() != other.Currency() {
		return false, fmt.Errorf("cannot compare %s and %s", m.Currency(), other.Currency())
	}
	return m.amount.GreaterThanOrEqual(other.amount), nil
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(m.Currency().DecimalPlaces()), m.Currency())
}

// MarshalJSON implements json.Marshaler.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}{
		Amount:   m.amount.String(),
		Currency: m.Currency(),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Money) UnmarshalJSON(data []byte) error {
	var v struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(v.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	m.amount = amount
	m.currency = v.Currency
	return nil
}

// Value implements driver.Valuer. Only the amount is stored; the currency
// lives in its own column.
func (m Money) Value() (driver.Value, error) {
	return m.amount.String(), nil
}

// Scan implements sql.Scanner.
func (m *Money) Scan(value any) error {
	if value == nil {
		m.amount = decimal.Zero
		m.currency = DefaultCurrency
		return nil
	}

	var strVal string
	switch v := value.(type) {
	case string:
		strVal = v
	case []byte:
		strVal = string(v)
	case float64:
		strVal = decimal.NewFromFloat(v).String()
	default:
		return fmt.Errorf("cannot scan %T into Money", value)
	}

	amount, err := decimal.NewFromString(strVal)
	if err != nil {
		return fmt.Errorf("invalid decimal value: %w", err)
	}
	m.amount = amount
	if m.currency == "" {
		m.currency = DefaultCurrency
	}
	return nil
}

// Allocate splits money into parts that sum exactly to the original,
// distributing remainder cents to the leading parts.
func (m Money) Allocate(parts int) ([]Money, error) {
	if parts <= 0 {
		return nil, errors.New("parts must be positive")
	}
	if parts == 1 {
		return []Money{m}, nil
	}

	places := m.Currency().DecimalPlaces()
	base := m.amount.Div(decimal.NewFromInt(int64(parts))).Truncate(places)
	remainder := m.amount.Sub(base.Mul(decimal.NewFromInt(int64(parts))))
	step := decimal.New(1, -places)

	result := make([]Money, parts)
	extra := remainder.Div(step).IntPart()
	for i := range parts {
		partAmount := base
		if int64(i) < extra {
			partAmount = partAmount.Add(step)
		}
		result[i] = Money{amount: partAmount, currency: m.Currency()}
	}
	return result, nil
}
