package finance

import (
	"context"

	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/easyshop/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

func currencyOf(code string) valueobject.Currency {
	if code == "" {
		return valueobject.DefaultCurrency
	}
	return valueobject.Currency(code)
}

// ExchangeRates provides conversion rates between configured currencies.
// Implementations return ErrCurrencyNotFound for currencies the tenant
// has not configured.
type ExchangeRates interface {
	// Rate returns how many units of to one unit of from buys
	Rate(ctx context.Context, from, to valueobject.Currency) (decimal.Decimal, error)
}

// Convert converts a money amount into the target currency using the
// given rates.
func Convert(ctx context.Context, rates ExchangeRates, m valueobject.Money, to valueobject.Currency) (valueobject.Money, error) {
	if m.Currency() == to {
		return m, nil
	}
	if !to.IsValid() {
		return valueobject.Money{}, shared.ErrCurrencyNotFound.WithDetails("currency", to.String())
	}

	rate, err := rates.Rate(ctx, m.Currency(), to)
	if err != nil {
		return valueobject.Money{}, err
	}
	return valueobject.NewMoney(m.Amount().Mul(rate).Round(to.DecimalPlaces()), to)
}

// StaticRates is a fixed rate table keyed by "FROM/TO" pairs.
type StaticRates map[string]decimal.Decimal

// Rate implements ExchangeRates
func (r StaticRates) Rate(_ context.Context, from, to valueobject.Currency) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	if rate, ok := r[from.String()+"/"+to.String()]; ok {
		return rate, nil
	}
	if inverse, ok := r[to.String()+"/"+from.String()]; ok && !inverse.IsZero() {
		return decimal.NewFromInt(1).Div(inverse), nil
	}
	return decimal.Zero, shared.ErrCurrencyNotFound.WithDetails("pair", from.String()+"/"+to.String())
}
