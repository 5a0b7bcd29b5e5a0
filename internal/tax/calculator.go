package tax

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount = errors.New("amount must not be negative")
	ErrInvalidRate   = errors.New("rate must be between 0 and 1")
)

var one = decimal.NewFromInt(1)

// Config carries the settlement rates. It is passed explicitly so the
// calculator stays testable with fixed values.
type Config struct {
	CommissionRate decimal.Decimal
	DefaultRate    decimal.Decimal
	Rates          map[string]decimal.Decimal
}

// RateFor returns the tax rate for a jurisdiction code, falling back to
// the configured default when the code is unknown.
func (c Config) RateFor(jurisdiction string) decimal.Decimal {
	if rate, ok := c.Rates[strings.ToUpper(strings.TrimSpace(jurisdiction))]; ok {
		return rate
	}
	return c.DefaultRate
}

// Breakdown is the result of a tax calculation in either direction.
type Breakdown struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
	TaxAmount decimal.Decimal `json:"tax_amount"`
	Total     decimal.Decimal `json:"total"`
}

// Calculate treats amount as pre-tax and adds tax on top.
func Calculate(amount, rate decimal.Decimal) (Breakdown, error) {
	if err := validate(amount, rate); err != nil {
		return Breakdown{}, err
	}

	taxAmount := amount.Mul(rate).Round(2)
	return Breakdown{
		Subtotal:  amount.Round(2),
		TaxRate:   rate,
		TaxAmount: taxAmount,
		Total:     amount.Round(2).Add(taxAmount),
	}, nil
}

// Extract treats total as tax-inclusive and splits it back into subtotal
// and tax. TaxAmount is derived by subtraction so the parts always sum to
// the total.
func Extract(total, rate decimal.Decimal) (Breakdown, error) {
	if err := validate(total, rate); err != nil {
		return Breakdown{}, err
	}

	subtotal := total.Div(one.Add(rate)).Round(2)
	return Breakdown{
		Subtotal:  subtotal,
		TaxRate:   rate,
		TaxAmount: total.Sub(subtotal),
		Total:     total,
	}, nil
}

// Split divides an amount into the platform fee and the professional's
// share. The fee is rounded and the share derived by subtraction, so the
// two always sum exactly to the input.
func Split(amount, commissionRate decimal.Decimal) (platformFee, professionalAmount decimal.Decimal, err error) {
	if err := validate(amount, commissionRate); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	platformFee = amount.Mul(commissionRate).Round(2)
	professionalAmount = amount.Sub(platformFee)
	return platformFee, professionalAmount, nil
}

func validate(amount, rate decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	if rate.IsNegative() || rate.GreaterThan(one) {
		return ErrInvalidRate
	}
	return nil
}
