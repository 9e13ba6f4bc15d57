// Package money provides currency-safe invoice arithmetic using integer minor
// units and the Fowler Money pattern. Amount parsing accepts the thousand and
// decimal separators found in vendor documents, and all rounding is half-up
// to the currency's minor unit.
package money

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency codes seen across the supported document families (ISO-4217).
const (
	USD = "USD" // US Dollar
	AED = "AED" // UAE Dirham
	SAR = "SAR" // Saudi Riyal
	OMR = "OMR" // Omani Rial (three decimal places)
	QAR = "QAR" // Qatari Riyal
	KWD = "KWD" // Kuwaiti Dinar (three decimal places)
	EUR = "EUR" // Euro
)

// Money represents a monetary value with currency. It wraps go-money for
// minor-unit arithmetic and shopspring/decimal for intermediate precision.
type Money struct {
	m *money.Money
}

// New creates a Money value from minor units and a currency code.
func New(amountMinor int64, currencyCode string) *Money {
	return &Money{m: money.New(amountMinor, currencyCode)}
}

// NewFromDecimal creates Money from a decimal value, rounding half-up to the
// currency's minor unit. Ties away from zero, so positive halves round up.
func NewFromDecimal(amount decimal.Decimal, currencyCode string) *Money {
	return New(minorUnits(amount, currencyCode), currencyCode)
}

func minorUnits(amount decimal.Decimal, currencyCode string) int64 {
	c := money.GetCurrency(currencyCode)
	if c == nil {
		c = money.GetCurrency(USD)
	}
	scaled := amount.Mul(decimal.New(1, int32(c.Fraction)))
	// decimal.Round rounds half away from zero, which is half-up for the
	// non-negative amounts invoices carry.
	return scaled.Round(0).IntPart()
}

// ParseAmount parses a textual amount as it appears in a document cell.
// US format uses comma thousand separators ("1,234.56"); European format uses
// dot thousand separators and a comma decimal mark ("1.234,56"). Currency
// symbols, whitespace and parenthesized negatives are tolerated.
func ParseAmount(raw string, european bool) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	for _, sym := range []string{"$", "€", "£", "¥", "₹"} {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.ReplaceAll(s, " ", "")
	if european {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// RoundMinor rounds a decimal amount half-up to the currency's minor unit and
// returns it as a decimal again. This is the canonical rounding applied to
// every derived monetary figure before it reaches an output cell.
func RoundMinor(amount decimal.Decimal, currencyCode string) decimal.Decimal {
	c := money.GetCurrency(currencyCode)
	if c == nil {
		c = money.GetCurrency(USD)
	}
	minor := amount.Mul(decimal.New(1, int32(c.Fraction))).Round(0)
	return minor.Div(decimal.New(1, int32(c.Fraction)))
}

// Tax computes the tax amount for a net amount at the given percentage rate,
// rounded half-up to the currency's minor unit.
func Tax(net decimal.Decimal, ratePercent decimal.Decimal, currencyCode string) decimal.Decimal {
	tax := net.Mul(ratePercent).Div(decimal.NewFromInt(100))
	return RoundMinor(tax, currencyCode)
}

// Convert applies an exchange rate (target units per source unit) and rounds
// to the target currency's minor unit.
func Convert(amount decimal.Decimal, rate decimal.Decimal, targetCurrency string) decimal.Decimal {
	return RoundMinor(amount.Mul(rate), targetCurrency)
}

// MinorUnitStep returns the smallest representable amount in the currency,
// e.g. 0.01 for AED and 0.001 for OMR. Reconciliation tolerances default to
// one such step.
func MinorUnitStep(currencyCode string) decimal.Decimal {
	c := money.GetCurrency(currencyCode)
	if c == nil {
		c = money.GetCurrency(USD)
	}
	return decimal.New(1, -int32(c.Fraction))
}

// Amount returns the amount in minor units.
func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// Currency returns the ISO-4217 currency code.
func (m *Money) Currency() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Currency().Code
}

// Add adds two Money values. Currencies must match.
func (m *Money) Add(other *Money) (*Money, error) {
	if m == nil || m.m == nil {
		return other, nil
	}
	if other == nil || other.m == nil {
		return m, nil
	}
	result, err := m.m.Add(other.m)
	if err != nil {
		return nil, err
	}
	return &Money{m: result}, nil
}

// Subtract subtracts other from m. Currencies must match.
func (m *Money) Subtract(other *Money) (*Money, error) {
	if m == nil || m.m == nil {
		if other == nil || other.m == nil {
			return New(0, USD), nil
		}
		return &Money{m: other.m.Negative()}, nil
	}
	if other == nil || other.m == nil {
		return m, nil
	}
	result, err := m.m.Subtract(other.m)
	if err != nil {
		return nil, err
	}
	return &Money{m: result}, nil
}

// String returns the amount as a plain decimal string, e.g. "1234.56".
func (m *Money) String() string {
	if m == nil || m.m == nil {
		return "0"
	}
	c := m.m.Currency()
	d := decimal.NewFromInt(m.m.Amount()).Div(decimal.New(1, int32(c.Fraction)))
	return d.StringFixed(int32(c.Fraction))
}
