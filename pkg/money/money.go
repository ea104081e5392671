// Package money rounds and formats amounts in the single active currency.
package money

import (
	"strings"

	"github.com/angelmondragon/packfinderz-pos/pkg/config"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Currency describes the minor-unit precision and display conventions of the active currency.
type Currency struct {
	Code        string
	Symbol      string
	Decimals    int32
	SymbolAfter bool
}

// FromConfig builds the active currency from POS configuration.
func FromConfig(cfg config.POSConfig) Currency {
	return Currency{
		Code:        cfg.CurrencyCode,
		Symbol:      cfg.CurrencySymbol,
		Decimals:    cfg.CurrencyDecimals,
		SymbolAfter: cfg.CurrencySymbolAfter,
	}
}

// Round rounds half-up to the currency's minor unit.
func (c Currency) Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(c.Decimals)
}

// Format renders amount with thousands separators and the currency symbol.
func (c Currency) Format(amount decimal.Decimal) string {
	rounded := c.Round(amount)
	negative := rounded.IsNegative()
	fixed := rounded.Abs().StringFixed(c.Decimals)

	whole, frac, _ := strings.Cut(fixed, ".")
	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	if !c.SymbolAfter {
		b.WriteString(c.Symbol)
	}
	b.WriteString(groupThousands(whole))
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	if c.SymbolAfter {
		b.WriteString(c.Symbol)
	}
	return b.String()
}

// Percent returns amount × rate / 100 without rounding.
func Percent(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(hundred)
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	lead := len(digits) % 3
	var b strings.Builder
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
