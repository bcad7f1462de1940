package ledger

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const DefaultCurrency = money.EUR

// currency resolves an ISO code, falling back to the default currency.
func currency(code string) *money.Currency {
	if c := money.GetCurrency(strings.ToUpper(strings.TrimSpace(code))); c != nil {
		return c
	}
	return money.GetCurrency(DefaultCurrency)
}

// FormatAmount renders d in the given currency, e.g. "€15.00" or "-$3.50".
func FormatAmount(d decimal.Decimal, code string) string {
	cur := currency(code)
	minor := d.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}

// SupportedCurrency reports whether code is a known ISO currency.
func SupportedCurrency(code string) bool {
	return money.GetCurrency(strings.ToUpper(strings.TrimSpace(code))) != nil
}
