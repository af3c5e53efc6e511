package accounting

import (
	"strings"

	"github.com/shopspring/decimal"
)

// BaseTotal converts the invoice total into baseCurrency. A stored
// base_currency_total wins; otherwise a foreign-currency total is multiplied
// by exchange_rate. rateMissing is true when a foreign total had no usable
// rate and was taken at par.
func (inv Invoice) BaseTotal(baseCurrency string) (total decimal.Decimal, rateMissing bool) {
	if !inv.BaseCurrencyTotal.IsZero() {
		return inv.BaseCurrencyTotal, false
	}
	if inv.Currency == "" || strings.EqualFold(inv.Currency, baseCurrency) {
		return inv.TotalAmount, false
	}
	if inv.ExchangeRate.IsPositive() {
		return inv.TotalAmount.Mul(inv.ExchangeRate), false
	}
	return inv.TotalAmount, true
}

// Outstanding is the unpaid base-currency amount, floored at zero.
func (inv Invoice) Outstanding(baseCurrency string) (decimal.Decimal, bool) {
	total, rateMissing := inv.BaseTotal(baseCurrency)
	balance := total.Sub(inv.Paid())
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	return balance, rateMissing
}
