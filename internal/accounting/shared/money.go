package shared

import "github.com/shopspring/decimal"

// RoundUnits rounds to whole currency units, half away from zero.
func RoundUnits(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// Within reports whether |d| < tolerance.
func Within(d, tolerance decimal.Decimal) bool {
	return d.Abs().LessThan(tolerance)
}

// SafeDiv divides n by d, returning 0 when d is zero.
func SafeDiv(n, d decimal.Decimal) decimal.Decimal {
	if d.IsZero() {
		return decimal.Zero
	}
	return n.Div(d)
}
