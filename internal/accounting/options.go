package accounting

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultBaseCurrency is the functional currency of the reference deployment.
const DefaultBaseCurrency = "KES"

// Options carries the engine's configurable constants. The zero value is not
// useful; start from DefaultOptions.
type Options struct {
	// BaseCurrency is the currency every aggregate is expressed in.
	BaseCurrency string
	// AllTimeFloor is the lower bound of the all_time period. A zero value
	// removes the floor.
	AllTimeFloor time.Time
	// TrialBalanceTolerance is the largest |debits - credits| still reported as balanced.
	TrialBalanceTolerance decimal.Decimal
	// BalanceSheetTolerance is the largest |assets - (liabilities + equity)| still reported as balanced.
	BalanceSheetTolerance decimal.Decimal
}

// DefaultOptions mirrors the behaviour of the hosted product.
func DefaultOptions() Options {
	return Options{
		BaseCurrency:          DefaultBaseCurrency,
		AllTimeFloor:          time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC),
		TrialBalanceTolerance: decimal.RequireFromString("0.01"),
		BalanceSheetTolerance: decimal.NewFromInt(1),
	}
}

// WithDefaults fills unset fields from DefaultOptions. AllTimeFloor is left
// alone because zero is meaningful there.
func (o Options) WithDefaults() Options {
	def := DefaultOptions()
	if o.BaseCurrency == "" {
		o.BaseCurrency = def.BaseCurrency
	}
	if o.TrialBalanceTolerance.IsZero() {
		o.TrialBalanceTolerance = def.TrialBalanceTolerance
	}
	if o.BalanceSheetTolerance.IsZero() {
		o.BalanceSheetTolerance = def.BalanceSheetTolerance
	}
	return o
}
