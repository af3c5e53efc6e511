package shared

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// WarningCode names a silent-degradation rule that fired during a computation.
type WarningCode string

const (
	WarnUnknownPeriodToken    WarningCode = "unknown_period_token"
	WarnUnmatchedAccountCode  WarningCode = "unmatched_account_code"
	WarnUnbalancedTransaction WarningCode = "unbalanced_transaction"
	WarnMissingDueDate        WarningCode = "missing_due_date"
	WarnMissingExpenseDate    WarningCode = "missing_expense_date"
	WarnMissingExchangeRate   WarningCode = "missing_exchange_rate"
	WarnDefaultClassification WarningCode = "default_classification"
	WarnUnknownCustomer       WarningCode = "unknown_customer"
	WarnDuplicateAccountCode  WarningCode = "duplicate_account_code"
)

// Warning is a non-fatal data-quality finding. Amount is set when the finding
// carries a monetary value, such as a transaction's imbalance.
type Warning struct {
	Code    WarningCode      `json:"code"`
	Ref     string           `json:"ref,omitempty"`
	Message string           `json:"message"`
	Amount  *decimal.Decimal `json:"amount,omitempty"`
}

func (w Warning) String() string {
	if w.Ref == "" {
		return fmt.Sprintf("%s: %s", w.Code, w.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", w.Code, w.Ref, w.Message)
}

// Diagnostics accumulates warnings across one computation.
type Diagnostics struct {
	warnings []Warning
}

// Add records a warning.
func (d *Diagnostics) Add(code WarningCode, ref, format string, args ...any) {
	d.warnings = append(d.warnings, Warning{Code: code, Ref: ref, Message: fmt.Sprintf(format, args...)})
}

// AddAmount records a warning that carries an amount.
func (d *Diagnostics) AddAmount(code WarningCode, ref string, amount decimal.Decimal, format string, args ...any) {
	amt := amount
	d.warnings = append(d.warnings, Warning{Code: code, Ref: ref, Message: fmt.Sprintf(format, args...), Amount: &amt})
}

// Merge appends warnings produced elsewhere.
func (d *Diagnostics) Merge(ws []Warning) {
	d.warnings = append(d.warnings, ws...)
}

// Warnings returns the accumulated warnings; never nil so JSON renders [].
func (d *Diagnostics) Warnings() []Warning {
	if d == nil || len(d.warnings) == 0 {
		return []Warning{}
	}
	out := make([]Warning, len(d.warnings))
	copy(out, d.warnings)
	return out
}

// Len reports how many warnings were recorded.
func (d *Diagnostics) Len() int {
	if d == nil {
		return 0
	}
	return len(d.warnings)
}

// CountByCode tallies warnings per code.
func CountByCode(ws []Warning) map[WarningCode]int {
	counts := make(map[WarningCode]int)
	for _, w := range ws {
		counts[w.Code]++
	}
	return counts
}

// Codes returns the distinct codes present, sorted.
func Codes(ws []Warning) []WarningCode {
	counts := CountByCode(ws)
	codes := make([]WarningCode, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// Dedupe drops repeated warnings with the same code, ref and message, keeping
// the first occurrence.
func Dedupe(ws []Warning) []Warning {
	type key struct {
		code         WarningCode
		ref, message string
	}
	seen := make(map[key]bool, len(ws))
	out := make([]Warning, 0, len(ws))
	for _, w := range ws {
		k := key{w.Code, w.Ref, w.Message}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, w)
	}
	return out
}
