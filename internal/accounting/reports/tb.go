package reports

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/balances"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// GroupKey returns a key used for grouping trial balance rows.
func GroupKey(code string) string {
	if idx := strings.Index(code, "."); idx > 0 {
		return code[:idx]
	}
	if len(code) >= 2 {
		return code[:2]
	}
	return code
}

// TrialBalanceRow is one account of the trial balance. Debit and Credit are
// the closing balance placed in its column; PeriodDebit and PeriodCredit are
// the raw activity totals.
type TrialBalanceRow struct {
	Code          string                   `json:"account_code"`
	Name          string                   `json:"account_name"`
	Type          accounting.AccountType   `json:"account_type"`
	NormalBalance accounting.NormalBalance `json:"normal_balance"`
	Opening       decimal.Decimal          `json:"opening"`
	PeriodDebit   decimal.Decimal          `json:"period_debit"`
	PeriodCredit  decimal.Decimal          `json:"period_credit"`
	Closing       decimal.Decimal          `json:"closing"`
	Debit         decimal.Decimal          `json:"debit"`
	Credit        decimal.Decimal          `json:"credit"`
}

// TrialBalanceGroup aggregates rows sharing a code prefix.
type TrialBalanceGroup struct {
	Key     string            `json:"key"`
	Rows    []TrialBalanceRow `json:"rows"`
	Opening decimal.Decimal   `json:"opening"`
	Closing decimal.Decimal   `json:"closing"`
	Debit   decimal.Decimal   `json:"debit"`
	Credit  decimal.Decimal   `json:"credit"`
}

// TrialBalance is the grouped trial balance with its balance check.
type TrialBalance struct {
	Start        *time.Time          `json:"start,omitempty"`
	End          time.Time           `json:"end"`
	Groups       []TrialBalanceGroup `json:"groups"`
	TotalOpening decimal.Decimal     `json:"total_opening"`
	TotalClosing decimal.Decimal     `json:"total_closing"`
	TotalDebits  decimal.Decimal     `json:"total_debits"`
	TotalCredits decimal.Decimal     `json:"total_credits"`
	// Variance is TotalDebits - TotalCredits.
	Variance   decimal.Decimal `json:"variance"`
	IsBalanced bool            `json:"is_balanced"`
}

// Rows flattens the groups in code order.
func (tb TrialBalance) Rows() []TrialBalanceRow {
	var rows []TrialBalanceRow
	for _, g := range tb.Groups {
		rows = append(rows, g.Rows...)
	}
	return rows
}

// BuildTrialBalance lists every account that saw any activity and places its
// closing balance in the debit or credit column by normal balance and sign.
func BuildTrialBalance(ledger balances.Ledger, opts accounting.Options) TrialBalance {
	opts = opts.WithDefaults()
	groups := make(map[string]*TrialBalanceGroup)
	keys := make([]string, 0)

	for _, acc := range ledger.Accounts() {
		if !acc.HasActivity() {
			continue
		}
		row := TrialBalanceRow{
			Code:          acc.Code,
			Name:          acc.Name,
			Type:          acc.Type,
			NormalBalance: acc.NormalBalance,
			Opening:       acc.Opening,
			PeriodDebit:   acc.Debit,
			PeriodCredit:  acc.Credit,
			Closing:       acc.Balance,
		}
		row.Debit, row.Credit = columns(acc)

		key := GroupKey(acc.Code)
		grp, ok := groups[key]
		if !ok {
			grp = &TrialBalanceGroup{Key: key}
			groups[key] = grp
			keys = append(keys, key)
		}
		grp.Rows = append(grp.Rows, row)
		grp.Opening = grp.Opening.Add(row.Opening)
		grp.Closing = grp.Closing.Add(row.Closing)
		grp.Debit = grp.Debit.Add(row.Debit)
		grp.Credit = grp.Credit.Add(row.Credit)
	}

	sort.Strings(keys)
	result := TrialBalance{End: ledger.Period.End, Groups: make([]TrialBalanceGroup, 0, len(keys))}
	if !ledger.Period.Start.IsZero() {
		start := ledger.Period.Start
		result.Start = &start
	}
	for _, key := range keys {
		grp := groups[key]
		sort.Slice(grp.Rows, func(i, j int) bool {
			return grp.Rows[i].Code < grp.Rows[j].Code
		})
		result.Groups = append(result.Groups, *grp)
		result.TotalOpening = result.TotalOpening.Add(grp.Opening)
		result.TotalClosing = result.TotalClosing.Add(grp.Closing)
		result.TotalDebits = result.TotalDebits.Add(grp.Debit)
		result.TotalCredits = result.TotalCredits.Add(grp.Credit)
	}
	result.Variance = result.TotalDebits.Sub(result.TotalCredits)
	result.IsBalanced = shared.Within(result.Variance, opts.TrialBalanceTolerance)
	return result
}

// columns places the closing balance. A debit-normal account shows a positive
// balance as a debit; a credit-normal account shows its credit-positive
// balance as a credit. Negative natural balances switch columns.
func columns(acc balances.AccountBalance) (debit, credit decimal.Decimal) {
	natural := acc.Presented()
	if acc.NormalBalance == accounting.NormalCredit {
		if natural.IsNegative() {
			return natural.Neg(), decimal.Zero
		}
		return decimal.Zero, natural
	}
	if natural.IsNegative() {
		return decimal.Zero, natural.Neg()
	}
	return natural, decimal.Zero
}

// VarianceFloat reports the variance for gauges.
func (tb TrialBalance) VarianceFloat() float64 {
	return tb.Variance.InexactFloat64()
}
