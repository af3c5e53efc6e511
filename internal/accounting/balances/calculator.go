// Package balances derives per-account debit, credit and net balances from
// posted journal entries.
package balances

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// AccountBalance is one account's activity. Balance is debit-positive
// regardless of the account's normal balance.
type AccountBalance struct {
	Code          string                   `json:"account_code"`
	Name          string                   `json:"account_name"`
	Type          accounting.AccountType   `json:"account_type"`
	Subtype       string                   `json:"account_subtype,omitempty"`
	NormalBalance accounting.NormalBalance `json:"normal_balance"`
	Opening       decimal.Decimal          `json:"opening"`
	Debit         decimal.Decimal          `json:"debit_total"`
	Credit        decimal.Decimal          `json:"credit_total"`
	Balance       decimal.Decimal          `json:"balance"`
}

// Account rebuilds the chart-of-accounts view of the row.
func (a AccountBalance) Account() accounting.Account {
	return accounting.Account{Code: a.Code, Name: a.Name, Type: a.Type, Subtype: a.Subtype, NormalBalance: a.NormalBalance}
}

// Presented returns the balance signed for display: credit-normal accounts
// are flipped so their natural balance reads positive.
func (a AccountBalance) Presented() decimal.Decimal {
	if a.NormalBalance == accounting.NormalCredit {
		return a.Balance.Neg()
	}
	return a.Balance
}

// HasActivity reports whether any debit, credit or opening amount touched the account.
func (a AccountBalance) HasActivity() bool {
	return !a.Opening.IsZero() || !a.Debit.IsZero() || !a.Credit.IsZero()
}

// Ledger is the result of a balance calculation: every account in the chart,
// keyed by code.
type Ledger struct {
	Period   periods.Period
	codes    []string
	balances map[string]AccountBalance
}

// Get returns the balance for code.
func (l Ledger) Get(code string) (AccountBalance, bool) {
	b, ok := l.balances[code]
	return b, ok
}

// Codes returns account codes in ascending order.
func (l Ledger) Codes() []string {
	out := make([]string, len(l.codes))
	copy(out, l.codes)
	return out
}

// Accounts returns every balance ordered by account code.
func (l Ledger) Accounts() []AccountBalance {
	out := make([]AccountBalance, 0, len(l.codes))
	for _, code := range l.codes {
		out = append(out, l.balances[code])
	}
	return out
}

// Len reports the number of accounts.
func (l Ledger) Len() int {
	return len(l.codes)
}

// Net sums every account's debit-positive balance. It is zero when every
// included transaction balances.
func (l Ledger) Net() decimal.Decimal {
	total := decimal.Zero
	for _, b := range l.balances {
		total = total.Add(b.Balance)
	}
	return total
}

// MarshalJSON renders the ledger as an ordered list.
func (l Ledger) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Period   periods.Period   `json:"period"`
		Accounts []AccountBalance `json:"accounts"`
	}{Period: l.Period, Accounts: l.Accounts()})
}

// Calculate accumulates posted activity up to the end of asOf's day.
func Calculate(accounts []accounting.Account, txns []accounting.Transaction, asOf time.Time) (Ledger, []shared.Warning, error) {
	return CalculatePeriod(accounts, txns, periods.AsOf(asOf))
}

// CalculatePeriod accumulates posted activity within period into Debit and
// Credit, and activity dated before period.Start into Opening.
func CalculatePeriod(accounts []accounting.Account, txns []accounting.Transaction, period periods.Period) (Ledger, []shared.Warning, error) {
	if err := accounting.ValidateAccounts(accounts); err != nil {
		return Ledger{}, nil, err
	}
	if err := accounting.ValidateTransactions(txns); err != nil {
		return Ledger{}, nil, err
	}

	var diags shared.Diagnostics
	ledger := Ledger{Period: period, balances: make(map[string]AccountBalance, len(accounts))}
	for _, acc := range accounts {
		if _, dup := ledger.balances[acc.Code]; dup {
			diags.Add(shared.WarnDuplicateAccountCode, acc.Code, "account code %s appears more than once, keeping the first", acc.Code)
			continue
		}
		ledger.balances[acc.Code] = AccountBalance{
			Code:          acc.Code,
			Name:          acc.Name,
			Type:          acc.Type,
			Subtype:       acc.Subtype,
			NormalBalance: acc.Normal(),
		}
		ledger.codes = append(ledger.codes, acc.Code)
	}
	sort.Strings(ledger.codes)

	unmatched := make(map[string]*unmatchedCode)
	for _, txn := range txns {
		if !txn.IsPosted() || txn.Date.After(period.End) {
			continue
		}
		opening := !period.Start.IsZero() && txn.Date.Before(period.Start)
		if imbalance := txn.Imbalance(); !imbalance.IsZero() {
			diags.AddAmount(shared.WarnUnbalancedTransaction, txn.ID, imbalance,
				"transaction %s is out of balance by %s", txnLabel(txn), imbalance.StringFixed(2))
		}
		for _, entry := range txn.JournalEntries {
			bal, ok := ledger.balances[entry.AccountCode]
			if !ok {
				u := unmatched[entry.AccountCode]
				if u == nil {
					u = &unmatchedCode{}
					unmatched[entry.AccountCode] = u
				}
				u.count++
				u.net = u.net.Add(entry.DebitAmount).Sub(entry.CreditAmount)
				continue
			}
			net := entry.DebitAmount.Sub(entry.CreditAmount)
			if opening {
				bal.Opening = bal.Opening.Add(net)
			} else {
				bal.Debit = bal.Debit.Add(entry.DebitAmount)
				bal.Credit = bal.Credit.Add(entry.CreditAmount)
			}
			bal.Balance = bal.Balance.Add(net)
			ledger.balances[entry.AccountCode] = bal
		}
	}

	codes := make([]string, 0, len(unmatched))
	for code := range unmatched {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		u := unmatched[code]
		diags.AddAmount(shared.WarnUnmatchedAccountCode, code, u.net,
			"%d journal entries reference unknown account %s and were dropped", u.count, code)
	}

	return ledger, diags.Warnings(), nil
}

type unmatchedCode struct {
	count int
	net   decimal.Decimal
}

func txnLabel(txn accounting.Transaction) string {
	if txn.ReferenceNumber != "" {
		return txn.ReferenceNumber
	}
	return txn.ID
}

// Presented returns the display-signed balance for code, or zero when unknown.
func (l Ledger) Presented(code string) decimal.Decimal {
	if b, ok := l.balances[code]; ok {
		return b.Presented()
	}
	return decimal.Zero
}
