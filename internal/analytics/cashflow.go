package analytics

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
)

// CashflowTrendPoint captures monthly cash inflow and outflow.
type CashflowTrendPoint struct {
	Period string          `json:"period"`
	In     decimal.Decimal `json:"in"`
	Out    decimal.Decimal `json:"out"`
	Net    decimal.Decimal `json:"net"`
}

// IsCashAccount reports whether acc holds cash or bank balances.
func IsCashAccount(acc accounting.Account) bool {
	if acc.Type != accounting.AccountTypeAsset {
		return false
	}
	switch strings.ToLower(acc.Subtype) {
	case "cash", "bank":
		return true
	}
	name := strings.ToLower(acc.Name)
	return strings.Contains(name, "cash") || strings.Contains(name, "bank")
}

// CashflowTrend sums debits (in) and credits (out) to cash accounts per month
// from posted transactions. Transfers between cash accounts are ignored.
func CashflowTrend(accounts []accounting.Account, txns []accounting.Transaction, from, to time.Time) ([]CashflowTrendPoint, error) {
	if err := accounting.ValidateTransactions(txns); err != nil {
		return nil, err
	}
	cash := make(map[string]bool)
	for _, acc := range accounts {
		if IsCashAccount(acc) {
			cash[acc.Code] = true
		}
	}

	months, err := trendMonths(from, to)
	if err != nil {
		return nil, err
	}
	points := make([]CashflowTrendPoint, len(months))
	for i, m := range months {
		points[i] = CashflowTrendPoint{Period: m.Start.Format(monthLayout)}
	}
	for _, txn := range txns {
		if !txn.IsPosted() || internalTransfer(txn, cash) {
			continue
		}
		for i, m := range months {
			if !m.Contains(txn.Date.Time) {
				continue
			}
			for _, e := range txn.JournalEntries {
				if !cash[e.AccountCode] {
					continue
				}
				points[i].In = points[i].In.Add(e.DebitAmount)
				points[i].Out = points[i].Out.Add(e.CreditAmount)
			}
			break
		}
	}
	for i := range points {
		points[i].Net = points[i].In.Sub(points[i].Out)
	}
	return points, nil
}

func internalTransfer(txn accounting.Transaction, cash map[string]bool) bool {
	if len(txn.JournalEntries) == 0 {
		return false
	}
	for _, e := range txn.JournalEntries {
		if !cash[e.AccountCode] {
			return false
		}
	}
	return true
}
