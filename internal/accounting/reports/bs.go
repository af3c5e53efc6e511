package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/balances"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// CurrentPeriodEarningsCode labels the synthetic equity line carrying the
// unclosed revenue and expense balances.
const CurrentPeriodEarningsCode = "earnings"

// BalanceSheetLine is one account in a balance sheet section.
type BalanceSheetLine struct {
	Code   string          `json:"account_code"`
	Name   string          `json:"account_name"`
	Amount decimal.Decimal `json:"amount"`
	Rule   string          `json:"rule,omitempty"`
}

// BalanceSheetSection contains the lines and total for one classification.
type BalanceSheetSection struct {
	Label string             `json:"label"`
	Lines []BalanceSheetLine `json:"lines"`
	Total decimal.Decimal    `json:"total"`
}

func (s *BalanceSheetSection) add(line BalanceSheetLine) {
	s.Lines = append(s.Lines, line)
	s.Total = s.Total.Add(line.Amount)
}

// BalanceSheet is the structured response for the balance sheet report.
// Assets are debit-positive; liabilities and equity are credit-positive.
type BalanceSheet struct {
	AsOf                      time.Time           `json:"as_of"`
	CurrentAssets             BalanceSheetSection `json:"current_assets"`
	NonCurrentAssets          BalanceSheetSection `json:"non_current_assets"`
	CurrentLiabilities        BalanceSheetSection `json:"current_liabilities"`
	NonCurrentLiabilities     BalanceSheetSection `json:"non_current_liabilities"`
	Equity                    BalanceSheetSection `json:"equity"`
	TotalAssets               decimal.Decimal     `json:"total_assets"`
	TotalLiabilities          decimal.Decimal     `json:"total_liabilities"`
	TotalEquity               decimal.Decimal     `json:"total_equity"`
	TotalLiabilitiesAndEquity decimal.Decimal     `json:"total_liabilities_and_equity"`
	// Variance is TotalAssets - TotalLiabilitiesAndEquity. It equals the net
	// imbalance of the posted transactions the ledger was built from.
	Variance     decimal.Decimal `json:"variance"`
	BalanceCheck bool            `json:"balance_check"`
}

// BuildBalanceSheet classifies every balance sheet account of the ledger.
// Revenue and expense balances roll into a current period earnings line.
func BuildBalanceSheet(ledger balances.Ledger, opts accounting.Options) (BalanceSheet, []shared.Warning) {
	opts = opts.WithDefaults()
	var diags shared.Diagnostics

	bs := BalanceSheet{
		AsOf:                  ledger.Period.End,
		CurrentAssets:         BalanceSheetSection{Label: "Current Assets"},
		NonCurrentAssets:      BalanceSheetSection{Label: "Non-Current Assets"},
		CurrentLiabilities:    BalanceSheetSection{Label: "Current Liabilities"},
		NonCurrentLiabilities: BalanceSheetSection{Label: "Non-Current Liabilities"},
		Equity:                BalanceSheetSection{Label: "Equity"},
	}

	earnings := decimal.Zero
	for _, acc := range ledger.Accounts() {
		class, rule, ok := Classify(acc.Account())
		if !ok || class == ClassIncomeStatement {
			earnings = earnings.Sub(acc.Balance)
			continue
		}
		if !acc.HasActivity() {
			continue
		}
		if rule.Fallback {
			diags.Add(shared.WarnDefaultClassification, acc.Code,
				"account %s (%s) has no subtype, range or name match; classified as %s", acc.Code, acc.Name, class)
		}
		line := BalanceSheetLine{Code: acc.Code, Name: acc.Name, Rule: rule.Name}
		switch class {
		case ClassCurrentAsset:
			line.Amount = acc.Balance
			bs.CurrentAssets.add(line)
		case ClassNonCurrentAsset:
			line.Amount = acc.Balance
			bs.NonCurrentAssets.add(line)
		case ClassCurrentLiability:
			line.Amount = acc.Balance.Neg()
			bs.CurrentLiabilities.add(line)
		case ClassNonCurrentLiability:
			line.Amount = acc.Balance.Neg()
			bs.NonCurrentLiabilities.add(line)
		case ClassEquity:
			line.Amount = acc.Balance.Neg()
			bs.Equity.add(line)
		}
	}
	if !earnings.IsZero() {
		bs.Equity.add(BalanceSheetLine{Code: CurrentPeriodEarningsCode, Name: "Current Period Earnings", Amount: earnings})
	}

	bs.TotalAssets = bs.CurrentAssets.Total.Add(bs.NonCurrentAssets.Total)
	bs.TotalLiabilities = bs.CurrentLiabilities.Total.Add(bs.NonCurrentLiabilities.Total)
	bs.TotalEquity = bs.Equity.Total
	bs.TotalLiabilitiesAndEquity = bs.TotalLiabilities.Add(bs.TotalEquity)
	bs.Variance = bs.TotalAssets.Sub(bs.TotalLiabilitiesAndEquity)
	bs.BalanceCheck = shared.Within(bs.Variance, opts.BalanceSheetTolerance)

	for _, s := range bs.sections() {
		if s.Lines == nil {
			s.Lines = []BalanceSheetLine{}
		}
	}
	return bs, diags.Warnings()
}

func (bs *BalanceSheet) sections() []*BalanceSheetSection {
	return []*BalanceSheetSection{&bs.CurrentAssets, &bs.NonCurrentAssets, &bs.CurrentLiabilities, &bs.NonCurrentLiabilities, &bs.Equity}
}

// Sections lists the sections in presentation order.
func (bs BalanceSheet) Sections() []BalanceSheetSection {
	return []BalanceSheetSection{bs.CurrentAssets, bs.NonCurrentAssets, bs.CurrentLiabilities, bs.NonCurrentLiabilities, bs.Equity}
}
