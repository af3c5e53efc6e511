package reports

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// ProfitAndLossLine is one account or customer within a section.
type ProfitAndLossLine struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// ProfitAndLossSection groups lines by nature.
type ProfitAndLossSection struct {
	Label string              `json:"label"`
	Lines []ProfitAndLossLine `json:"lines"`
	Total decimal.Decimal     `json:"total"`
}

// ProfitAndLoss contains the structured output for the report.
type ProfitAndLoss struct {
	Period            periods.Period       `json:"period"`
	Revenue           ProfitAndLossSection `json:"revenue"`
	CostOfSales       ProfitAndLossSection `json:"cost_of_sales"`
	OperatingExpenses ProfitAndLossSection `json:"operating_expenses"`
	OtherIncome       ProfitAndLossSection `json:"other_income"`
	FinanceCosts      ProfitAndLossSection `json:"finance_costs"`
	GrossProfit       decimal.Decimal      `json:"gross_profit"`
	OperatingProfit   decimal.Decimal      `json:"operating_profit"`
	ProfitBeforeTax   decimal.Decimal      `json:"profit_before_tax"`
	// NetProfit equals ProfitBeforeTax; no tax line is deducted.
	NetProfit decimal.Decimal `json:"net_profit"`
}

// ProfitAndLossInput is the slice of a dataset the P&L reads. Revenue comes
// from invoices; every other section comes from journal entries.
type ProfitAndLossInput struct {
	Accounts     []accounting.Account
	Transactions []accounting.Transaction
	Invoices     []accounting.Invoice
	Customers    []accounting.Customer
}

// InputFromDataset selects the collections the P&L needs.
func InputFromDataset(ds accounting.Dataset) ProfitAndLossInput {
	return ProfitAndLossInput{Accounts: ds.Accounts, Transactions: ds.Transactions, Invoices: ds.Invoices, Customers: ds.Customers}
}

type plSection int

const (
	plNone plSection = iota
	plCostOfSales
	plOperatingExpenses
	plFinanceCosts
	plOtherIncome
)

// sectionFor maps an account code prefix onto a P&L section. Other revenue
// codes are ignored because revenue is recognised from invoices.
func sectionFor(code string) plSection {
	switch {
	case strings.HasPrefix(code, "48"), strings.HasPrefix(code, "49"):
		return plOtherIncome
	case strings.HasPrefix(code, "5"):
		return plCostOfSales
	case strings.HasPrefix(code, "6"), strings.HasPrefix(code, "7"):
		return plOperatingExpenses
	case strings.HasPrefix(code, "8"):
		return plFinanceCosts
	}
	return plNone
}

var revenueStatuses = map[accounting.InvoiceStatus]bool{
	accounting.InvoicePaid:    true,
	accounting.InvoiceSent:    true,
	accounting.InvoiceOverdue: true,
}

// BuildProfitAndLoss aggregates invoice revenue and ledger costs for period.
func BuildProfitAndLoss(in ProfitAndLossInput, period periods.Period, opts accounting.Options) (ProfitAndLoss, []shared.Warning, error) {
	if err := in.validate(); err != nil {
		return ProfitAndLoss{}, nil, err
	}
	pl, warnings := buildProfitAndLoss(in, period, opts.WithDefaults())
	return pl, warnings, nil
}

// BuildProfitAndLossSeries builds one statement per period, validating the
// input once.
func BuildProfitAndLossSeries(in ProfitAndLossInput, series []periods.Period, opts accounting.Options) ([]ProfitAndLoss, []shared.Warning, error) {
	if err := in.validate(); err != nil {
		return nil, nil, err
	}
	opts = opts.WithDefaults()
	var diags shared.Diagnostics
	out := make([]ProfitAndLoss, 0, len(series))
	for _, period := range series {
		pl, warnings := buildProfitAndLoss(in, period, opts)
		diags.Merge(warnings)
		out = append(out, pl)
	}
	return out, diags.Warnings(), nil
}

func (in ProfitAndLossInput) validate() error {
	if err := accounting.ValidateAccounts(in.Accounts); err != nil {
		return err
	}
	return accounting.ValidateTransactions(in.Transactions)
}

func buildProfitAndLoss(in ProfitAndLossInput, period periods.Period, opts accounting.Options) (ProfitAndLoss, []shared.Warning) {
	var diags shared.Diagnostics

	names := make(map[string]string, len(in.Accounts))
	for _, acc := range in.Accounts {
		if _, ok := names[acc.Code]; !ok {
			names[acc.Code] = acc.Name
		}
	}
	customers := make(map[string]string, len(in.Customers))
	for _, c := range in.Customers {
		customers[c.ID] = c.Name
	}

	revenue := make(map[string]decimal.Decimal)
	revenueNames := make(map[string]string)
	for _, inv := range in.Invoices {
		if !revenueStatuses[accounting.InvoiceStatus(strings.ToLower(string(inv.Status)))] {
			continue
		}
		if inv.InvoiceDate.IsZero() || !period.Contains(inv.InvoiceDate.Time) {
			continue
		}
		total, rateMissing := inv.BaseTotal(opts.BaseCurrency)
		if rateMissing {
			diags.Add(shared.WarnMissingExchangeRate, inv.ID,
				"invoice %s in %s has no exchange rate; total taken at par", invoiceLabel(inv), inv.Currency)
		}
		name, known := customers[inv.CustomerID]
		if !known {
			name = inv.CustomerID
			if _, seen := revenueNames[inv.CustomerID]; !seen {
				diags.Add(shared.WarnUnknownCustomer, inv.CustomerID, "invoice %s references unknown customer %q", invoiceLabel(inv), inv.CustomerID)
			}
		}
		revenueNames[inv.CustomerID] = name
		revenue[inv.CustomerID] = revenue[inv.CustomerID].Add(total)
	}

	ledger := map[plSection]map[string]decimal.Decimal{
		plCostOfSales:       {},
		plOperatingExpenses: {},
		plFinanceCosts:      {},
		plOtherIncome:       {},
	}
	unknown := make(map[string]bool)
	for _, txn := range in.Transactions {
		if !txn.IsPosted() || !period.Contains(txn.Date.Time) {
			continue
		}
		for _, entry := range txn.JournalEntries {
			sec := sectionFor(entry.AccountCode)
			if sec == plNone {
				continue
			}
			if _, ok := names[entry.AccountCode]; !ok && !unknown[entry.AccountCode] {
				unknown[entry.AccountCode] = true
				diags.Add(shared.WarnUnmatchedAccountCode, entry.AccountCode,
					"account %s is not in the chart of accounts; included by code prefix", entry.AccountCode)
			}
			amount := entry.DebitAmount.Sub(entry.CreditAmount)
			if sec == plOtherIncome {
				amount = amount.Neg()
			}
			ledger[sec][entry.AccountCode] = ledger[sec][entry.AccountCode].Add(amount)
		}
	}

	pl := ProfitAndLoss{
		Period:            period,
		Revenue:           section("Revenue", revenue, revenueNames),
		CostOfSales:       section("Cost of Sales", ledger[plCostOfSales], names),
		OperatingExpenses: section("Operating Expenses", ledger[plOperatingExpenses], names),
		OtherIncome:       section("Other Income", ledger[plOtherIncome], names),
		FinanceCosts:      section("Finance Costs", ledger[plFinanceCosts], names),
	}
	pl.GrossProfit = pl.Revenue.Total.Sub(pl.CostOfSales.Total)
	pl.OperatingProfit = pl.GrossProfit.Sub(pl.OperatingExpenses.Total)
	pl.ProfitBeforeTax = pl.OperatingProfit.Add(pl.OtherIncome.Total).Sub(pl.FinanceCosts.Total)
	pl.NetProfit = pl.ProfitBeforeTax
	return pl, diags.Warnings()
}

func section(label string, amounts map[string]decimal.Decimal, names map[string]string) ProfitAndLossSection {
	s := ProfitAndLossSection{Label: label, Lines: make([]ProfitAndLossLine, 0, len(amounts))}
	for code, amount := range amounts {
		name := names[code]
		if name == "" {
			name = code
		}
		s.Lines = append(s.Lines, ProfitAndLossLine{Code: code, Name: name, Amount: amount})
		s.Total = s.Total.Add(amount)
	}
	sort.Slice(s.Lines, func(i, j int) bool { return s.Lines[i].Code < s.Lines[j].Code })
	return s
}

func invoiceLabel(inv accounting.Invoice) string {
	if inv.Number != "" {
		return inv.Number
	}
	return inv.ID
}
