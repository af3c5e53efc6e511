package analytics

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// Bucket is an aging day range.
type Bucket string

const (
	BucketCurrent Bucket = "current"
	Bucket31To60  Bucket = "days_31_60"
	Bucket61To90  Bucket = "days_61_90"
	BucketOver90  Bucket = "over_90"
)

const unknownVendorKey = "Unknown vendor"

// BucketFor maps days outstanding onto a bucket. Anything up to 30 days,
// including amounts not yet due, is current.
func BucketFor(days int) Bucket {
	switch {
	case days <= 30:
		return BucketCurrent
	case days <= 60:
		return Bucket31To60
	case days <= 90:
		return Bucket61To90
	default:
		return BucketOver90
	}
}

// AgingKind distinguishes the two sides of the ledger.
type AgingKind string

const (
	AgingReceivables AgingKind = "receivables"
	AgingPayables    AgingKind = "payables"
)

// AgingBuckets holds one amount per bucket plus their sum.
type AgingBuckets struct {
	Current      decimal.Decimal `json:"current"`
	Days31To60   decimal.Decimal `json:"days_31_60"`
	Days61To90   decimal.Decimal `json:"days_61_90"`
	Over90       decimal.Decimal `json:"over_90"`
	TotalBalance decimal.Decimal `json:"total_balance"`
}

func (b *AgingBuckets) add(bucket Bucket, amount decimal.Decimal) {
	switch bucket {
	case BucketCurrent:
		b.Current = b.Current.Add(amount)
	case Bucket31To60:
		b.Days31To60 = b.Days31To60.Add(amount)
	case Bucket61To90:
		b.Days61To90 = b.Days61To90.Add(amount)
	default:
		b.Over90 = b.Over90.Add(amount)
	}
}

// rounded returns the buckets in whole currency units with TotalBalance as
// their sum, so the buckets always partition the total.
func (b AgingBuckets) rounded() AgingBuckets {
	out := AgingBuckets{
		Current:    shared.RoundUnits(b.Current),
		Days31To60: shared.RoundUnits(b.Days31To60),
		Days61To90: shared.RoundUnits(b.Days61To90),
		Over90:     shared.RoundUnits(b.Over90),
	}
	out.TotalBalance = out.Current.Add(out.Days31To60).Add(out.Days61To90).Add(out.Over90)
	return out
}

func (b *AgingBuckets) accumulate(other AgingBuckets) {
	b.Current = b.Current.Add(other.Current)
	b.Days31To60 = b.Days31To60.Add(other.Days31To60)
	b.Days61To90 = b.Days61To90.Add(other.Days61To90)
	b.Over90 = b.Over90.Add(other.Over90)
	b.TotalBalance = b.TotalBalance.Add(other.TotalBalance)
}

// AgingItem is one open invoice or expense.
type AgingItem struct {
	ID      string          `json:"id"`
	Number  string          `json:"number,omitempty"`
	Date    accounting.Date `json:"date"`
	Days    int             `json:"days"`
	Bucket  Bucket          `json:"bucket"`
	Balance decimal.Decimal `json:"balance"`
}

// PartyAging aggregates one customer or vendor.
type PartyAging struct {
	PartyID   string      `json:"party_id"`
	PartyName string      `json:"party_name"`
	Items     []AgingItem `json:"items"`
	AgingBuckets
}

// AgingReport is the aged receivables or payables table.
type AgingReport struct {
	Kind    AgingKind    `json:"kind"`
	AsOf    time.Time    `json:"as_of"`
	Parties []PartyAging `json:"parties"`
	Totals  AgingBuckets `json:"totals"`
}

var closedInvoiceStatuses = map[accounting.InvoiceStatus]bool{
	accounting.InvoicePaid:       true,
	accounting.InvoiceCancelled:  true,
	accounting.InvoiceWrittenOff: true,
}

var closedExpenseStatuses = map[accounting.ExpenseStatus]bool{
	accounting.ExpensePaid:      true,
	accounting.ExpenseCancelled: true,
}

// AgedReceivables ages every open invoice by days past its due date.
func AgedReceivables(invoices []accounting.Invoice, customers []accounting.Customer, now time.Time, opts accounting.Options) (AgingReport, []shared.Warning, error) {
	opts = opts.WithDefaults()
	var diags shared.Diagnostics

	names := make(map[string]string, len(customers))
	for _, c := range customers {
		names[c.ID] = c.Name
	}
	warnedCustomer := make(map[string]bool)
	acc := newAgingAccumulator()

	for _, inv := range invoices {
		if closedInvoiceStatuses[accounting.InvoiceStatus(strings.ToLower(string(inv.Status)))] {
			continue
		}
		balance, rateMissing := inv.Outstanding(opts.BaseCurrency)
		if rateMissing {
			diags.Add(shared.WarnMissingExchangeRate, inv.ID,
				"invoice %s in %s has no exchange rate; total taken at par", invoiceRef(inv), inv.Currency)
		}
		if balance.IsZero() {
			continue
		}

		days := 0
		if inv.DueDate.IsZero() {
			diags.Add(shared.WarnMissingDueDate, inv.ID, "invoice %s has no due date; aged as current", invoiceRef(inv))
		} else {
			days = daysBetween(inv.DueDate.Time, now)
		}

		name, ok := names[inv.CustomerID]
		if !ok {
			name = inv.CustomerID
			if !warnedCustomer[inv.CustomerID] {
				warnedCustomer[inv.CustomerID] = true
				diags.Add(shared.WarnUnknownCustomer, inv.CustomerID, "invoice %s references unknown customer %q", invoiceRef(inv), inv.CustomerID)
			}
		}
		acc.add(inv.CustomerID, name, AgingItem{
			ID:      inv.ID,
			Number:  inv.Number,
			Date:    inv.DueDate,
			Days:    days,
			Bucket:  BucketFor(days),
			Balance: balance,
		})
	}
	return acc.report(AgingReceivables, now), diags.Warnings(), nil
}

// AgedPayables ages every unpaid expense by days since its expense date.
// Expenses carry no payments, so the full amount is outstanding.
func AgedPayables(expenses []accounting.Expense, now time.Time, opts accounting.Options) (AgingReport, []shared.Warning, error) {
	if err := accounting.ValidateExpenses(expenses); err != nil {
		return AgingReport{}, nil, err
	}
	var diags shared.Diagnostics
	acc := newAgingAccumulator()

	for _, exp := range expenses {
		if closedExpenseStatuses[accounting.ExpenseStatus(strings.ToLower(string(exp.Status)))] {
			continue
		}
		if exp.Amount.IsZero() {
			continue
		}
		days := 0
		if exp.ExpenseDate.IsZero() {
			diags.Add(shared.WarnMissingExpenseDate, exp.ID, "expense %s has no expense date; aged as current", exp.ID)
		} else {
			days = daysBetween(exp.ExpenseDate.Time, now)
		}
		vendor := strings.TrimSpace(exp.VendorName)
		if vendor == "" {
			vendor = unknownVendorKey
		}
		acc.add(vendor, vendor, AgingItem{
			ID:      exp.ID,
			Date:    exp.ExpenseDate,
			Days:    days,
			Bucket:  BucketFor(days),
			Balance: exp.Amount,
		})
	}
	return acc.report(AgingPayables, now), diags.Warnings(), nil
}

type agingAccumulator struct {
	order   []string
	parties map[string]*PartyAging
}

func newAgingAccumulator() *agingAccumulator {
	return &agingAccumulator{parties: make(map[string]*PartyAging)}
}

func (a *agingAccumulator) add(id, name string, item AgingItem) {
	party, ok := a.parties[id]
	if !ok {
		party = &PartyAging{PartyID: id, PartyName: name}
		a.parties[id] = party
		a.order = append(a.order, id)
	}
	party.Items = append(party.Items, item)
	party.AgingBuckets.add(item.Bucket, item.Balance)
}

func (a *agingAccumulator) report(kind AgingKind, now time.Time) AgingReport {
	out := AgingReport{Kind: kind, AsOf: now, Parties: make([]PartyAging, 0, len(a.order))}
	for _, id := range a.order {
		party := *a.parties[id]
		party.AgingBuckets = party.AgingBuckets.rounded()
		out.Totals.accumulate(party.AgingBuckets)
		out.Parties = append(out.Parties, party)
	}
	sort.SliceStable(out.Parties, func(i, j int) bool {
		pi, pj := out.Parties[i], out.Parties[j]
		if c := pi.TotalBalance.Cmp(pj.TotalBalance); c != 0 {
			return c > 0
		}
		return pi.PartyName < pj.PartyName
	})
	return out
}

// daysBetween counts calendar days from since to now, ignoring time of day.
func daysBetween(since, now time.Time) int {
	a := time.Date(since.Year(), since.Month(), since.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func invoiceRef(inv accounting.Invoice) string {
	if inv.Number != "" {
		return inv.Number
	}
	return inv.ID
}
