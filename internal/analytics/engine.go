package analytics

import (
	"fmt"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/balances"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// ReportKind names a report the engine can build.
type ReportKind string

const (
	ReportBalanceSheet    ReportKind = "balance_sheet"
	ReportTrialBalance    ReportKind = "trial_balance"
	ReportProfitLoss      ReportKind = "profit_loss"
	ReportAgedReceivables ReportKind = "aged_receivables"
	ReportAgedPayables    ReportKind = "aged_payables"
	ReportRatios          ReportKind = "ratios"
	ReportPLTrend         ReportKind = "pl_trend"
	ReportCashflow        ReportKind = "cashflow"
)

// ReportKinds lists every report in presentation order.
func ReportKinds() []ReportKind {
	return []ReportKind{ReportBalanceSheet, ReportTrialBalance, ReportProfitLoss, ReportAgedReceivables, ReportAgedPayables, ReportRatios, ReportPLTrend, ReportCashflow}
}

// StandardPack is the set of reports built by default.
func StandardPack() []ReportKind {
	return []ReportKind{ReportBalanceSheet, ReportTrialBalance, ReportProfitLoss, ReportAgedReceivables, ReportAgedPayables, ReportRatios}
}

// ParseReportKind accepts a report name with dashes or underscores.
func ParseReportKind(value string) (ReportKind, error) {
	kind := ReportKind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_"))
	for _, k := range ReportKinds() {
		if k == kind {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", shared.ErrUnknownReport, value)
}

// Query scopes a report. From/To take precedence over Period; AsOf defaults
// to the engine clock.
type Query struct {
	Period string          `json:"period,omitempty"`
	From   accounting.Date `json:"from,omitempty"`
	To     accounting.Date `json:"to,omitempty"`
	AsOf   accounting.Date `json:"as_of,omitempty"`
}

// HasRange reports whether the query names a period rather than a cutoff.
func (q Query) HasRange() bool {
	return q.Period != "" || !q.From.IsZero() || !q.To.IsZero()
}

// RatioReport pairs the derived ratios with the scope they were computed over.
type RatioReport struct {
	AsOf   time.Time      `json:"as_of"`
	Period periods.Period `json:"period"`
	Ratios Ratios         `json:"ratios"`
}

// Engine runs the pure report builders over an in-memory dataset.
type Engine struct {
	opts     accounting.Options
	resolver periods.Resolver
}

// NewEngine builds an Engine from configuration.
func NewEngine(opts accounting.Options) Engine {
	opts = opts.WithDefaults()
	return Engine{opts: opts, resolver: periods.NewResolver(opts.AllTimeFloor)}
}

// Options returns the engine configuration.
func (e Engine) Options() accounting.Options {
	return e.opts
}

// Resolve turns the query into a period relative to now.
func (e Engine) Resolve(q Query, now time.Time) (periods.Period, []shared.Warning) {
	if !q.From.IsZero() || !q.To.IsZero() {
		to := q.To.Time
		if to.IsZero() {
			to = now
		}
		return periods.Custom(q.From.Time, to), nil
	}
	token := q.Period
	if token == "" {
		token = string(periods.AllTime)
	}
	return e.resolver.Resolve(token, now)
}

// AsOf returns the query cutoff or now, on the UTC calendar axis.
func (e Engine) AsOf(q Query, now time.Time) time.Time {
	if q.AsOf.IsZero() {
		return periods.Civil(now)
	}
	return q.AsOf.Time
}

// Scope renders the parts of the query that affect kind, for cache keys.
func (e Engine) Scope(kind ReportKind, q Query, now time.Time) string {
	asOf := periods.EndOfDay(e.AsOf(q, now)).Format("20060102")
	switch kind {
	case ReportBalanceSheet, ReportAgedReceivables, ReportAgedPayables:
		return asOf
	case ReportTrialBalance:
		if !q.HasRange() {
			return asOf
		}
		p, _ := e.Resolve(q, now)
		return p.Key()
	case ReportRatios:
		p, _ := e.Resolve(q, now)
		return p.Key() + ":" + asOf
	default:
		p, _ := e.Resolve(q, now)
		return p.Key()
	}
}

// Build runs one report and returns its JSON-ready value.
func (e Engine) Build(kind ReportKind, ds accounting.Dataset, q Query, now time.Time) (interface{}, []shared.Warning, error) {
	switch kind {
	case ReportBalanceSheet:
		return e.BalanceSheet(ds, e.AsOf(q, now))
	case ReportTrialBalance:
		return e.TrialBalance(ds, q, now)
	case ReportProfitLoss:
		return e.ProfitAndLoss(ds, q, now)
	case ReportAgedReceivables:
		return AgedReceivables(ds.Invoices, ds.Customers, e.AsOf(q, now), e.opts)
	case ReportAgedPayables:
		return AgedPayables(ds.Expenses, e.AsOf(q, now), e.opts)
	case ReportRatios:
		return e.Ratios(ds, q, now)
	case ReportPLTrend:
		period, warnings := e.Resolve(q, now)
		points, more, err := ProfitAndLossTrend(reports.InputFromDataset(ds), e.trendStart(period), period.End, e.opts)
		return points, append(warnings, more...), err
	case ReportCashflow:
		period, warnings := e.Resolve(q, now)
		points, err := CashflowTrend(ds.Accounts, ds.Transactions, e.trendStart(period), period.End)
		return points, warnings, err
	}
	return nil, nil, fmt.Errorf("%w: %q", shared.ErrUnknownReport, kind)
}

// BalanceSheet computes balances up to asOf and classifies them.
func (e Engine) BalanceSheet(ds accounting.Dataset, asOf time.Time) (reports.BalanceSheet, []shared.Warning, error) {
	ledger, warnings, err := balances.Calculate(ds.Accounts, ds.Transactions, asOf)
	if err != nil {
		return reports.BalanceSheet{}, nil, err
	}
	bs, more := reports.BuildBalanceSheet(ledger, e.opts)
	return bs, append(warnings, more...), nil
}

// TrialBalance builds a cumulative trial balance, or a period one with
// opening balances when the query names a range.
func (e Engine) TrialBalance(ds accounting.Dataset, q Query, now time.Time) (reports.TrialBalance, []shared.Warning, error) {
	var (
		ledger   balances.Ledger
		warnings []shared.Warning
		err      error
	)
	if q.HasRange() {
		period, pw := e.Resolve(q, now)
		ledger, warnings, err = balances.CalculatePeriod(ds.Accounts, ds.Transactions, period)
		warnings = append(pw, warnings...)
	} else {
		ledger, warnings, err = balances.Calculate(ds.Accounts, ds.Transactions, e.AsOf(q, now))
	}
	if err != nil {
		return reports.TrialBalance{}, nil, err
	}
	return reports.BuildTrialBalance(ledger, e.opts), warnings, nil
}

// ProfitAndLoss builds the P&L for the query period.
func (e Engine) ProfitAndLoss(ds accounting.Dataset, q Query, now time.Time) (reports.ProfitAndLoss, []shared.Warning, error) {
	period, warnings := e.Resolve(q, now)
	pl, more, err := reports.BuildProfitAndLoss(reports.InputFromDataset(ds), period, e.opts)
	if err != nil {
		return reports.ProfitAndLoss{}, nil, err
	}
	return pl, append(warnings, more...), nil
}

// Ratios derives ratios from the balance sheet at AsOf and the P&L over the period.
func (e Engine) Ratios(ds accounting.Dataset, q Query, now time.Time) (RatioReport, []shared.Warning, error) {
	asOf := e.AsOf(q, now)
	bs, bsWarnings, err := e.BalanceSheet(ds, asOf)
	if err != nil {
		return RatioReport{}, nil, err
	}
	pl, plWarnings, err := e.ProfitAndLoss(ds, q, now)
	if err != nil {
		return RatioReport{}, nil, err
	}
	return RatioReport{AsOf: bs.AsOf, Period: pl.Period, Ratios: ComputeRatios(bs, pl)},
		shared.Dedupe(append(bsWarnings, plWarnings...)), nil
}

// trendStart bounds open-ended periods so trends do not span unbounded months.
func (e Engine) trendStart(p periods.Period) time.Time {
	if !p.Start.IsZero() {
		return p.Start
	}
	return time.Date(p.End.Year()-1, p.End.Month()+1, 1, 0, 0, 0, 0, p.End.Location())
}
