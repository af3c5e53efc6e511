package analytics

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

const monthLayout = "2006-01"

// PLTrendPoint conveys one month of revenue and expense movements.
type PLTrendPoint struct {
	Period  string          `json:"period"`
	Revenue decimal.Decimal `json:"revenue"`
	COGS    decimal.Decimal `json:"cogs"`
	Opex    decimal.Decimal `json:"opex"`
	Net     decimal.Decimal `json:"net"`
}

// MaxTrendMonths bounds the number of points a single trend may hold.
const MaxTrendMonths = 120

// ProfitAndLossTrend builds one P&L per calendar month between from and to.
func ProfitAndLossTrend(in reports.ProfitAndLossInput, from, to time.Time, opts accounting.Options) ([]PLTrendPoint, []shared.Warning, error) {
	months, err := trendMonths(from, to)
	if err != nil {
		return nil, nil, err
	}
	statements, warnings, err := reports.BuildProfitAndLossSeries(in, months, opts)
	if err != nil {
		return nil, nil, err
	}
	points := make([]PLTrendPoint, 0, len(statements))
	for i, pl := range statements {
		points = append(points, PLTrendPoint{
			Period:  months[i].Start.Format(monthLayout),
			Revenue: pl.Revenue.Total,
			COGS:    pl.CostOfSales.Total,
			Opex:    pl.OperatingExpenses.Total,
			Net:     pl.NetProfit,
		})
	}
	return points, shared.Dedupe(warnings), nil
}

// trendMonths is monthsBetween with the MaxTrendMonths limit applied.
func trendMonths(from, to time.Time) ([]periods.Period, error) {
	if n := monthSpan(from, to); n > MaxTrendMonths {
		return nil, fmt.Errorf("%w: trend spans %d months, at most %d allowed", accounting.ErrMalformedInput, n, MaxTrendMonths)
	}
	return monthsBetween(from, to), nil
}

// monthSpan counts the calendar months touched by from..to.
func monthSpan(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month()) + 1
}

// monthsBetween lists calendar month periods covering from..to inclusive.
func monthsBetween(from, to time.Time) []periods.Period {
	if to.Before(from) {
		return nil
	}
	var out []periods.Period
	cursor := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, from.Location())
	for !cursor.After(to) {
		out = append(out, periods.Custom(cursor, cursor.AddDate(0, 1, -1)))
		cursor = cursor.AddDate(0, 1, 0)
	}
	return out
}
