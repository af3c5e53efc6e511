package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/reports"
)

func TestProfitAndLossTrend(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	points, warnings, err := ProfitAndLossTrend(reports.InputFromDataset(sampleDataset()), from, to, accounting.DefaultOptions())
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Len(t, points, 3)

	require.Equal(t, "2025-01", points[0].Period)
	require.True(t, points[0].Revenue.Equal(dec("20000")))
	require.True(t, points[0].COGS.Equal(dec("8000")))
	require.True(t, points[0].Net.Equal(dec("12000")))

	require.Equal(t, "2025-02", points[1].Period)
	require.True(t, points[1].Opex.Equal(dec("3000")))
	require.True(t, points[1].Net.Equal(dec("-3000")))

	require.True(t, points[2].Net.IsZero())
}

func TestProfitAndLossTrendDedupesWarnings(t *testing.T) {
	ds := sampleDataset()
	ds.Transactions = append(ds.Transactions,
		postedOn("stray-jan", 2025, 1, 20, line("6999", "10", "0"), line("1001", "0", "10")),
		postedOn("stray-feb", 2025, 2, 20, line("6999", "10", "0"), line("1001", "0", "10")),
	)
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)
	_, warnings, err := ProfitAndLossTrend(reports.InputFromDataset(ds), from, to, accounting.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, warnings, 1)
}

func TestMonthsBetween(t *testing.T) {
	months := monthsBetween(time.Date(2024, 11, 15, 0, 0, 0, 0, time.UTC), time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC))
	require.Len(t, months, 4)
	require.Equal(t, time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC), months[0].Start)
	require.Equal(t, time.February, months[3].End.Month())
	require.Equal(t, 28, months[3].End.Day())

	require.Empty(t, monthsBetween(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestCashflowTrend(t *testing.T) {
	ds := sampleDataset()
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	points, err := CashflowTrend(ds.Accounts, ds.Transactions, from, to)
	require.NoError(t, err)
	require.Len(t, points, 3)

	require.True(t, points[0].In.Equal(dec("50000")))
	require.True(t, points[0].Out.IsZero())

	// The petty cash float moves between cash accounts and is ignored.
	require.True(t, points[1].In.Equal(dec("15000")))
	require.True(t, points[1].Out.Equal(dec("3000")))
	require.True(t, points[1].Net.Equal(dec("12000")))

	require.True(t, points[2].Net.IsZero())
}

func TestCashflowTrendRejectsNegativeEntries(t *testing.T) {
	txns := []accounting.Transaction{postedOn("bad", 2025, 1, 2, line("1001", "-5", "0"))}
	_, err := CashflowTrend(sampleDataset().Accounts, txns, fixtureNow, fixtureNow)
	require.ErrorIs(t, err, accounting.ErrMalformedInput)
}

func TestIsCashAccount(t *testing.T) {
	require.True(t, IsCashAccount(accounting.Account{Code: "1010", Name: "Operating", Type: accounting.AccountTypeAsset, Subtype: "Bank"}))
	require.True(t, IsCashAccount(accounting.Account{Code: "1000", Name: "Cash on hand", Type: accounting.AccountTypeAsset}))
	require.False(t, IsCashAccount(accounting.Account{Code: "2100", Name: "Bank overdraft", Type: accounting.AccountTypeLiability}))
	require.False(t, IsCashAccount(accounting.Account{Code: "1100", Name: "Receivables", Type: accounting.AccountTypeAsset}))
}

func TestTrendMonthsLimit(t *testing.T) {
	from := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, 1, monthSpan(from, from))
	require.Equal(t, MaxTrendMonths, monthSpan(from, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)))
	require.Zero(t, monthSpan(from, from.AddDate(0, 0, -1)))

	months, err := trendMonths(from, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, months, MaxTrendMonths)

	_, err = trendMonths(from, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.ErrorIs(t, err, accounting.ErrMalformedInput)
}

func TestProfitAndLossTrendRejectsMalformedInput(t *testing.T) {
	ds := sampleDataset()
	ds.Transactions = append(ds.Transactions, postedOn("refund", 2025, 1, 3, line("1001", "-5", "0")))
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	_, _, err := ProfitAndLossTrend(reports.InputFromDataset(ds), from, to, accounting.DefaultOptions())
	require.ErrorIs(t, err, accounting.ErrMalformedInput)
}
