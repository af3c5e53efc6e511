package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/analytics"
	"github.com/odyssey-erp/odyssey-ledger/jobs"
	_ "github.com/odyssey-erp/odyssey-ledger/testing"
)

var cliNow = time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)

func amount(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func entry(code, debit, credit string) accounting.JournalEntry {
	return accounting.JournalEntry{AccountCode: code, DebitAmount: amount(debit), CreditAmount: amount(credit)}
}

func cliDataset() accounting.Dataset {
	return accounting.Dataset{
		Accounts: []accounting.Account{
			{Code: "1000", Name: "Cash", Type: accounting.AccountTypeAsset},
			{Code: "3000", Name: "Owner Capital", Type: accounting.AccountTypeEquity},
			{Code: "4000", Name: "Sales", Type: accounting.AccountTypeRevenue},
			{Code: "6100", Name: "Rent", Type: accounting.AccountTypeExpense},
		},
		Transactions: []accounting.Transaction{
			{ID: "t1", Date: accounting.NewDate(2025, 1, 2), Status: accounting.TransactionPosted,
				JournalEntries: []accounting.JournalEntry{entry("1000", "50000", "0"), entry("3000", "0", "50000")}},
			{ID: "t2", Date: accounting.NewDate(2025, 2, 3), Status: accounting.TransactionPosted,
				JournalEntries: []accounting.JournalEntry{entry("1000", "12000", "0"), entry("4000", "0", "12000")}},
			{ID: "t3", Date: accounting.NewDate(2025, 3, 1), Status: accounting.TransactionPosted,
				JournalEntries: []accounting.JournalEntry{entry("6100", "2000", "0"), entry("1000", "0", "2000")}},
		},
		Invoices: []accounting.Invoice{{
			ID: "inv-1", CustomerID: "c1", InvoiceDate: accounting.NewDate(2025, 1, 10),
			DueDate: accounting.NewDate(2025, 2, 1), TotalAmount: amount("5000"), Status: accounting.InvoiceSent,
		}},
		Customers: []accounting.Customer{{ID: "c1", Name: "Acme"}},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeDataset(t *testing.T, ds accounting.Dataset) string {
	t.Helper()
	raw, err := json.Marshal(ds)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "dataset.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	cmd := NewRootCommand(Options{
		Stdout: stdout,
		Stderr: stderr,
		Now:    func() time.Time { return cliNow },
	})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestReportJSON(t *testing.T) {
	path := writeDataset(t, cliDataset())
	stdout, _, err := runCLI(t, "report", "balance-sheet", "--dataset", path, "--format", "json")
	require.NoError(t, err)

	var result struct {
		Kind string `json:"kind"`
		Data struct {
			TotalAssets  decimal.Decimal `json:"total_assets"`
			BalanceCheck bool            `json:"balance_check"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	require.Equal(t, "balance_sheet", result.Kind)
	require.True(t, result.Data.TotalAssets.Equal(amount("60000")), "total assets %s", result.Data.TotalAssets)
	require.True(t, result.Data.BalanceCheck)
}

func TestReportTable(t *testing.T) {
	path := writeDataset(t, cliDataset())
	stdout, stderr, err := runCLI(t, "report", "trial_balance", "-d", path)
	require.NoError(t, err)
	require.Contains(t, stdout, "trial_balance")
	require.Contains(t, stdout, "Owner Capital")
	require.Contains(t, stdout, "60000.00")
	require.Empty(t, stderr)
}

func TestReportCSVRange(t *testing.T) {
	path := writeDataset(t, cliDataset())
	stdout, _, err := runCLI(t, "report", "profit_loss", "-d", path, "-f", "csv", "--from", "2025-01-01", "--to", "2025-01-31")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Equal(t, "Section,Code,Name,Amount", lines[0])
	require.Contains(t, stdout, "Revenue,c1,Acme,5000.00")
	require.Contains(t, stdout, "Net Profit,5000.00")
}

func TestReportWarningsGoToStderr(t *testing.T) {
	ds := cliDataset()
	ds.Invoices[0].CustomerID = "ghost"
	path := writeDataset(t, ds)

	stdout, stderr, err := runCLI(t, "report", "aged-receivables", "-d", path, "-f", "csv")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(stdout, "Party,"))
	require.Contains(t, stderr, string(shared.WarnUnknownCustomer))
}

func TestReportErrors(t *testing.T) {
	path := writeDataset(t, cliDataset())

	_, _, err := runCLI(t, "report", "cash_position", "-d", path)
	require.ErrorIs(t, err, shared.ErrUnknownReport)

	_, _, err = runCLI(t, "report", "ratios")
	require.ErrorContains(t, err, "--dataset is required")

	_, _, err = runCLI(t, "report", "ratios", "-d", path, "-f", "xml")
	require.ErrorContains(t, err, "unknown format")

	_, _, err = runCLI(t, "report", "ratios", "-d", path, "--as-of", "15/03/2025")
	require.ErrorContains(t, err, "--as-of")

	_, _, err = runCLI(t, "report", "profit_loss", "-d", path, "--from", "2025-03-01", "--to", "2025-01-01")
	require.ErrorContains(t, err, "--to is before --from")

	_, _, err = runCLI(t, "report", "ratios", "-d", filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorContains(t, err, "reading dataset")
}

func TestReportMalformedDataset(t *testing.T) {
	ds := cliDataset()
	ds.Transactions[0].JournalEntries[0].DebitAmount = amount("-1")
	path := writeDataset(t, ds)

	_, _, err := runCLI(t, "report", "trial_balance", "-d", path)
	require.ErrorIs(t, err, accounting.ErrMalformedInput)
	require.Equal(t, 1, ExitCode(err))
}

func TestPackCommand(t *testing.T) {
	path := writeDataset(t, cliDataset())
	stdout, _, err := runCLI(t, "pack", "-d", path, "-f", "json")
	require.NoError(t, err)

	var pack analytics.ReportPack
	require.NoError(t, json.Unmarshal([]byte(stdout), &pack))
	require.Len(t, pack.Results, len(analytics.StandardPack()))
	require.Zero(t, pack.Failed)
	require.True(t, pack.GeneratedAt.Equal(cliNow))
}

func TestPackCommandReportsFailures(t *testing.T) {
	ds := cliDataset()
	ds.Expenses = []accounting.Expense{{ID: "e1", VendorName: "Supplier", ExpenseDate: accounting.NewDate(2025, 2, 1), Amount: amount("-5")}}
	path := writeDataset(t, ds)

	stdout, stderr, err := runCLI(t, "pack", "aged_payables", "balance_sheet", "-d", path)
	require.Error(t, err)
	require.Equal(t, 2, ExitCode(err))
	require.Contains(t, stderr, "aged_payables")
	require.Contains(t, stdout, "balance_sheet")
	require.Contains(t, stdout, "1 failed")
}

func TestCheckCommand(t *testing.T) {
	path := writeDataset(t, cliDataset())
	stdout, _, err := runCLI(t, "check", "-d", path)
	require.NoError(t, err)
	require.Contains(t, stdout, "trial balance")
	require.Contains(t, stdout, "2025-03-15")

	ds := cliDataset()
	ds.Transactions = append(ds.Transactions, accounting.Transaction{
		ID: "typo", Date: accounting.NewDate(2025, 3, 2), Status: accounting.TransactionPosted,
		JournalEntries: []accounting.JournalEntry{entry("6100", "1500", "0"), entry("1000", "0", "500")},
	})
	path = writeDataset(t, ds)
	stdout, stderr, err := runCLI(t, "check", "-d", path, "-f", "json")
	require.Error(t, err)
	require.Equal(t, exitUnbalanced, ExitCode(err))
	require.ErrorIs(t, err, shared.ErrUnbalanced)

	var report jobs.IntegrityReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	require.False(t, report.TrialBalanceOK)
	require.True(t, report.TrialBalanceVariance.Equal(amount("1000")))
	require.Contains(t, stderr, "report built with warnings")
}

func TestPeriodsCommand(t *testing.T) {
	stdout, _, err := runCLI(t, "periods", "-f", "json", "--as-of", "2025-05-20")
	require.NoError(t, err)

	var resolved []periods.Period
	require.NoError(t, json.Unmarshal([]byte(stdout), &resolved))
	require.Len(t, resolved, len(periods.Tokens()))
	require.Equal(t, periods.ThisMonth, resolved[0].Token)
	require.Equal(t, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), resolved[0].Start)

	stdout, _, err = runCLI(t, "periods", "-f", "csv")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(stdout, "Token,Start,End\nthis_month,2025-03-01,2025-03-31"))
}

func TestRunWatchDebouncesChanges(t *testing.T) {
	path := writeDataset(t, cliDataset())
	watcher, err := newFileWatcher(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var calls atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		runWatch(ctx, watcher, path, 20*time.Millisecond, discardLogger(), func() { calls.Add(1) })
	}()

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte(`{"accounts":[]}`), 0o600))
	}
	other := filepath.Join(filepath.Dir(path), "notes.txt")
	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0o600))

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done
	if n := calls.Load(); n > 2 {
		t.Fatalf("expected writes to collapse, got %d rebuilds", n)
	}
}

func TestRunWatchSerialisesRebuilds(t *testing.T) {
	path := writeDataset(t, cliDataset())
	watcher, err := newFileWatcher(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var inFlight, peak, calls atomic.Int32
	rebuild := func() {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(60 * time.Millisecond)
		calls.Add(1)
		inFlight.Add(-1)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		runWatch(ctx, watcher, path, 5*time.Millisecond, discardLogger(), rebuild)
	}()

	// Each write lands after the debounce window but while a rebuild sleeps.
	for i := 0; i < 4; i++ {
		require.NoError(t, os.WriteFile(path, []byte(`{"accounts":[]}`), 0o600))
		time.Sleep(25 * time.Millisecond)
	}
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	require.Zero(t, inFlight.Load(), "rebuild still running after runWatch returned")
	require.Equal(t, int32(1), peak.Load())
}

func TestExitCode(t *testing.T) {
	require.Zero(t, ExitCode(nil))
	require.Equal(t, 1, ExitCode(errors.New("boom")))
	require.Equal(t, 10, ExitCode(&ExitError{Code: 10}))
	wrapped := &ExitError{Code: 2, Err: shared.ErrUnknownReport}
	require.ErrorIs(t, wrapped, shared.ErrUnknownReport)
}

func TestEnqueueRejectsUnknownJob(t *testing.T) {
	_, _, err := runCLI(t, "enqueue", "reindex")
	require.ErrorContains(t, err, "unsupported job")
}
