package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/analytics"
	jobmetrics "github.com/odyssey-erp/odyssey-ledger/internal/jobs"
	_ "github.com/odyssey-erp/odyssey-ledger/testing"
)

var jobNow = time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)

type stubRepo struct {
	ds  accounting.Dataset
	err error
}

func (s stubRepo) LoadDataset(context.Context) (accounting.Dataset, error) {
	return s.ds, s.err
}

func entry(code, debit, credit string) accounting.JournalEntry {
	return accounting.JournalEntry{
		AccountCode:  code,
		DebitAmount:  decimal.RequireFromString(debit),
		CreditAmount: decimal.RequireFromString(credit),
	}
}

func posted(id string, date accounting.Date, entries ...accounting.JournalEntry) accounting.Transaction {
	return accounting.Transaction{ID: id, Date: date, Status: accounting.TransactionPosted, JournalEntries: entries}
}

func balancedDataset() accounting.Dataset {
	return accounting.Dataset{
		Accounts: []accounting.Account{
			{Code: "1000", Name: "Cash", Type: accounting.AccountTypeAsset},
			{Code: "3000", Name: "Owner Capital", Type: accounting.AccountTypeEquity},
			{Code: "4000", Name: "Sales", Type: accounting.AccountTypeRevenue},
			{Code: "6100", Name: "Rent", Type: accounting.AccountTypeExpense},
		},
		Transactions: []accounting.Transaction{
			posted("capital", accounting.NewDate(2025, 1, 2), entry("1000", "50000", "0"), entry("3000", "0", "50000")),
			posted("sale", accounting.NewDate(2025, 1, 20), entry("1000", "20000", "0"), entry("4000", "0", "20000")),
			posted("rent", accounting.NewDate(2025, 2, 1), entry("6100", "3000", "0"), entry("1000", "0", "3000")),
		},
		Invoices: []accounting.Invoice{{
			ID: "inv-1", CustomerID: "c1", InvoiceDate: accounting.NewDate(2025, 2, 1),
			DueDate: accounting.NewDate(2025, 3, 1), TotalAmount: decimal.RequireFromString("4000"),
			Status: accounting.InvoiceSent,
		}},
		Customers: []accounting.Customer{{ID: "c1", Name: "Acme"}},
		Expenses: []accounting.Expense{{
			ID: "e1", VendorName: "Supplier", ExpenseDate: accounting.NewDate(2025, 2, 10),
			Amount: decimal.RequireFromString("700"), Status: accounting.ExpensePending,
		}},
	}
}

func newService(t *testing.T, repo analytics.Repository, cache *analytics.Cache) *analytics.Service {
	t.Helper()
	svc := analytics.NewService(repo, cache, accounting.DefaultOptions(), nil)
	svc.WithNow(func() time.Time { return jobNow })
	return svc
}

func newIntegrityJob(t *testing.T, repo analytics.Repository) (*IntegrityJob, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	job := NewIntegrityJob(newService(t, repo, nil), nil, jobmetrics.NewMetrics(reg))
	job.clock = func() time.Time { return jobNow }
	return job, reg
}

func mustTask(t *testing.T) func(*asynq.Task, error) *asynq.Task {
	return func(task *asynq.Task, err error) *asynq.Task {
		t.Helper()
		require.NoError(t, err)
		return task
	}
}

func TestTaskConstructors(t *testing.T) {
	task := mustTask(t)(NewIntegrityTask("2025-03-01"))
	require.Equal(t, TaskLedgerIntegrity, task.Type())
	require.JSONEq(t, `{"as_of":"2025-03-01"}`, string(task.Payload()))

	task = mustTask(t)(NewWarmupTask(WarmupPayload{Periods: []string{"this_month"}}))
	require.Equal(t, TaskReportsWarmup, task.Type())
	require.JSONEq(t, `{"periods":["this_month"]}`, string(task.Payload()))
}

func TestIntegrityCheckBalanced(t *testing.T) {
	job, _ := newIntegrityJob(t, stubRepo{ds: balancedDataset()})

	report, err := job.Check(context.Background(), time.Time{})
	require.NoError(t, err)
	require.True(t, report.Balanced())
	require.True(t, report.TrialBalanceVariance.IsZero())
	require.Empty(t, report.Findings)
	if report.AsOf.Before(jobNow) {
		t.Fatalf("expected as_of at or after %s, got %s", jobNow, report.AsOf)
	}
}

func TestIntegrityHandleRecordsSuccess(t *testing.T) {
	job, reg := newIntegrityJob(t, stubRepo{ds: balancedDataset()})

	err := job.Handle(context.Background(), mustTask(t)(NewIntegrityTask("2025-03-01")))
	require.NoError(t, err)

	expected := `
# HELP ledger_jobs_total Total job executions partitioned by job name and status.
# TYPE ledger_jobs_total counter
ledger_jobs_total{job="ledger:integrity",status="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "ledger_jobs_total"))
}

func TestIntegrityHandleOutOfBalance(t *testing.T) {
	ds := balancedDataset()
	ds.Transactions = append(ds.Transactions,
		posted("typo", accounting.NewDate(2025, 3, 1), entry("6100", "120", "0"), entry("1000", "0", "100")))
	job, reg := newIntegrityJob(t, stubRepo{ds: ds})

	report, err := job.Check(context.Background(), time.Time{})
	require.NoError(t, err)
	require.False(t, report.Balanced())
	require.True(t, report.TrialBalanceVariance.Equal(decimal.RequireFromString("20")))
	require.False(t, report.BalanceSheetOK)
	require.Equal(t, 1, shared.CountByCode(report.Findings)[shared.WarnUnbalancedTransaction])

	// An imbalance is a finding, not a task failure.
	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskLedgerIntegrity, nil)))

	expected := `
# HELP ledger_job_findings_total Data-quality findings raised by background jobs, by warning code.
# TYPE ledger_job_findings_total counter
ledger_job_findings_total{code="unbalanced_transaction",job="ledger:integrity"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "ledger_job_findings_total"))
}

func TestIntegrityHandleRejectsBadPayload(t *testing.T) {
	job, _ := newIntegrityJob(t, stubRepo{ds: balancedDataset()})

	err := job.Handle(context.Background(), asynq.NewTask(TaskLedgerIntegrity, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), mustTask(t)(NewIntegrityTask("15/03/2025")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestIntegrityHandleStoreFailure(t *testing.T) {
	boom := errors.New("connection refused")
	job, reg := newIntegrityJob(t, stubRepo{err: boom})

	err := job.Handle(context.Background(), asynq.NewTask(TaskLedgerIntegrity, nil))
	require.ErrorIs(t, err, boom)

	expected := `
# HELP ledger_jobs_failures_total Total failures observed for background jobs.
# TYPE ledger_jobs_failures_total counter
ledger_jobs_failures_total{job="ledger:integrity"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "ledger_jobs_failures_total"))
}

func TestIntegrityJobNotConfigured(t *testing.T) {
	var job *IntegrityJob
	require.Error(t, job.Handle(context.Background(), asynq.NewTask(TaskLedgerIntegrity, nil)))
}

func TestWarmupPopulatesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc := newService(t, stubRepo{ds: balancedDataset()}, analytics.NewCache(client, time.Minute))
	reg := prometheus.NewRegistry()
	job := NewWarmupJob(svc, nil, jobmetrics.NewMetrics(reg))

	task := mustTask(t)(NewWarmupTask(WarmupPayload{Periods: []string{"this_month"}, Reports: []string{"balance-sheet", "profit_loss"}}))
	require.NoError(t, job.Handle(context.Background(), task))

	reportKeys := 0
	for _, key := range mr.Keys() {
		if strings.HasPrefix(key, "ledger:report:") {
			reportKeys++
		}
	}
	require.Equal(t, 2, reportKeys)

	expected := `
# HELP ledger_jobs_total Total job executions partitioned by job name and status.
# TYPE ledger_jobs_total counter
ledger_jobs_total{job="reports:warmup",status="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "ledger_jobs_total"))
}

func TestWarmupDefaults(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc := newService(t, stubRepo{ds: balancedDataset()}, analytics.NewCache(client, time.Minute))
	job := NewWarmupJob(svc, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskReportsWarmup, nil)))

	require.Len(t, DefaultWarmupReports(), 8)
	if len(mr.Keys()) <= len(DefaultWarmupReports()) {
		t.Fatalf("expected reports cached for several periods, got keys %v", mr.Keys())
	}
}

func TestWarmupRejectsUnknownReport(t *testing.T) {
	job := NewWarmupJob(newService(t, stubRepo{ds: balancedDataset()}, nil), nil, nil)
	task := mustTask(t)(NewWarmupTask(WarmupPayload{Reports: []string{"cash_position"}}))
	require.ErrorIs(t, job.Handle(context.Background(), task), asynq.SkipRetry)
}

func TestWarmupToleratesReportFailures(t *testing.T) {
	ds := balancedDataset()
	ds.Expenses[0].Amount = decimal.RequireFromString("-5")
	job := NewWarmupJob(newService(t, stubRepo{ds: ds}, nil), nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task := mustTask(t)(NewWarmupTask(WarmupPayload{Periods: []string{"this_year"}, Reports: []string{"aged_payables", "balance_sheet"}}))
	require.NoError(t, job.Handle(context.Background(), task))
}

func TestNewWorkerValidation(t *testing.T) {
	mr := miniredis.RunT(t)
	opts := asynq.RedisClientOpt{Addr: mr.Addr()}
	noop := func(context.Context, *asynq.Task) error { return nil }

	_, err := NewWorker(WorkerConfig{RedisOpts: opts})
	require.Error(t, err)

	_, err = NewWorker(WorkerConfig{
		RedisOpts: opts,
		Handlers:  []TaskHandler{{Type: TaskLedgerIntegrity, Handler: noop}},
		Cron:      []CronRegistration{{Spec: "not a schedule", Task: asynq.NewTask(TaskLedgerIntegrity, nil)}},
	})
	require.Error(t, err)

	worker, err := NewWorker(WorkerConfig{
		RedisOpts:   opts,
		Concurrency: 2,
		Handlers:    []TaskHandler{{Type: TaskLedgerIntegrity, Handler: noop}},
		Cron:        []CronRegistration{{Spec: "@every 1h", Task: asynq.NewTask(TaskLedgerIntegrity, nil)}},
	})
	require.NoError(t, err)
	require.NotNil(t, worker.scheduler)
}

func TestJobsHealthWithoutInspector(t *testing.T) {
	h := NewHandler(nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	h.health(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body QueueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, QueueDefault, body.Queue)
	require.Zero(t, body.Pending)
}

func TestJobsHealthBeforeFirstEnqueue(t *testing.T) {
	mr := miniredis.RunT(t)
	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	defer inspector.Close()

	rr := httptest.NewRecorder()
	NewHandler(inspector, nil).health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var body QueueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, QueueDefault, body.Queue)
}

func TestJobsHealthRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: addr})
	defer inspector.Close()

	rr := httptest.NewRecorder()
	NewHandler(inspector, nil).health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
