package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/analytics"
	jobmetrics "github.com/odyssey-erp/odyssey-ledger/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// LedgerService is the slice of the report service used by background jobs.
type LedgerService interface {
	Dataset(ctx context.Context) (accounting.Dataset, error)
	Compute(ctx context.Context, kind analytics.ReportKind, ds accounting.Dataset, q analytics.Query) (analytics.Result, error)
	BuildPack(ctx context.Context, ds accounting.Dataset, req analytics.PackRequest) (analytics.ReportPack, error)
}

// IntegrityReport summarises one integrity check.
type IntegrityReport struct {
	AsOf                 time.Time        `json:"as_of"`
	TrialBalanceVariance decimal.Decimal  `json:"trial_balance_variance"`
	TrialBalanceOK       bool             `json:"trial_balance_ok"`
	BalanceSheetVariance decimal.Decimal  `json:"balance_sheet_variance"`
	BalanceSheetOK       bool             `json:"balance_sheet_ok"`
	Findings             []shared.Warning `json:"findings"`
}

// Balanced reports whether both checks passed.
func (r IntegrityReport) Balanced() bool {
	return r.TrialBalanceOK && r.BalanceSheetOK
}

// IntegrityJob verifies that the stored ledger balances.
type IntegrityJob struct {
	Service LedgerService
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewIntegrityJob wires dependencies for the integrity handler.
func NewIntegrityJob(service LedgerService, logger *slog.Logger, metrics *jobmetrics.Metrics) *IntegrityJob {
	return &IntegrityJob{
		Service: service,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes integrity tasks. An out-of-balance ledger is logged and
// counted but does not fail the task; retrying would not change the data.
func (j *IntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("ledger integrity: handler not configured")
	}
	var payload IntegrityPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	asOf, err := accounting.ParseDate(payload.AsOf)
	if err != nil {
		return fmt.Errorf("ledger integrity: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskLedgerIntegrity)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	report, err := j.Check(ctx, asOf.Time)
	if err != nil {
		resultErr = err
		j.logger().Error("integrity check", slog.Any("error", err))
		return resultErr
	}
	j.metrics().AddFindings(TaskLedgerIntegrity, report.Findings)

	logger := j.logger().With(slog.Time("as_of", report.AsOf), slog.Int("findings", len(report.Findings)))
	if !report.Balanced() {
		logger.Error("ledger out of balance",
			slog.String("trial_balance_variance", report.TrialBalanceVariance.String()),
			slog.String("balance_sheet_variance", report.BalanceSheetVariance.String()))
		return resultErr
	}
	logger.Info("ledger balanced")
	return resultErr
}

// Check builds the trial balance and balance sheet as of asOf over one
// dataset snapshot. A zero asOf uses the job clock.
func (j *IntegrityJob) Check(ctx context.Context, asOf time.Time) (IntegrityReport, error) {
	if asOf.IsZero() {
		asOf = j.now()
	}
	ds, err := j.Service.Dataset(ctx)
	if err != nil {
		return IntegrityReport{}, err
	}
	q := analytics.Query{AsOf: accounting.Date{Time: asOf}}

	tbResult, err := j.Service.Compute(ctx, analytics.ReportTrialBalance, ds, q)
	if err != nil {
		return IntegrityReport{}, fmt.Errorf("ledger integrity: trial balance: %w", err)
	}
	var tb reports.TrialBalance
	if err := tbResult.Decode(&tb); err != nil {
		return IntegrityReport{}, err
	}
	bsResult, err := j.Service.Compute(ctx, analytics.ReportBalanceSheet, ds, q)
	if err != nil {
		return IntegrityReport{}, fmt.Errorf("ledger integrity: balance sheet: %w", err)
	}
	var bs reports.BalanceSheet
	if err := bsResult.Decode(&bs); err != nil {
		return IntegrityReport{}, err
	}

	return IntegrityReport{
		AsOf:                 bs.AsOf,
		TrialBalanceVariance: tb.Variance,
		TrialBalanceOK:       tb.IsBalanced,
		BalanceSheetVariance: bs.Variance,
		BalanceSheetOK:       bs.BalanceCheck,
		Findings:             shared.Dedupe(append(tbResult.Warnings, bsResult.Warnings...)),
	}, nil
}

func (j *IntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLedgerIntegrity))
	}
	return slog.Default().With(slog.String("job", TaskLedgerIntegrity))
}

func (j *IntegrityJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *IntegrityJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
