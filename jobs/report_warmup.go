package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/analytics"
	jobmetrics "github.com/odyssey-erp/odyssey-ledger/internal/jobs"
)

// DefaultWarmupPeriods are the period tokens warmed when a task names none.
func DefaultWarmupPeriods() []string {
	return []string{string(periods.ThisMonth), string(periods.ThisYear), string(periods.AllTime)}
}

// DefaultWarmupReports are the reports warmed when a task names none.
func DefaultWarmupReports() []analytics.ReportKind {
	return append(analytics.StandardPack(), analytics.ReportPLTrend, analytics.ReportCashflow)
}

// WarmupJob pre-populates the report cache for the commonly requested periods.
type WarmupJob struct {
	Service LedgerService
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	// PeriodTimeout bounds the pack built for a single period.
	PeriodTimeout time.Duration
}

// NewWarmupJob wires dependencies for the warmup handler.
func NewWarmupJob(service LedgerService, logger *slog.Logger, metrics *jobmetrics.Metrics) *WarmupJob {
	return &WarmupJob{Service: service, Logger: logger, Metrics: metrics, PeriodTimeout: 20 * time.Second}
}

// Handle processes warmup tasks.
func (j *WarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("reports warmup: handler not configured")
	}
	var payload WarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	kinds, err := warmupKinds(payload.Reports)
	if err != nil {
		return fmt.Errorf("reports warmup: %v: %w", err, asynq.SkipRetry)
	}
	tokens := payload.Periods
	if len(tokens) == 0 {
		tokens = DefaultWarmupPeriods()
	}

	tracker := j.metrics().Track(TaskReportsWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	start := time.Now()
	logger := j.logger()
	logger.Info("starting reports warmup", slog.Int("periods", len(tokens)), slog.Int("reports", len(kinds)))

	ds, err := j.Service.Dataset(ctx)
	if err != nil {
		resultErr = err
		logger.Error("load dataset", slog.Any("error", err))
		return resultErr
	}

	failed := 0
	var findings []shared.Warning
	for _, token := range tokens {
		pack, err := j.warmPeriod(ctx, ds, token, kinds)
		if err != nil {
			resultErr = err
			logger.Error("warm period", slog.String("period", token), slog.Any("error", err))
			return resultErr
		}
		for _, entry := range pack.Results {
			if entry.Error != "" {
				logger.Warn("report warmup failed",
					slog.String("period", token),
					slog.String("report", string(entry.Kind)),
					slog.String("error", entry.Error))
				continue
			}
			findings = append(findings, entry.Warnings...)
		}
		failed += pack.Failed
	}
	j.metrics().AddFindings(TaskReportsWarmup, shared.Dedupe(findings))

	logger.Info("completed reports warmup", slog.Int("failed", failed), slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *WarmupJob) warmPeriod(ctx context.Context, ds accounting.Dataset, token string, kinds []analytics.ReportKind) (analytics.ReportPack, error) {
	if j.PeriodTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.PeriodTimeout)
		defer cancel()
	}
	return j.Service.BuildPack(ctx, ds, analytics.PackRequest{
		Reports: kinds,
		Query:   analytics.Query{Period: token},
	})
}

func warmupKinds(names []string) ([]analytics.ReportKind, error) {
	if len(names) == 0 {
		return DefaultWarmupReports(), nil
	}
	kinds := make([]analytics.ReportKind, 0, len(names))
	for _, name := range names {
		kind, err := analytics.ParseReportKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

func (j *WarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskReportsWarmup))
}

func (j *WarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
