package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// Repository supplies the dataset reports are computed from.
type Repository interface {
	LoadDataset(ctx context.Context) (accounting.Dataset, error)
}

// Recorder receives report build telemetry.
type Recorder interface {
	ObserveBuild(report string, status string, elapsed time.Duration)
	ObserveWarnings(warnings []shared.Warning)
	SetTrialBalanceVariance(variance float64)
}

// Result is one built report. Data holds the report as JSON so cached and
// freshly built results look the same to callers.
type Result struct {
	Kind     ReportKind       `json:"kind"`
	Data     json.RawMessage  `json:"data"`
	Warnings []shared.Warning `json:"warnings"`
}

// Decode unmarshals Data into dest.
func (r Result) Decode(dest interface{}) error {
	return json.Unmarshal(r.Data, dest)
}

// Service coordinates report computation with the cache layer.
type Service struct {
	repo    Repository
	cache   *Cache
	engine  Engine
	logger  *slog.Logger
	metrics Recorder
	now     func() time.Time
}

// NewService wires a Repository with a Cache helper.
func NewService(repo Repository, cache *Cache, opts accounting.Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, engine: NewEngine(opts), logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithMetrics attaches a telemetry recorder.
func (s *Service) WithMetrics(metrics Recorder) {
	s.metrics = metrics
}

// Engine exposes the underlying engine.
func (s *Service) Engine() Engine {
	return s.engine
}

// Dataset loads the current dataset from the repository.
func (s *Service) Dataset(ctx context.Context) (accounting.Dataset, error) {
	if s.repo == nil {
		return accounting.Dataset{}, errors.New("analytics: repository not configured")
	}
	ds, err := s.repo.LoadDataset(ctx)
	if err != nil {
		return accounting.Dataset{}, fmt.Errorf("analytics: load dataset: %w", err)
	}
	return ds, nil
}

// Report loads the dataset and builds one report.
func (s *Service) Report(ctx context.Context, kind ReportKind, q Query) (Result, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return Result{}, err
	}
	fp, err := FingerprintDataset(ds)
	if err != nil {
		return Result{}, err
	}
	return s.compute(ctx, kind, ds, fp, q, s.now())
}

// Compute builds one report over a caller-supplied dataset.
func (s *Service) Compute(ctx context.Context, kind ReportKind, ds accounting.Dataset, q Query) (Result, error) {
	fp, err := FingerprintDataset(ds)
	if err != nil {
		return Result{}, err
	}
	return s.compute(ctx, kind, ds, fp, q, s.now())
}

// InvalidateCache bumps the cache version so every cached report is rebuilt.
func (s *Service) InvalidateCache(ctx context.Context) (int64, error) {
	ver, err := s.cache.Bump(ctx)
	if err != nil {
		return 0, fmt.Errorf("analytics: bump cache: %w", err)
	}
	s.logger.Info("report cache invalidated", slog.Int64("version", ver))
	return ver, nil
}

func (s *Service) compute(ctx context.Context, kind ReportKind, ds accounting.Dataset, fp Fingerprint, q Query, now time.Time) (Result, error) {
	start := time.Now()
	loader := func(context.Context) (interface{}, error) {
		data, warnings, err := s.engine.Build(kind, ds, q, now)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		s.observeFresh(kind, data, warnings)
		return Result{Kind: kind, Data: raw, Warnings: warnings}, nil
	}

	key, err := s.cache.BuildKey(ctx, keyReport(kind, fp, s.engine.Scope(kind, q, now)))
	if err != nil {
		return Result{}, fmt.Errorf("analytics: cache key: %w", err)
	}
	var result Result
	err = s.cache.FetchJSON(ctx, key, &result, loader)
	s.observeBuild(kind, err, time.Since(start))
	if err != nil {
		s.logger.Warn("report build failed", slog.String("report", string(kind)), slog.Any("error", err))
		return Result{}, err
	}
	if result.Warnings == nil {
		result.Warnings = []shared.Warning{}
	}
	return result, nil
}

func (s *Service) observeFresh(kind ReportKind, data interface{}, warnings []shared.Warning) {
	if len(warnings) > 0 {
		attrs := []any{slog.String("report", string(kind)), slog.Int("warnings", len(warnings))}
		for code, n := range shared.CountByCode(warnings) {
			attrs = append(attrs, slog.Int(string(code), n))
		}
		s.logger.Warn("report built with warnings", attrs...)
	}
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveWarnings(warnings)
	if tb, ok := data.(interface{ VarianceFloat() float64 }); ok {
		s.metrics.SetTrialBalanceVariance(tb.VarianceFloat())
	}
}

func (s *Service) observeBuild(kind ReportKind, err error, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.ObserveBuild(string(kind), status, elapsed)
}
