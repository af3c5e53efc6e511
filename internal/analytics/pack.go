package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

const packConcurrency = 4

// PackRequest selects the reports of a batch. An empty Reports list builds
// the standard pack.
type PackRequest struct {
	Reports []ReportKind `json:"reports"`
	Query
}

// PackEntry is the outcome of one report in a batch. Exactly one of Data and
// Error is set.
type PackEntry struct {
	Kind       ReportKind       `json:"kind"`
	Data       json.RawMessage  `json:"data,omitempty"`
	Warnings   []shared.Warning `json:"warnings"`
	Error      string           `json:"error,omitempty"`
	DurationMS int64            `json:"duration_ms"`
}

// ReportPack is the result of a batch build.
type ReportPack struct {
	RunID       uuid.UUID   `json:"run_id"`
	GeneratedAt time.Time   `json:"generated_at"`
	Fingerprint Fingerprint `json:"fingerprint"`
	Results     []PackEntry `json:"results"`
	Failed      int         `json:"failed"`
}

// Entry returns the pack entry for kind.
func (p ReportPack) Entry(kind ReportKind) (PackEntry, bool) {
	for _, e := range p.Results {
		if e.Kind == kind {
			return e, true
		}
	}
	return PackEntry{}, false
}

// BuildPack computes the requested reports in parallel over ds. A report
// that fails records its error and the others still complete; only context
// cancellation aborts the batch.
func (s *Service) BuildPack(ctx context.Context, ds accounting.Dataset, req PackRequest) (ReportPack, error) {
	kinds := req.Reports
	if len(kinds) == 0 {
		kinds = StandardPack()
	}
	fp, err := FingerprintDataset(ds)
	if err != nil {
		return ReportPack{}, err
	}
	now := s.now()
	pack := ReportPack{
		RunID:       uuid.New(),
		GeneratedAt: now,
		Fingerprint: fp,
		Results:     make([]PackEntry, len(kinds)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(packConcurrency)
	for i, kind := range kinds {
		i, kind := i, kind
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			entry := PackEntry{Kind: kind, Warnings: []shared.Warning{}}
			result, err := s.compute(gctx, kind, ds, fp, req.Query, now)
			if err != nil {
				entry.Error = err.Error()
			} else {
				entry.Data = result.Data
				entry.Warnings = result.Warnings
			}
			entry.DurationMS = time.Since(start).Milliseconds()
			pack.Results[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ReportPack{}, err
	}
	for _, entry := range pack.Results {
		if entry.Error != "" {
			pack.Failed++
		}
	}
	s.logger.Info("report pack built",
		slog.String("run_id", pack.RunID.String()),
		slog.Int("reports", len(kinds)),
		slog.Int("failed", pack.Failed))
	return pack, nil
}

// BuildStoredPack loads the dataset from the repository and builds a pack.
func (s *Service) BuildStoredPack(ctx context.Context, req PackRequest) (ReportPack, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return ReportPack{}, err
	}
	return s.BuildPack(ctx, ds, req)
}
