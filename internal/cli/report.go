package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-ledger/internal/analytics"
)

func newReportCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "report <kind>",
		Short: "Build one report",
		Long: "Build one report from the dataset file. Kinds: balance_sheet, trial_balance, profit_loss,\n" +
			"aged_receivables, aged_payables, ratios, pl_trend, cashflow.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := analytics.ParseReportKind(args[0])
			if err != nil {
				return err
			}
			return g.runReport(cmd, kind)
		},
	}
}

func (g *globals) runReport(cmd *cobra.Command, kind analytics.ReportKind) error {
	q, err := g.query()
	if err != nil {
		return err
	}
	svc, err := g.service()
	if err != nil {
		return err
	}
	result, err := svc.Report(cmd.Context(), kind, q)
	if err != nil {
		return err
	}
	return renderResult(g.opts.Stdout, g.opts.Stderr, g.format, result)
}

func newPackCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "pack [kind...]",
		Short: "Build several reports in one batch",
		Long:  "Build the named reports in parallel, or the standard pack when none are named.",
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := make([]analytics.ReportKind, 0, len(args))
			for _, arg := range args {
				kind, err := analytics.ParseReportKind(arg)
				if err != nil {
					return err
				}
				kinds = append(kinds, kind)
			}
			q, err := g.query()
			if err != nil {
				return err
			}
			svc, err := g.service()
			if err != nil {
				return err
			}
			pack, err := svc.BuildStoredPack(cmd.Context(), analytics.PackRequest{Reports: kinds, Query: q})
			if err != nil {
				return err
			}
			if err := g.renderPack(pack); err != nil {
				return err
			}
			if pack.Failed > 0 {
				return &ExitError{Code: 2, Err: fmt.Errorf("%d of %d reports failed", pack.Failed, len(pack.Results))}
			}
			return nil
		},
	}
}

func (g *globals) renderPack(pack analytics.ReportPack) error {
	if g.format == FormatJSON {
		return writeJSON(g.opts.Stdout, pack)
	}
	w := g.opts.Stdout
	for _, entry := range pack.Results {
		if entry.Error != "" {
			_, _ = fmt.Fprintf(g.opts.Stderr, "%s %s: %s\n", failStyle.Render("FAIL"), entry.Kind, entry.Error)
			continue
		}
		result := analytics.Result{Kind: entry.Kind, Data: entry.Data, Warnings: entry.Warnings}
		if err := renderResult(w, g.opts.Stderr, g.format, result); err != nil {
			return err
		}
	}
	_, err := printer.Fprintf(w, "run %s: %d reports, %d failed\n", pack.RunID, len(pack.Results), pack.Failed)
	return err
}
