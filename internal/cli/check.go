package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/jobs"
)

// exitUnbalanced is returned by check when either balance test fails.
const exitUnbalanced = 10

func newCheckCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify that the trial balance and balance sheet balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := g.query()
			if err != nil {
				return err
			}
			svc, err := g.service()
			if err != nil {
				return err
			}
			job := jobs.NewIntegrityJob(svc, g.logger, nil)
			asOf := q.AsOf.Time
			if asOf.IsZero() {
				asOf = g.opts.Now()
			}
			report, err := job.Check(cmd.Context(), asOf)
			if err != nil {
				return err
			}

			if g.format == FormatJSON {
				if err := writeJSON(g.opts.Stdout, report); err != nil {
					return err
				}
			} else {
				w := g.opts.Stdout
				_, _ = fmt.Fprintf(w, "%s as of %s\n", titleStyle.Render("integrity"), report.AsOf.Format("2006-01-02"))
				_, _ = fmt.Fprintf(w, "  trial balance  %s variance %s\n", status(report.TrialBalanceOK), formatMoney(report.TrialBalanceVariance))
				_, _ = fmt.Fprintf(w, "  balance sheet  %s variance %s\n", status(report.BalanceSheetOK), formatMoney(report.BalanceSheetVariance))
				renderWarnings(g.opts.Stderr, report.Findings)
			}
			if !report.Balanced() {
				return &ExitError{Code: exitUnbalanced, Err: shared.ErrUnbalanced}
			}
			return nil
		},
	}
}
