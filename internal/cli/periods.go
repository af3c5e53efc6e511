package cli

import (
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/odyssey-ledger/internal/analytics"
	"github.com/odyssey-erp/odyssey-ledger/internal/analytics/export"
)

func newPeriodsCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "periods",
		Short: "List period tokens and the ranges they resolve to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := g.query()
			if err != nil {
				return err
			}
			now := g.opts.Now()
			if !q.AsOf.IsZero() {
				now = q.AsOf.Time
			}
			engine := analytics.NewEngine(g.cfg.LedgerOptions())
			resolved := make([]periods.Period, 0, len(periods.Tokens()))
			for _, token := range periods.Tokens() {
				p, _ := engine.Resolve(analytics.Query{Period: string(token)}, now)
				resolved = append(resolved, p)
			}

			switch g.format {
			case FormatJSON:
				return writeJSON(g.opts.Stdout, resolved)
			case FormatCSV:
				return periodsTable(resolved).WriteCSV(g.opts.Stdout)
			}
			return renderTable(g.opts.Stdout, periodsTable(resolved))
		},
	}
}

func periodsTable(ps []periods.Period) export.Table {
	t := export.Table{Header: []string{"Token", "Start", "End"}}
	for _, p := range ps {
		start := ""
		if !p.Start.IsZero() {
			start = p.Start.Format("2006-01-02")
		}
		t.Rows = append(t.Rows, []string{string(p.Token), start, p.End.Format("2006-01-02")})
	}
	return t
}
