package export

import (
	"fmt"
	"io"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/analytics"
)

// ResultTable decodes a built report into its tabular layout.
func ResultTable(result analytics.Result) (Table, error) {
	switch result.Kind {
	case analytics.ReportBalanceSheet:
		var bs reports.BalanceSheet
		if err := result.Decode(&bs); err != nil {
			return Table{}, err
		}
		return BalanceSheetTable(bs), nil
	case analytics.ReportTrialBalance:
		var tb reports.TrialBalance
		if err := result.Decode(&tb); err != nil {
			return Table{}, err
		}
		return TrialBalanceTable(tb), nil
	case analytics.ReportProfitLoss:
		var pl reports.ProfitAndLoss
		if err := result.Decode(&pl); err != nil {
			return Table{}, err
		}
		return ProfitAndLossTable(pl), nil
	case analytics.ReportAgedReceivables, analytics.ReportAgedPayables:
		var aging analytics.AgingReport
		if err := result.Decode(&aging); err != nil {
			return Table{}, err
		}
		return AgingTable(aging), nil
	case analytics.ReportRatios:
		var ratios analytics.RatioReport
		if err := result.Decode(&ratios); err != nil {
			return Table{}, err
		}
		return RatiosTable(ratios), nil
	case analytics.ReportPLTrend:
		var points []analytics.PLTrendPoint
		if err := result.Decode(&points); err != nil {
			return Table{}, err
		}
		return PLTrendTable(points), nil
	case analytics.ReportCashflow:
		var points []analytics.CashflowTrendPoint
		if err := result.Decode(&points); err != nil {
			return Table{}, err
		}
		return CashflowTrendTable(points), nil
	}
	return Table{}, fmt.Errorf("%w: no table layout for %q", shared.ErrUnknownReport, result.Kind)
}

// WriteResultCSV decodes a built report and writes it in its CSV layout.
func WriteResultCSV(w io.Writer, result analytics.Result) error {
	table, err := ResultTable(result)
	if err != nil {
		return err
	}
	return table.WriteCSV(w)
}
