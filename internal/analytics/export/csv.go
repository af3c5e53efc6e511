// Package export flattens built reports into tables and CSV.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-ledger/internal/analytics"
)

// Table is a report flattened to a header and string rows. The CSV writers
// and the terminal renderer share it.
type Table struct {
	Header []string
	Rows   [][]string
}

// WriteCSV writes the table with its header row.
func (t Table) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Header); err != nil {
		return err
	}
	for _, record := range t.Rows {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// TrialBalanceTable emits one row per account plus a totals row.
func TrialBalanceTable(tb reports.TrialBalance) Table {
	var records [][]string
	for _, row := range tb.Rows() {
		records = append(records, []string{
			row.Code, row.Name, money(row.Opening), money(row.PeriodDebit), money(row.PeriodCredit), money(row.Debit), money(row.Credit),
		})
	}
	records = append(records, []string{"", "Total", money(tb.TotalOpening), "", "", money(tb.TotalDebits), money(tb.TotalCredits)})
	return Table{Header: []string{"Code", "Account", "Opening", "Period Debit", "Period Credit", "Debit", "Credit"}, Rows: records}
}

// BalanceSheetTable emits every section line followed by section totals.
func BalanceSheetTable(bs reports.BalanceSheet) Table {
	var records [][]string
	for _, section := range bs.Sections() {
		for _, line := range section.Lines {
			records = append(records, []string{section.Label, line.Code, line.Name, money(line.Amount)})
		}
		records = append(records, []string{section.Label, "", "Total " + section.Label, money(section.Total)})
	}
	records = append(records,
		[]string{"", "", "Total Assets", money(bs.TotalAssets)},
		[]string{"", "", "Total Liabilities and Equity", money(bs.TotalLiabilitiesAndEquity)},
		[]string{"", "", "Variance", money(bs.Variance)},
	)
	return Table{Header: []string{"Section", "Code", "Account", "Amount"}, Rows: records}
}

// ProfitAndLossTable emits section lines and the derived profit figures.
func ProfitAndLossTable(pl reports.ProfitAndLoss) Table {
	var records [][]string
	for _, section := range []reports.ProfitAndLossSection{pl.Revenue, pl.CostOfSales, pl.OperatingExpenses, pl.OtherIncome, pl.FinanceCosts} {
		for _, line := range section.Lines {
			records = append(records, []string{section.Label, line.Code, line.Name, money(line.Amount)})
		}
		records = append(records, []string{section.Label, "", "Total " + section.Label, money(section.Total)})
	}
	records = append(records,
		[]string{"", "", "Gross Profit", money(pl.GrossProfit)},
		[]string{"", "", "Operating Profit", money(pl.OperatingProfit)},
		[]string{"", "", "Profit Before Tax", money(pl.ProfitBeforeTax)},
		[]string{"", "", "Net Profit", money(pl.NetProfit)},
	)
	return Table{Header: []string{"Section", "Code", "Name", "Amount"}, Rows: records}
}

// AgingTable prints one row per party and a grand total.
func AgingTable(report analytics.AgingReport) Table {
	var records [][]string
	for _, p := range report.Parties {
		records = append(records, []string{
			p.PartyName, money(p.Current), money(p.Days31To60), money(p.Days61To90), money(p.Over90), money(p.TotalBalance),
		})
	}
	t := report.Totals
	records = append(records, []string{"Total", money(t.Current), money(t.Days31To60), money(t.Days61To90), money(t.Over90), money(t.TotalBalance)})
	return Table{Header: []string{"Party", "Current", "31-60", "61-90", "90+", "Total"}, Rows: records}
}

// RatiosTable lists the ratio report as metric/value pairs.
func RatiosTable(r analytics.RatioReport) Table {
	records := [][]string{
		{"Period", r.Period.Label()},
		{"Current Ratio", formatFloat(r.Ratios.CurrentRatio)},
		{"Quick Ratio", formatFloat(r.Ratios.QuickRatio)},
		{"Debt to Equity", formatFloat(r.Ratios.DebtToEquity)},
		{"Debt Ratio", formatFloat(r.Ratios.DebtRatio)},
		{"Gross Profit Margin %", formatFloat(r.Ratios.GrossProfitMargin)},
		{"Operating Margin %", formatFloat(r.Ratios.OperatingMargin)},
		{"Net Profit Margin %", formatFloat(r.Ratios.NetProfitMargin)},
		{"Working Capital", money(r.Ratios.WorkingCapital)},
	}
	return Table{Header: []string{"Metric", "Value"}, Rows: records}
}

// PLTrendTable lists the monthly P&L movement.
func PLTrendTable(points []analytics.PLTrendPoint) Table {
	records := make([][]string, 0, len(points))
	for _, point := range points {
		records = append(records, []string{point.Period, money(point.Revenue), money(point.COGS), money(point.Opex), money(point.Net)})
	}
	return Table{Header: []string{"Period", "Revenue", "COGS", "Opex", "Net"}, Rows: records}
}

// CashflowTrendTable lists monthly cash movement.
func CashflowTrendTable(points []analytics.CashflowTrendPoint) Table {
	records := make([][]string, 0, len(points))
	for _, point := range points {
		records = append(records, []string{point.Period, money(point.In), money(point.Out), money(point.Net)})
	}
	return Table{Header: []string{"Period", "Cash In", "Cash Out", "Net"}, Rows: records}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// WriteTrialBalanceCSV writes the TrialBalanceTable layout as CSV.
func WriteTrialBalanceCSV(w io.Writer, tb reports.TrialBalance) error {
	return TrialBalanceTable(tb).WriteCSV(w)
}

// WriteBalanceSheetCSV writes the BalanceSheetTable layout as CSV.
func WriteBalanceSheetCSV(w io.Writer, bs reports.BalanceSheet) error {
	return BalanceSheetTable(bs).WriteCSV(w)
}

// WriteProfitAndLossCSV writes the ProfitAndLossTable layout as CSV.
func WriteProfitAndLossCSV(w io.Writer, pl reports.ProfitAndLoss) error {
	return ProfitAndLossTable(pl).WriteCSV(w)
}

// WriteAgingCSV writes the AgingTable layout as CSV.
func WriteAgingCSV(w io.Writer, report analytics.AgingReport) error {
	return AgingTable(report).WriteCSV(w)
}

// WriteRatiosCSV writes the RatiosTable layout as CSV.
func WriteRatiosCSV(w io.Writer, r analytics.RatioReport) error {
	return RatiosTable(r).WriteCSV(w)
}

// WritePLTrendCSV writes the PLTrendTable layout as CSV.
func WritePLTrendCSV(w io.Writer, points []analytics.PLTrendPoint) error {
	return PLTrendTable(points).WriteCSV(w)
}

// WriteCashflowTrendCSV writes the CashflowTrendTable layout as CSV.
func WriteCashflowTrendCSV(w io.Writer, points []analytics.CashflowTrendPoint) error {
	return CashflowTrendTable(points).WriteCSV(w)
}
