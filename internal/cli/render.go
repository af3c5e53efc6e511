package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/analytics"
	"github.com/odyssey-erp/odyssey-ledger/internal/analytics/export"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#AF8700", Dark: "#FFD75F"})
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#008700", Dark: "#5FD75F"})
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"})
)

var printer = message.NewPrinter(language.English)

// renderResult writes one built report in the selected format. Warnings go
// to errw so stdout stays machine readable.
func renderResult(w, errw io.Writer, format string, result analytics.Result) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatCSV:
		if err := export.WriteResultCSV(w, result); err != nil {
			return err
		}
	default:
		t, err := export.ResultTable(result)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, titleStyle.Render(string(result.Kind))); err != nil {
			return err
		}
		if err := renderTable(w, t); err != nil {
			return err
		}
	}
	renderWarnings(errw, result.Warnings)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderTable(w io.Writer, t export.Table) error {
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(t.Header...).
		Rows(t.Rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row >= 0 && row < len(t.Rows) && col < len(t.Rows[row]) && isNumber(t.Rows[row][col]) {
				return numberStyle
			}
			return cellStyle
		})
	_, err := fmt.Fprintln(w, tbl.Render())
	return err
}

func isNumber(cell string) bool {
	if cell == "" {
		return false
	}
	_, err := decimal.NewFromString(cell)
	return err == nil
}

func renderWarnings(w io.Writer, warnings []shared.Warning) {
	if len(warnings) == 0 {
		return
	}
	_, _ = printer.Fprintf(w, "%s\n", warnStyle.Render(printer.Sprintf("%d warnings", len(warnings))))
	for _, warning := range warnings {
		_, _ = fmt.Fprintf(w, "  %s\n", warnStyle.Render(warning.String()))
	}
}

// formatMoney renders an amount with thousands separators.
func formatMoney(d decimal.Decimal) string {
	return printer.Sprintf("%.2f", d.InexactFloat64())
}

func status(ok bool) string {
	if ok {
		return okStyle.Render("ok")
	}
	return failStyle.Render("FAIL")
}
