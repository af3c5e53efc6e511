package analytics

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// inventoryPrefix approximates inventory as any current asset coded 12xx.
const inventoryPrefix = "12"

var hundred = decimal.NewFromInt(100)

// Ratios contains the key finance indicators surfaced on the dashboard.
// Margins are percentages. Every ratio is 0 when its denominator is 0.
type Ratios struct {
	CurrentRatio      float64         `json:"current_ratio"`
	QuickRatio        float64         `json:"quick_ratio"`
	DebtToEquity      float64         `json:"debt_to_equity"`
	DebtRatio         float64         `json:"debt_ratio"`
	GrossProfitMargin float64         `json:"gross_profit_margin"`
	OperatingMargin   float64         `json:"operating_margin"`
	NetProfitMargin   float64         `json:"net_profit_margin"`
	WorkingCapital    decimal.Decimal `json:"working_capital"`
	Inventory         decimal.Decimal `json:"inventory"`
}

// ComputeRatios derives liquidity, leverage and margin ratios from an
// already built balance sheet and P&L.
func ComputeRatios(bs reports.BalanceSheet, pl reports.ProfitAndLoss) Ratios {
	inventory := decimal.Zero
	for _, line := range bs.CurrentAssets.Lines {
		if strings.HasPrefix(line.Code, inventoryPrefix) {
			inventory = inventory.Add(line.Amount)
		}
	}
	currentAssets := bs.CurrentAssets.Total
	currentLiabilities := bs.CurrentLiabilities.Total
	revenue := pl.Revenue.Total

	return Ratios{
		CurrentRatio:      ratio(currentAssets, currentLiabilities),
		QuickRatio:        ratio(currentAssets.Sub(inventory), currentLiabilities),
		DebtToEquity:      ratio(bs.TotalLiabilities, bs.TotalEquity),
		DebtRatio:         ratio(bs.TotalLiabilities, bs.TotalAssets),
		GrossProfitMargin: percent(pl.GrossProfit, revenue),
		OperatingMargin:   percent(pl.OperatingProfit, revenue),
		NetProfitMargin:   percent(pl.NetProfit, revenue),
		WorkingCapital:    currentAssets.Sub(currentLiabilities),
		Inventory:         inventory,
	}
}

func ratio(n, d decimal.Decimal) float64 {
	return shared.SafeDiv(n, d).Round(4).InexactFloat64()
}

func percent(n, d decimal.Decimal) float64 {
	return shared.SafeDiv(n.Mul(hundred), d).Round(2).InexactFloat64()
}
