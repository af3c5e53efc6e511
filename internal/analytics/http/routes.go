package analytichttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/odyssey-ledger/internal/analytics"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
)

// MountRoutes registers report endpoints onto the router. perMinute limits
// the write endpoints per client IP; zero disables the limit.
func (h *Handler) MountRoutes(r chi.Router, perMinute int) {
	if h == nil {
		return
	}
	r.Route("/reports", func(r chi.Router) {
		r.Get("/balance-sheet", h.handleReport(analytics.ReportBalanceSheet))
		r.Get("/trial-balance", h.handleReport(analytics.ReportTrialBalance))
		r.Get("/profit-loss", h.handleReport(analytics.ReportProfitLoss))
		r.Get("/aging/receivables", h.handleReport(analytics.ReportAgedReceivables))
		r.Get("/aging/payables", h.handleReport(analytics.ReportAgedPayables))
		r.Get("/ratios", h.handleReport(analytics.ReportRatios))
		r.Get("/trend/profit-loss", h.handleReport(analytics.ReportPLTrend))
		r.Get("/trend/cashflow", h.handleReport(analytics.ReportCashflow))

		r.Group(func(gr chi.Router) {
			if perMinute > 0 {
				gr.Use(httprate.Limit(perMinute, time.Minute,
					httprate.WithKeyFuncs(httprate.KeyByIP),
					httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
						httpx.Problem(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests), "")
					}),
				))
			}
			gr.Post("/compute", h.handleCompute)
			gr.Post("/cache/bump", h.handleBump)
		})
	})
}
