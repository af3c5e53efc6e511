package analytichttp

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/analytics"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
	_ "github.com/odyssey-erp/odyssey-ledger/testing"
)

var testNow = time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)

type stubRepo struct {
	ds  accounting.Dataset
	err error
}

func (s stubRepo) LoadDataset(context.Context) (accounting.Dataset, error) {
	return s.ds, s.err
}

func amount(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func testDataset() accounting.Dataset {
	entry := func(code, debit, credit string) accounting.JournalEntry {
		return accounting.JournalEntry{AccountCode: code, DebitAmount: amount(debit), CreditAmount: amount(credit)}
	}
	return accounting.Dataset{
		Accounts: []accounting.Account{
			{Code: "1000", Name: "Cash", Type: accounting.AccountTypeAsset},
			{Code: "1100", Name: "Accounts Receivable", Type: accounting.AccountTypeAsset},
			{Code: "3000", Name: "Owner Capital", Type: accounting.AccountTypeEquity},
			{Code: "4000", Name: "Sales", Type: accounting.AccountTypeRevenue},
			{Code: "6100", Name: "Rent", Type: accounting.AccountTypeExpense},
		},
		Transactions: []accounting.Transaction{
			{ID: "t1", Date: accounting.NewDate(2025, 1, 2), Status: accounting.TransactionPosted,
				JournalEntries: []accounting.JournalEntry{entry("1000", "50000", "0"), entry("4000", "0", "50000")}},
			{ID: "t2", Date: accounting.NewDate(2025, 1, 3), Status: accounting.TransactionPosted,
				JournalEntries: []accounting.JournalEntry{entry("6100", "10000", "0"), entry("1000", "0", "10000")}},
		},
		Invoices: []accounting.Invoice{{
			ID: "inv-1", CustomerID: "c1", InvoiceDate: accounting.NewDate(2025, 1, 2),
			DueDate: accounting.NewDate(2025, 1, 29), TotalAmount: amount("11600"), Status: accounting.InvoiceSent,
		}},
		Customers: []accounting.Customer{{ID: "c1", Name: "Acme"}},
	}
}

func newTestRouter(t *testing.T, repo analytics.Repository) http.Handler {
	t.Helper()
	svc := analytics.NewService(repo, nil, accounting.DefaultOptions(), nil)
	svc.WithNow(func() time.Time { return testNow })
	r := chi.NewRouter()
	NewHandler(nil, svc, time.Second).MountRoutes(r, 0)
	return r
}

func serve(t *testing.T, h http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestBalanceSheetEndpoint(t *testing.T) {
	router := newTestRouter(t, stubRepo{ds: testDataset()})
	rr := serve(t, router, http.MethodGet, "/reports/balance-sheet?as_of=2025-01-31", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var body struct {
		Kind string `json:"kind"`
		Data struct {
			TotalAssets  decimal.Decimal `json:"total_assets"`
			BalanceCheck bool            `json:"balance_check"`
		} `json:"data"`
		Warnings []json.RawMessage `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "balance_sheet", body.Kind)
	require.True(t, body.Data.TotalAssets.Equal(amount("40000")))
	require.True(t, body.Data.BalanceCheck)
	require.NotNil(t, body.Warnings)
}

func TestProfitLossEndpointRange(t *testing.T) {
	router := newTestRouter(t, stubRepo{ds: testDataset()})
	rr := serve(t, router, http.MethodGet, "/reports/profit-loss?from=2025-01-01&to=2025-01-31", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Data struct {
			NetProfit decimal.Decimal `json:"net_profit"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.True(t, body.Data.NetProfit.Equal(amount("1600")))
}

func TestAgingEndpointCSV(t *testing.T) {
	router := newTestRouter(t, stubRepo{ds: testDataset()})
	rr := serve(t, router, http.MethodGet, "/reports/aging/receivables?format=csv", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	require.Contains(t, rr.Header().Get("Content-Disposition"), "aged-receivables.csv")

	records, err := csv.NewReader(rr.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, "Acme", records[1][0])
}

func TestReportEndpointRejectsBadDate(t *testing.T) {
	router := newTestRouter(t, stubRepo{ds: testDataset()})
	rr := serve(t, router, http.MethodGet, "/reports/ratios?as_of=31/01/2025", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	require.Contains(t, problem.Detail, "as_of")
}

func TestReportEndpointMalformedStore(t *testing.T) {
	ds := testDataset()
	ds.Transactions[0].JournalEntries[0].AccountCode = ""
	router := newTestRouter(t, stubRepo{ds: ds})
	rr := serve(t, router, http.MethodGet, "/reports/trial-balance", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReportEndpointStoreFailure(t *testing.T) {
	router := newTestRouter(t, stubRepo{err: errors.New("connection refused")})
	rr := serve(t, router, http.MethodGet, "/reports/balance-sheet", nil)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.NotContains(t, rr.Body.String(), "connection refused")
}

func TestComputeEndpoint(t *testing.T) {
	router := newTestRouter(t, stubRepo{err: errors.New("store must not be read")})
	ds := testDataset()
	ds.Expenses = []accounting.Expense{{ID: "bad", Amount: amount("-5")}}
	payload, err := json.Marshal(map[string]interface{}{
		"dataset": ds,
		"reports": []string{"balance-sheet", "aged_payables", "profit_loss", "balance_sheet"},
		"period":  "this_year",
		"as_of":   "2025-03-15",
	})
	require.NoError(t, err)

	rr := serve(t, router, http.MethodPost, "/reports/compute", payload)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var pack analytics.ReportPack
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &pack))
	require.Len(t, pack.Results, 3)
	require.Equal(t, 1, pack.Failed)

	failed, ok := pack.Entry(analytics.ReportAgedPayables)
	require.True(t, ok)
	require.NotEmpty(t, failed.Error)

	pl, ok := pack.Entry(analytics.ReportProfitLoss)
	require.True(t, ok)
	require.Empty(t, pl.Error)
}

func TestComputeEndpointRejectsUnknownReport(t *testing.T) {
	router := newTestRouter(t, stubRepo{})
	body := []byte(`{"dataset":{},"reports":["cash_budget"]}`)
	rr := serve(t, router, http.MethodPost, "/reports/compute", body)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "cash_budget")
}

func TestComputeEndpointRejectsBadBody(t *testing.T) {
	router := newTestRouter(t, stubRepo{})
	for name, body := range map[string]string{
		"empty":     "",
		"not json":  "{",
		"bad date":  `{"dataset":{},"as_of":"yesterday"}`,
		"bad range": `{"dataset":{},"from":"2025-02-01","to":"2025-01-01"}`,
	} {
		rr := serve(t, router, http.MethodPost, "/reports/compute", []byte(body))
		require.Equal(t, http.StatusBadRequest, rr.Code, name)
	}
}

func TestCacheBumpEndpoint(t *testing.T) {
	router := newTestRouter(t, stubRepo{})
	rr := serve(t, router, http.MethodPost, "/reports/cache/bump", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, strings.Contains(rr.Body.String(), `"version":0`))
}
