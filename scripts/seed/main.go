package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/analytics"
	"github.com/odyssey-erp/odyssey-ledger/internal/app"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

//go:embed schema.sql
var schemaSQL string

//go:embed demo.json
var demoDataset []byte

func main() {
	reset := flag.Bool("reset", false, "truncate the ledger tables before loading")
	flag.Parse()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	ctx := context.Background()

	raw := demoDataset
	source := "demo dataset"
	if path := flag.Arg(0); path != "" {
		if raw, err = os.ReadFile(path); err != nil {
			log.Fatalf("read dataset: %v", err)
		}
		source = path
	}
	var ds accounting.Dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		log.Fatalf("parse %s: %v", source, err)
	}
	if err := ds.Validate(); err != nil {
		log.Fatalf("validate %s: %v", source, err)
	}

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	fmt.Println("→ Seeding ledger from", source)
	if err := seedDataset(ctx, pool, ds, *reset); err != nil {
		log.Fatalf("seed ledger: %v", err)
	}
	fmt.Printf("  %d accounts, %d transactions, %d invoices, %d customers, %d expenses\n",
		len(ds.Accounts), len(ds.Transactions), len(ds.Invoices), len(ds.Customers), len(ds.Expenses))

	// Cached reports were built from the previous rows.
	if client, err := cache.New(ctx, cfg.RedisOptions()); err != nil {
		fmt.Println("! skipping cache bump:", err)
	} else {
		defer client.Close()
		version, err := analytics.NewCache(client, cfg.ReportCacheTTL).Bump(ctx)
		if err != nil {
			fmt.Println("! cache bump failed:", err)
		} else {
			fmt.Println("→ Report cache now at version", version)
		}
	}

	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
}

func seedDataset(ctx context.Context, pool *pgxpool.Pool, ds accounting.Dataset, reset bool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if reset {
		if _, err := tx.Exec(ctx, `TRUNCATE journal_entries, transactions, invoice_payments, invoices, customers, expenses, accounts`); err != nil {
			return fmt.Errorf("truncate: %w", err)
		}
	}

	batch := &pgx.Batch{}
	queueAccounts(batch, ds.Accounts)
	queueTransactions(batch, ds.Transactions)
	queueCustomers(batch, ds.Customers)
	queueInvoices(batch, ds.Invoices)
	queueExpenses(batch, ds.Expenses)

	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("batch statement %d: %w", i, err)
		}
	}
	if err := results.Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// =============================================================================
// CHART OF ACCOUNTS
// =============================================================================

func queueAccounts(batch *pgx.Batch, accounts []accounting.Account) {
	for _, a := range accounts {
		batch.Queue(`
			INSERT INTO accounts (account_code, account_name, account_type, account_subtype, normal_balance)
			VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))
			ON CONFLICT (account_code) DO UPDATE SET
				account_name = EXCLUDED.account_name,
				account_type = EXCLUDED.account_type,
				account_subtype = EXCLUDED.account_subtype,
				normal_balance = EXCLUDED.normal_balance`,
			a.Code, a.Name, string(a.Type), a.Subtype, string(a.NormalBalance))
	}
}

// =============================================================================
// JOURNAL
// =============================================================================

func queueTransactions(batch *pgx.Batch, txns []accounting.Transaction) {
	for _, t := range txns {
		batch.Queue(`
			INSERT INTO transactions (id, transaction_date, description, reference_number, status, transaction_type)
			VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
			ON CONFLICT (id) DO UPDATE SET
				transaction_date = EXCLUDED.transaction_date,
				description = EXCLUDED.description,
				reference_number = EXCLUDED.reference_number,
				status = EXCLUDED.status,
				transaction_type = EXCLUDED.transaction_type`,
			t.ID, dateArg(t.Date), t.Description, t.ReferenceNumber, string(t.Status), string(t.Type))
		// Lines are replaced wholesale so re-running a seed stays idempotent.
		batch.Queue(`DELETE FROM journal_entries WHERE transaction_id = $1`, t.ID)
		for _, e := range t.JournalEntries {
			batch.Queue(`
				INSERT INTO journal_entries (transaction_id, account_code, debit_amount, credit_amount, description)
				VALUES ($1, $2, $3::numeric, $4::numeric, $5)`,
				t.ID, e.AccountCode, e.DebitAmount.String(), e.CreditAmount.String(), e.Description)
		}
	}
}

// =============================================================================
// RECEIVABLES
// =============================================================================

func queueCustomers(batch *pgx.Batch, customers []accounting.Customer) {
	for _, c := range customers {
		batch.Queue(`
			INSERT INTO customers (id, name, email)
			VALUES ($1, $2, NULLIF($3, ''))
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email`,
			c.ID, c.Name, c.Email)
	}
}

func queueInvoices(batch *pgx.Batch, invoices []accounting.Invoice) {
	for _, inv := range invoices {
		batch.Queue(`
			INSERT INTO invoices (id, invoice_number, customer_id, invoice_date, due_date, total_amount,
				balance_due, status, currency, exchange_rate, base_currency_total)
			VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6::numeric, $7::numeric, $8, NULLIF($9, ''), $10::numeric, $11::numeric)
			ON CONFLICT (id) DO UPDATE SET
				invoice_number = EXCLUDED.invoice_number,
				customer_id = EXCLUDED.customer_id,
				invoice_date = EXCLUDED.invoice_date,
				due_date = EXCLUDED.due_date,
				total_amount = EXCLUDED.total_amount,
				balance_due = EXCLUDED.balance_due,
				status = EXCLUDED.status,
				currency = EXCLUDED.currency,
				exchange_rate = EXCLUDED.exchange_rate,
				base_currency_total = EXCLUDED.base_currency_total`,
			inv.ID, inv.Number, inv.CustomerID, dateArg(inv.InvoiceDate), dateArg(inv.DueDate),
			inv.TotalAmount.String(), inv.BalanceDue.String(), string(inv.Status), inv.Currency,
			inv.ExchangeRate.String(), inv.BaseCurrencyTotal.String())
		batch.Queue(`DELETE FROM invoice_payments WHERE invoice_id = $1`, inv.ID)
		for _, p := range inv.PaymentsReceived {
			batch.Queue(`
				INSERT INTO invoice_payments (invoice_id, amount, base_currency_amount, paid_at)
				VALUES ($1, $2::numeric, $3::numeric, $4)`,
				inv.ID, p.Amount.String(), p.BaseCurrencyAmount.String(), dateArg(p.PaidAt))
		}
	}
}

// =============================================================================
// PAYABLES
// =============================================================================

func queueExpenses(batch *pgx.Batch, expenses []accounting.Expense) {
	for _, e := range expenses {
		batch.Queue(`
			INSERT INTO expenses (id, expense_date, amount, vendor_name, category, status, tax_amount)
			VALUES ($1, $2, $3::numeric, $4, NULLIF($5, ''), $6, $7::numeric)
			ON CONFLICT (id) DO UPDATE SET
				expense_date = EXCLUDED.expense_date,
				amount = EXCLUDED.amount,
				vendor_name = EXCLUDED.vendor_name,
				category = EXCLUDED.category,
				status = EXCLUDED.status,
				tax_amount = EXCLUDED.tax_amount`,
			e.ID, dateArg(e.ExpenseDate), e.Amount.String(), e.VendorName, e.Category, string(e.Status), e.TaxAmount.String())
	}
}

// dateArg maps a missing date to NULL.
func dateArg(d accounting.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.Time
}
