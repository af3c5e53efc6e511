package accounting

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

// Repository reads the ledger collections from the entity store. It never writes.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LoadDataset reads every collection inside one repeatable-read snapshot so
// the accounts, transactions and invoices agree with each other.
func (r *Repository) LoadDataset(ctx context.Context) (Dataset, error) {
	var ds Dataset
	if r == nil {
		return Dataset{}, db.ErrNoPool
	}
	err := db.WithSnapshot(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		if ds.Accounts, err = listAccounts(ctx, tx); err != nil {
			return fmt.Errorf("accounts: %w", err)
		}
		if ds.Transactions, err = listTransactions(ctx, tx); err != nil {
			return fmt.Errorf("transactions: %w", err)
		}
		if ds.Invoices, err = listInvoices(ctx, tx); err != nil {
			return fmt.Errorf("invoices: %w", err)
		}
		if ds.Customers, err = listCustomers(ctx, tx); err != nil {
			return fmt.Errorf("customers: %w", err)
		}
		if ds.Expenses, err = listExpenses(ctx, tx); err != nil {
			return fmt.Errorf("expenses: %w", err)
		}
		return nil
	})
	if err != nil {
		return Dataset{}, fmt.Errorf("accounting: load dataset: %w", err)
	}
	return ds, nil
}

func listAccounts(ctx context.Context, tx pgx.Tx) ([]Account, error) {
	rows, err := tx.Query(ctx, `SELECT account_code, account_name, account_type, COALESCE(account_subtype, ''), COALESCE(normal_balance, '')
FROM accounts ORDER BY account_code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.Code, &a.Name, &a.Type, &a.Subtype, &a.NormalBalance); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func listTransactions(ctx context.Context, tx pgx.Tx) ([]Transaction, error) {
	rows, err := tx.Query(ctx, `SELECT id::text, transaction_date, COALESCE(description, ''), COALESCE(reference_number, ''), status, COALESCE(transaction_type, '')
FROM transactions ORDER BY transaction_date, id`)
	if err != nil {
		return nil, err
	}
	var txns []Transaction
	index := make(map[string]int)
	for rows.Next() {
		var (
			t    Transaction
			date pgtype.Date
		)
		if err := rows.Scan(&t.ID, &date, &t.Description, &t.ReferenceNumber, &t.Status, &t.Type); err != nil {
			rows.Close()
			return nil, err
		}
		t.Date = fromPgDate(date)
		t.JournalEntries = []JournalEntry{}
		index[t.ID] = len(txns)
		txns = append(txns, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lines, err := tx.Query(ctx, `SELECT transaction_id::text, account_code, debit_amount::text, credit_amount::text, COALESCE(description, '')
FROM journal_entries ORDER BY transaction_id, id`)
	if err != nil {
		return nil, err
	}
	defer lines.Close()
	for lines.Next() {
		var (
			txnID, debit, credit string
			e                    JournalEntry
		)
		if err := lines.Scan(&txnID, &e.AccountCode, &debit, &credit, &e.Description); err != nil {
			return nil, err
		}
		if e.DebitAmount, err = decimal.NewFromString(debit); err != nil {
			return nil, err
		}
		if e.CreditAmount, err = decimal.NewFromString(credit); err != nil {
			return nil, err
		}
		i, ok := index[txnID]
		if !ok {
			continue
		}
		txns[i].JournalEntries = append(txns[i].JournalEntries, e)
	}
	return txns, lines.Err()
}

func listInvoices(ctx context.Context, tx pgx.Tx) ([]Invoice, error) {
	rows, err := tx.Query(ctx, `SELECT id::text, COALESCE(invoice_number, ''), COALESCE(customer_id::text, ''), invoice_date, due_date,
total_amount::text, COALESCE(balance_due, 0)::text, status, COALESCE(currency, ''), COALESCE(exchange_rate, 0)::text, COALESCE(base_currency_total, 0)::text
FROM invoices ORDER BY invoice_date, id`)
	if err != nil {
		return nil, err
	}
	var invoices []Invoice
	index := make(map[string]int)
	for rows.Next() {
		var (
			inv                             Invoice
			invoiceDate, dueDate            pgtype.Date
			total, balance, rate, baseTotal string
		)
		if err := rows.Scan(&inv.ID, &inv.Number, &inv.CustomerID, &invoiceDate, &dueDate,
			&total, &balance, &inv.Status, &inv.Currency, &rate, &baseTotal); err != nil {
			rows.Close()
			return nil, err
		}
		inv.InvoiceDate = fromPgDate(invoiceDate)
		inv.DueDate = fromPgDate(dueDate)
		if err := parseDecimals(
			decimalField{total, &inv.TotalAmount},
			decimalField{balance, &inv.BalanceDue},
			decimalField{rate, &inv.ExchangeRate},
			decimalField{baseTotal, &inv.BaseCurrencyTotal},
		); err != nil {
			rows.Close()
			return nil, err
		}
		index[inv.ID] = len(invoices)
		invoices = append(invoices, inv)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	payments, err := tx.Query(ctx, `SELECT invoice_id::text, amount::text, COALESCE(base_currency_amount, 0)::text, paid_at
FROM invoice_payments ORDER BY invoice_id, paid_at`)
	if err != nil {
		return nil, err
	}
	defer payments.Close()
	for payments.Next() {
		var (
			invoiceID, amount, base string
			paidAt                  pgtype.Date
			p                       Payment
		)
		if err := payments.Scan(&invoiceID, &amount, &base, &paidAt); err != nil {
			return nil, err
		}
		if err := parseDecimals(decimalField{amount, &p.Amount}, decimalField{base, &p.BaseCurrencyAmount}); err != nil {
			return nil, err
		}
		p.PaidAt = fromPgDate(paidAt)
		if i, ok := index[invoiceID]; ok {
			invoices[i].PaymentsReceived = append(invoices[i].PaymentsReceived, p)
		}
	}
	return invoices, payments.Err()
}

func listCustomers(ctx context.Context, tx pgx.Tx) ([]Customer, error) {
	rows, err := tx.Query(ctx, `SELECT id::text, name, COALESCE(email, '') FROM customers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Email); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func listExpenses(ctx context.Context, tx pgx.Tx) ([]Expense, error) {
	rows, err := tx.Query(ctx, `SELECT id::text, expense_date, amount::text, COALESCE(vendor_name, ''), COALESCE(category, ''), status, COALESCE(tax_amount, 0)::text
FROM expenses ORDER BY expense_date, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var expenses []Expense
	for rows.Next() {
		var (
			e           Expense
			date        pgtype.Date
			amount, tax string
		)
		if err := rows.Scan(&e.ID, &date, &amount, &e.VendorName, &e.Category, &e.Status, &tax); err != nil {
			return nil, err
		}
		e.ExpenseDate = fromPgDate(date)
		if err := parseDecimals(decimalField{amount, &e.Amount}, decimalField{tax, &e.TaxAmount}); err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func fromPgDate(d pgtype.Date) Date {
	if !d.Valid {
		return Date{}
	}
	return Date{Time: d.Time}
}

type decimalField struct {
	raw string
	dst *decimal.Decimal
}

// numeric columns are selected as text to keep full precision.
func parseDecimals(fields ...decimalField) error {
	for _, f := range fields {
		v, err := decimal.NewFromString(f.raw)
		if err != nil {
			return fmt.Errorf("parse numeric %q: %w", f.raw, err)
		}
		*f.dst = v
	}
	return nil
}
