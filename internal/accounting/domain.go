package accounting

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

// NormalBalance is the side on which an account's balance is presented as positive.
type NormalBalance string

const (
	NormalDebit  NormalBalance = "debit"
	NormalCredit NormalBalance = "credit"
)

// TransactionStatus enumerates ledger transaction lifecycle values.
type TransactionStatus string

const (
	TransactionDraft  TransactionStatus = "draft"
	TransactionPosted TransactionStatus = "posted"
	TransactionVoid   TransactionStatus = "void"
)

// TransactionType classifies the business event behind a transaction.
type TransactionType string

const (
	TransactionSale       TransactionType = "sale"
	TransactionExpense    TransactionType = "expense"
	TransactionReceipt    TransactionType = "receipt"
	TransactionAdjustment TransactionType = "adjustment"
	TransactionTransfer   TransactionType = "transfer"
)

// InvoiceStatus enumerates invoice statuses.
type InvoiceStatus string

const (
	InvoiceDraft      InvoiceStatus = "draft"
	InvoiceSent       InvoiceStatus = "sent"
	InvoicePaid       InvoiceStatus = "paid"
	InvoiceOverdue    InvoiceStatus = "overdue"
	InvoiceCancelled  InvoiceStatus = "cancelled"
	InvoiceWrittenOff InvoiceStatus = "written_off"
)

// ExpenseStatus enumerates expense statuses.
type ExpenseStatus string

const (
	ExpensePending   ExpenseStatus = "pending"
	ExpensePaid      ExpenseStatus = "paid"
	ExpenseCancelled ExpenseStatus = "cancelled"
)

// Account models a chart of accounts node.
type Account struct {
	Code          string        `json:"account_code" validate:"required"`
	Name          string        `json:"account_name"`
	Type          AccountType   `json:"account_type" validate:"required,oneof=asset liability equity revenue expense"`
	Subtype       string        `json:"account_subtype,omitempty"`
	NormalBalance NormalBalance `json:"normal_balance,omitempty" validate:"omitempty,oneof=debit credit"`
}

// Normal returns the declared normal balance, deriving it from the type when empty.
func (a Account) Normal() NormalBalance {
	if a.NormalBalance != "" {
		return a.NormalBalance
	}
	switch a.Type {
	case AccountTypeAsset, AccountTypeExpense:
		return NormalDebit
	default:
		return NormalCredit
	}
}

// JournalEntry is one debit or credit line of a transaction.
type JournalEntry struct {
	AccountCode  string          `json:"account_code" validate:"required"`
	DebitAmount  decimal.Decimal `json:"debit_amount" validate:"gte=0"`
	CreditAmount decimal.Decimal `json:"credit_amount" validate:"gte=0"`
	Description  string          `json:"description,omitempty"`
}

// Transaction groups journal entries recorded for a single business event.
type Transaction struct {
	ID              string            `json:"id"`
	Date            Date              `json:"transaction_date" validate:"required"`
	Description     string            `json:"description,omitempty"`
	ReferenceNumber string            `json:"reference_number,omitempty"`
	Status          TransactionStatus `json:"status"`
	Type            TransactionType   `json:"transaction_type,omitempty"`
	JournalEntries  []JournalEntry    `json:"journal_entries" validate:"dive"`
}

// IsPosted reports whether the transaction participates in balance math.
func (t Transaction) IsPosted() bool {
	return TransactionStatus(strings.ToLower(string(t.Status))) == TransactionPosted
}

// Imbalance returns debits minus credits across the transaction's entries.
func (t Transaction) Imbalance() decimal.Decimal {
	total := decimal.Zero
	for _, entry := range t.JournalEntries {
		total = total.Add(entry.DebitAmount).Sub(entry.CreditAmount)
	}
	return total
}

// Payment is an amount received against an invoice.
type Payment struct {
	Amount             decimal.Decimal `json:"amount"`
	BaseCurrencyAmount decimal.Decimal `json:"base_currency_amount"`
	PaidAt             Date            `json:"paid_at,omitempty"`
}

// Base returns the payment in base currency, preferring the converted amount.
func (p Payment) Base() decimal.Decimal {
	if !p.BaseCurrencyAmount.IsZero() {
		return p.BaseCurrencyAmount
	}
	return p.Amount
}

// Invoice is a customer invoice as returned by the entity store.
type Invoice struct {
	ID                string          `json:"id"`
	Number            string          `json:"invoice_number"`
	CustomerID        string          `json:"customer_id"`
	InvoiceDate       Date            `json:"invoice_date"`
	DueDate           Date            `json:"due_date"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	BalanceDue        decimal.Decimal `json:"balance_due"`
	Status            InvoiceStatus   `json:"status"`
	Currency          string          `json:"currency,omitempty"`
	ExchangeRate      decimal.Decimal `json:"exchange_rate"`
	BaseCurrencyTotal decimal.Decimal `json:"base_currency_total"`
	PaymentsReceived  []Payment       `json:"payments_received"`
}

// Paid sums the base-currency amounts of every recorded payment.
func (inv Invoice) Paid() decimal.Decimal {
	total := decimal.Zero
	for _, p := range inv.PaymentsReceived {
		total = total.Add(p.Base())
	}
	return total
}

// Customer is the counterparty of receivables.
type Customer struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Expense is a supplier cost as returned by the entity store.
type Expense struct {
	ID          string          `json:"id"`
	ExpenseDate Date            `json:"expense_date"`
	Amount      decimal.Decimal `json:"amount" validate:"gte=0"`
	VendorName  string          `json:"vendor_name"`
	Category    string          `json:"category,omitempty"`
	Status      ExpenseStatus   `json:"status"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
}

// Dataset is the set of collections the engine reads from the entity store.
type Dataset struct {
	Accounts     []Account     `json:"accounts" validate:"dive"`
	Transactions []Transaction `json:"transactions" validate:"dive"`
	Invoices     []Invoice     `json:"invoices"`
	Customers    []Customer    `json:"customers" validate:"dive"`
	Expenses     []Expense     `json:"expenses" validate:"dive"`
}

const dateLayout = "2006-01-02"

// Date is a calendar date that decodes from either YYYY-MM-DD or RFC 3339.
// The zero value means the date is missing.
type Date struct {
	time.Time
}

// NewDate builds a Date at midnight UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf wraps t.
func DateOf(t time.Time) Date {
	return Date{Time: t}
}

// ParseDate parses YYYY-MM-DD or RFC 3339 text.
func ParseDate(value string) (Date, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Date{}, nil
	}
	if t, err := time.Parse(dateLayout, value); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return Date{}, fmt.Errorf("accounting: invalid date %q", value)
	}
	return Date{Time: t}, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("accounting: date must be a string: %w", err)
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(dateLayout))
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}
