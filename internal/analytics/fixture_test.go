package analytics

import (
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	_ "github.com/odyssey-erp/odyssey-ledger/testing"
)

var fixtureNow = time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)

func line(code, debit, credit string) accounting.JournalEntry {
	return accounting.JournalEntry{AccountCode: code, DebitAmount: dec(debit), CreditAmount: dec(credit)}
}

func postedOn(id string, y int, m time.Month, d int, entries ...accounting.JournalEntry) accounting.Transaction {
	return accounting.Transaction{ID: id, Date: accounting.NewDate(y, m, d), Status: accounting.TransactionPosted, JournalEntries: entries}
}

// sampleDataset is a small trading business: a balanced book through
// February 2025 with one part-paid invoice and one open supplier bill.
func sampleDataset() accounting.Dataset {
	return accounting.Dataset{
		Accounts: []accounting.Account{
			{Code: "1000", Name: "Petty Cash", Type: accounting.AccountTypeAsset},
			{Code: "1001", Name: "Bank", Type: accounting.AccountTypeAsset},
			{Code: "1100", Name: "Accounts Receivable", Type: accounting.AccountTypeAsset},
			{Code: "1200", Name: "Inventory", Type: accounting.AccountTypeAsset},
			{Code: "2000", Name: "Accounts Payable", Type: accounting.AccountTypeLiability},
			{Code: "3000", Name: "Owner Capital", Type: accounting.AccountTypeEquity},
			{Code: "4000", Name: "Sales", Type: accounting.AccountTypeRevenue},
			{Code: "5000", Name: "Cost of Goods Sold", Type: accounting.AccountTypeExpense},
			{Code: "6100", Name: "Rent", Type: accounting.AccountTypeExpense},
		},
		Transactions: []accounting.Transaction{
			postedOn("capital", 2025, 1, 2, line("1001", "50000", "0"), line("3000", "0", "50000")),
			postedOn("stock", 2025, 1, 5, line("1200", "10000", "0"), line("2000", "0", "10000")),
			postedOn("sale", 2025, 1, 10, line("1100", "20000", "0"), line("4000", "0", "20000")),
			postedOn("cogs", 2025, 1, 10, line("5000", "8000", "0"), line("1200", "0", "8000")),
			postedOn("rent", 2025, 2, 1, line("6100", "3000", "0"), line("1001", "0", "3000")),
			postedOn("receipt", 2025, 2, 15, line("1001", "15000", "0"), line("1100", "0", "15000")),
			postedOn("float", 2025, 2, 20, line("1000", "1000", "0"), line("1001", "0", "1000")),
		},
		Invoices: []accounting.Invoice{
			{
				ID: "inv-1", Number: "INV-001", CustomerID: "c1",
				InvoiceDate: accounting.NewDate(2025, 1, 10), DueDate: accounting.NewDate(2025, 2, 9),
				TotalAmount: dec("20000"), Status: accounting.InvoiceSent,
				PaymentsReceived: []accounting.Payment{{Amount: dec("15000"), PaidAt: accounting.NewDate(2025, 2, 15)}},
			},
			{
				ID: "inv-2", Number: "INV-002", CustomerID: "c2",
				InvoiceDate: accounting.NewDate(2025, 2, 20), DueDate: accounting.NewDate(2025, 3, 20),
				TotalAmount: dec("4000"), Status: accounting.InvoiceDraft,
			},
		},
		Customers: []accounting.Customer{{ID: "c1", Name: "Acme"}, {ID: "c2", Name: "Globex"}},
		Expenses: []accounting.Expense{
			{ID: "e1", VendorName: "Landlord", ExpenseDate: accounting.NewDate(2025, 2, 1), Amount: dec("3000"), Status: accounting.ExpensePaid},
			{ID: "e2", VendorName: "Supplier", ExpenseDate: accounting.NewDate(2025, 1, 5), Amount: dec("10000"), Status: accounting.ExpensePending},
		},
	}
}
