package testutil

import (
	"github.com/cassiomorais/billing/internal/domain/invoice"
	"github.com/shopspring/decimal"
)

func NewTestCustomer(id int64, currency invoice.Currency) *invoice.Customer {
	return &invoice.Customer{ID: id, Currency: currency}
}

func NewTestInvoice(id, customerID int64, amount string, currency invoice.Currency) *invoice.Invoice {
	return &invoice.Invoice{
		ID:         id,
		CustomerID: customerID,
		Amount:     invoice.Money{Value: decimal.RequireFromString(amount), Currency: currency},
		Status:     invoice.StatusPending,
		RetryCount: 0,
	}
}

// NewPendingInvoices returns n pending invoices with IDs starting at
// firstID, each billed to a customer with the same ID.
func NewPendingInvoices(firstID int64, n int, currency invoice.Currency) []*invoice.Invoice {
	out := make([]*invoice.Invoice, 0, n)
	for i := 0; i < n; i++ {
		id := firstID + int64(i)
		out = append(out, NewTestInvoice(id, id, "100.00", currency))
	}
	return out
}
