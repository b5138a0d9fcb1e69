package controller

import (
	"github.com/cassiomorais/billing/internal/domain/invoice"
	redisStore "github.com/cassiomorais/billing/internal/infrastructure/redis"
)

// Amounts cross the API as decimal strings so no precision is lost in JSON.

// CreateInvoiceRequest holds the input for creating an invoice.
type CreateInvoiceRequest struct {
	CustomerID int64  `json:"customer_id" validate:"required,gt=0"`
	Amount     string `json:"amount" validate:"required,numeric"`
	Currency   string `json:"currency" validate:"required,len=3"`
}

// CreateCustomerRequest holds the input for registering a customer.
type CreateCustomerRequest struct {
	Currency string `json:"currency" validate:"required,len=3"`
}

type InvoiceResponse struct {
	ID         int64  `json:"id"`
	CustomerID int64  `json:"customer_id"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	Status     string `json:"status"`
	RetryCount int    `json:"retry_count"`
}

type CustomerResponse struct {
	ID       int64  `json:"id"`
	Currency string `json:"currency"`
}

type BillingEventsResponse struct {
	Events []redisStore.BillingEvent `json:"events"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func FromInvoice(inv *invoice.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:         inv.ID,
		CustomerID: inv.CustomerID,
		Amount:     inv.Amount.Value.StringFixed(2),
		Currency:   inv.Amount.Currency.String(),
		Status:     string(inv.Status),
		RetryCount: inv.RetryCount,
	}
}

func FromInvoices(invoices []*invoice.Invoice) []InvoiceResponse {
	out := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, FromInvoice(inv))
	}
	return out
}

func FromCustomer(c *invoice.Customer) CustomerResponse {
	return CustomerResponse{ID: c.ID, Currency: c.Currency.String()}
}

func FromCustomers(customers []*invoice.Customer) []CustomerResponse {
	out := make([]CustomerResponse, 0, len(customers))
	for _, c := range customers {
		out = append(out, FromCustomer(c))
	}
	return out
}
