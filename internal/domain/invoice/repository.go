package invoice

import (
	"context"
)

// Repository defines the interface for invoice persistence
type Repository interface {
	// FetchPendingInvoices returns up to limit PENDING invoices in currency
	// whose retry count is below the configured maximum.
	FetchPendingInvoices(ctx context.Context, currency Currency, limit int) ([]*Invoice, error)

	// UpdateStatus sets the status of an invoice and returns the affected row count.
	UpdateStatus(ctx context.Context, id int64, status Status) (int64, error)

	// MarkRetryable increments the retry count and resets the status to
	// PENDING in one statement.
	MarkRetryable(ctx context.Context, id int64) (int64, error)

	// FetchInvoice retrieves an invoice by ID
	FetchInvoice(ctx context.Context, id int64) (*Invoice, error)

	// FetchInvoices lists all invoices
	FetchInvoices(ctx context.Context) ([]*Invoice, error)

	// CreateInvoice inserts a new invoice and assigns its ID
	CreateInvoice(ctx context.Context, inv *Invoice) error
}

// CustomerRepository defines the interface for customer persistence
type CustomerRepository interface {
	FetchCustomer(ctx context.Context, id int64) (*Customer, error)
	FetchCustomers(ctx context.Context) ([]*Customer, error)
	CreateCustomer(ctx context.Context, c *Customer) error
}
