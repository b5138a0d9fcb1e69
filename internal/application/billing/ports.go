package billing

import (
	"context"
	"time"

	domainBilling "github.com/cassiomorais/billing/internal/domain/billing"
	"github.com/cassiomorais/billing/internal/domain/invoice"
)

// InvoiceStore is the part of the invoice repository a billing run needs.
type InvoiceStore interface {
	FetchPendingInvoices(ctx context.Context, currency invoice.Currency, limit int) ([]*invoice.Invoice, error)
	UpdateStatus(ctx context.Context, id int64, status invoice.Status) (int64, error)
	MarkRetryable(ctx context.Context, id int64) (int64, error)
}

// Charger attempts one charge and reports the classified outcome.
type Charger interface {
	Charge(ctx context.Context, inv *invoice.Invoice) domainBilling.Outcome
}

// EventPublisher receives one event per committed invoice transition.
type EventPublisher interface {
	PublishTransition(ctx context.Context, t Transition) error
}

// Transition describes a committed state change of an invoice.
type Transition struct {
	RunID      string
	InvoiceID  int64
	CustomerID int64
	Currency   invoice.Currency
	Outcome    domainBilling.OutcomeKind
	Status     invoice.Status
	RetryCount int
	At         time.Time
}
