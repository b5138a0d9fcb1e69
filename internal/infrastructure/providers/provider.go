package providers

import (
	"context"

	"github.com/cassiomorais/billing/internal/domain/invoice"
)

// PaymentProvider is the interface that external payment providers implement.
type PaymentProvider interface {
	// Name returns the provider name.
	Name() string
	// Charge charges the invoice amount to the customer. It returns true when
	// the provider accepted the charge and false when it declined it. Errors
	// wrap ErrCurrencyMismatch, ErrCustomerNotFound or ErrNetwork when the
	// provider can tell them apart.
	Charge(ctx context.Context, inv *invoice.Invoice) (bool, error)
}
