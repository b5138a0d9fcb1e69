package providers

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	domainErrors "github.com/cassiomorais/billing/internal/domain/errors"
	"github.com/cassiomorais/billing/internal/domain/invoice"
)

// CustomerLookup resolves the customer an invoice is billed to.
type CustomerLookup interface {
	FetchCustomer(ctx context.Context, id int64) (*invoice.Customer, error)
}

// MockProvider simulates a payment provider. It declines or fails with a
// network error at configurable rates and, when given a CustomerLookup,
// rejects unknown customers and currency mismatches like a real provider.
type MockProvider struct {
	name             string
	declineRate      float64 // 0.0 to 1.0
	networkErrorRate float64 // 0.0 to 1.0
	latency          time.Duration
	customers        CustomerLookup
	random           func() float64
}

type MockProviderOption func(*MockProvider)

func WithDeclineRate(rate float64) MockProviderOption {
	return func(p *MockProvider) { p.declineRate = rate }
}

func WithNetworkErrorRate(rate float64) MockProviderOption {
	return func(p *MockProvider) { p.networkErrorRate = rate }
}

func WithLatency(d time.Duration) MockProviderOption {
	return func(p *MockProvider) { p.latency = d }
}

func WithCustomers(lookup CustomerLookup) MockProviderOption {
	return func(p *MockProvider) { p.customers = lookup }
}

// WithRandom replaces the random source. It must be safe for concurrent use.
func WithRandom(fn func() float64) MockProviderOption {
	return func(p *MockProvider) { p.random = fn }
}

func NewMockProvider(name string, opts ...MockProviderOption) *MockProvider {
	p := &MockProvider{
		name:    name,
		latency: 100 * time.Millisecond,
		random:  rand.Float64,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *MockProvider) Name() string { return p.name }

func (p *MockProvider) Charge(ctx context.Context, inv *invoice.Invoice) (bool, error) {
	if p.latency > 0 {
		select {
		case <-time.After(p.latency):
		case <-ctx.Done():
			return false, fmt.Errorf("%s: %w: %w", p.name, domainErrors.ErrNetwork, ctx.Err())
		}
	}

	if p.customers != nil {
		customer, err := p.customers.FetchCustomer(ctx, inv.CustomerID)
		if errors.Is(err, domainErrors.ErrCustomerNotFound) {
			return false, &domainErrors.CustomerNotFoundError{CustomerID: inv.CustomerID}
		}
		if err != nil {
			return false, fmt.Errorf("%s: customer lookup: %w: %w", p.name, domainErrors.ErrNetwork, err)
		}
		if customer.Currency != inv.Amount.Currency {
			return false, &domainErrors.CurrencyMismatchError{InvoiceID: inv.ID, CustomerID: inv.CustomerID}
		}
	}

	if p.random() < p.networkErrorRate {
		return false, fmt.Errorf("%s: simulated connection reset charging invoice %d: %w", p.name, inv.ID, domainErrors.ErrNetwork)
	}

	return p.random() >= p.declineRate, nil
}
