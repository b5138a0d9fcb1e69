package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	domainErrors "github.com/cassiomorais/billing/internal/domain/errors"
	"github.com/cassiomorais/billing/internal/domain/invoice"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeProvider charges invoices as confirmed off-session PaymentIntents.
type StripeProvider struct {
	api         *client.API
	customerRef func(customerID int64) string
}

type StripeOption func(*StripeProvider)

// WithCustomerRef maps an internal customer ID to a Stripe customer ID.
func WithCustomerRef(fn func(customerID int64) string) StripeOption {
	return func(p *StripeProvider) { p.customerRef = fn }
}

// WithStripeBackend points the client at a different API host, used for
// stripe-mock and tests.
func WithStripeBackend(key, url string) StripeOption {
	return func(p *StripeProvider) {
		backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL:               stripe.String(url),
			MaxNetworkRetries: stripe.Int64(0),
			LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
		})
		api := &client.API{}
		api.Init(key, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
		p.api = api
	}
}

func NewStripeProvider(key string, opts ...StripeOption) *StripeProvider {
	p := &StripeProvider{
		api: client.New(key, nil),
		customerRef: func(id int64) string {
			return "cus_" + strconv.FormatInt(id, 10)
		},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *StripeProvider) Name() string { return "stripe" }

func (p *StripeProvider) Charge(ctx context.Context, inv *invoice.Invoice) (bool, error) {
	params := &stripe.PaymentIntentParams{
		Amount:     stripe.Int64(minorUnits(inv.Amount)),
		Currency:   stripe.String(strings.ToLower(string(inv.Amount.Currency))),
		Customer:   stripe.String(p.customerRef(inv.CustomerID)),
		Confirm:    stripe.Bool(true),
		OffSession: stripe.Bool(true),
	}
	params.Context = ctx
	// One key per retry generation: a repeated attempt after a lost status
	// update replays the original charge instead of creating a second one.
	params.SetIdempotencyKey(fmt.Sprintf("invoice-%d-attempt-%d", inv.ID, inv.RetryCount))
	params.AddMetadata("invoice_id", strconv.FormatInt(inv.ID, 10))

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return p.classifyError(inv, err)
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusProcessing:
		return true, nil
	default:
		return false, nil
	}
}

func (p *StripeProvider) classifyError(inv *invoice.Invoice, err error) (bool, error) {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false, fmt.Errorf("stripe: %w: %w", domainErrors.ErrNetwork, err)
	}

	switch {
	case stripeErr.Type == stripe.ErrorTypeCard:
		// Declines are a final answer from the provider, not an error.
		return false, nil
	case stripeErr.Code == stripe.ErrorCodeResourceMissing && stripeErr.Param == "customer":
		return false, fmt.Errorf("stripe: %w", &domainErrors.CustomerNotFoundError{CustomerID: inv.CustomerID})
	case stripeErr.Param == "currency":
		return false, fmt.Errorf("stripe: %w", &domainErrors.CurrencyMismatchError{InvoiceID: inv.ID, CustomerID: inv.CustomerID})
	case stripeErr.Type == stripe.ErrorTypeAPI,
		stripeErr.HTTPStatusCode == http.StatusTooManyRequests,
		stripeErr.HTTPStatusCode >= http.StatusInternalServerError:
		return false, fmt.Errorf("stripe: %w: %w", domainErrors.ErrNetwork, stripeErr)
	default:
		return false, fmt.Errorf("stripe: %w", stripeErr)
	}
}

// minorUnits converts an amount to the smallest currency unit. All supported
// currencies use two decimal places.
func minorUnits(m invoice.Money) int64 {
	return m.Value.Shift(2).Round(0).IntPart()
}
