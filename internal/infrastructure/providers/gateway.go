package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cassiomorais/billing/internal/domain/billing"
	domainErrors "github.com/cassiomorais/billing/internal/domain/errors"
	"github.com/cassiomorais/billing/internal/domain/invoice"
	"github.com/cassiomorais/billing/internal/infrastructure/observability"
	"github.com/sony/gobreaker/v2"
)

// BreakerSettings tunes the circuit breaker placed in front of a provider.
type BreakerSettings struct {
	// Threshold is the number of consecutive transient failures that opens
	// the breaker.
	Threshold uint32
	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration
}

// Gateway is the boundary between the billing engine and a payment provider.
// It converts the provider's (bool, error) result into a billing.Outcome and
// shields the provider with a circuit breaker that only counts transient
// failures.
type Gateway struct {
	provider PaymentProvider
	breaker  *gobreaker.CircuitBreaker[bool]
	timeout  time.Duration
	metrics  *observability.Metrics
}

// NewGateway wraps provider. A zero timeout leaves the caller's context
// deadline in charge; metrics may be nil.
func NewGateway(provider PaymentProvider, settings BreakerSettings, timeout time.Duration, metrics *observability.Metrics) *Gateway {
	if settings.Threshold == 0 {
		settings.Threshold = 10
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 30 * time.Second
	}

	g := &Gateway{provider: provider, timeout: timeout, metrics: metrics}
	g.breaker = gobreaker.NewCircuitBreaker[bool](gobreaker.Settings{
		Name:        provider.Name(),
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.Threshold
		},
		IsSuccessful: func(err error) bool {
			// Declines and data errors are answers from a healthy provider.
			return err == nil || !isTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if g.metrics != nil {
				g.metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
	return g
}

// Name returns the wrapped provider's name.
func (g *Gateway) Name() string { return g.provider.Name() }

// State returns the circuit breaker state.
func (g *Gateway) State() gobreaker.State { return g.breaker.State() }

// Charge attempts one charge and classifies the result. It never returns an
// error; failures are carried in the Outcome.
func (g *Gateway) Charge(ctx context.Context, inv *invoice.Invoice) billing.Outcome {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	ok, err := g.breaker.Execute(func() (bool, error) {
		return g.provider.Charge(ctx, inv)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%s: %w: %w", g.provider.Name(), domainErrors.ErrProviderUnavailable, err)
	}
	return billing.Classify(ok, err)
}

func isTransient(err error) bool {
	return errors.Is(err, domainErrors.ErrNetwork) || errors.Is(err, context.DeadlineExceeded)
}
