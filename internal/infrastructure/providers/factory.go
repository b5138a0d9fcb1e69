package providers

import (
	"fmt"
	"time"

	domainErrors "github.com/cassiomorais/billing/internal/domain/errors"
	"github.com/cassiomorais/billing/internal/infrastructure/config"
	"github.com/cassiomorais/billing/internal/infrastructure/observability"
)

// Factory keeps one gateway per registered provider, so every currency
// billed through the same provider shares its circuit breaker.
type Factory struct {
	gateways map[string]*Gateway
	settings BreakerSettings
	timeout  time.Duration
	metrics  *observability.Metrics
}

func NewFactory(settings BreakerSettings, timeout time.Duration, metrics *observability.Metrics, providersList ...PaymentProvider) *Factory {
	f := &Factory{
		gateways: make(map[string]*Gateway),
		settings: settings,
		timeout:  timeout,
		metrics:  metrics,
	}
	for _, p := range providersList {
		f.Register(p)
	}
	return f
}

// NewFactoryFromConfig registers the provider selected in cfg.
func NewFactoryFromConfig(cfg config.ProviderConfig, customers CustomerLookup, metrics *observability.Metrics) *Factory {
	settings := BreakerSettings{
		Threshold: uint32(cfg.CircuitBreakerThreshold),
		Timeout:   cfg.CircuitBreakerTimeout,
	}

	var p PaymentProvider
	switch cfg.Name {
	case "stripe":
		var opts []StripeOption
		if cfg.StripeURL != "" {
			opts = append(opts, WithStripeBackend(cfg.StripeKey, cfg.StripeURL))
		}
		p = NewStripeProvider(cfg.StripeKey, opts...)
	default:
		p = NewMockProvider(cfg.Name,
			WithLatency(cfg.MockLatency),
			WithDeclineRate(cfg.MockDeclineRate),
			WithNetworkErrorRate(cfg.MockNetworkErrorRate),
			WithCustomers(customers),
		)
	}
	return NewFactory(settings, cfg.Timeout, metrics, p)
}

func (f *Factory) Register(p PaymentProvider) {
	f.gateways[p.Name()] = NewGateway(p, f.settings, f.timeout, f.metrics)
}

func (f *Factory) Get(name string) (*Gateway, error) {
	g, ok := f.gateways[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q: %w", name, domainErrors.ErrProviderNotFound)
	}
	return g, nil
}
