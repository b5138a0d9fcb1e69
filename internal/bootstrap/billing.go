package bootstrap

import (
	"fmt"

	billingApp "github.com/cassiomorais/billing/internal/application/billing"
	"github.com/cassiomorais/billing/internal/domain/invoice"
	"github.com/cassiomorais/billing/internal/infrastructure/config"
	"github.com/cassiomorais/billing/internal/infrastructure/observability"
	"github.com/cassiomorais/billing/internal/infrastructure/providers"
	infraRedis "github.com/cassiomorais/billing/internal/infrastructure/redis"
	"github.com/cassiomorais/billing/internal/scheduler"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// BillingDeps are the collaborators of the billing scheduler.
type BillingDeps struct {
	Store     billingApp.InvoiceStore
	Customers providers.CustomerLookup
	Redis     *redis.Client // optional; enables the event stream and the redis run guard
	Logger    zerolog.Logger
	Metrics   *observability.Metrics
}

// NewBillingScheduler wires one billing task per configured currency. All
// tasks share the provider gateway, and with it the circuit breaker. extra
// options are applied after the ones derived from cfg.
func NewBillingScheduler(cfg *config.Config, deps BillingDeps, extra ...scheduler.Option) (*scheduler.Scheduler, error) {
	gateway, err := providers.NewFactoryFromConfig(cfg.Provider, deps.Customers, deps.Metrics).Get(cfg.Provider.Name)
	if err != nil {
		return nil, err
	}

	opts := []billingApp.Option{
		billingApp.WithLogger(observability.ComponentLogger(deps.Logger, "billing")),
		billingApp.WithMetrics(deps.Metrics),
	}
	if deps.Redis != nil {
		opts = append(opts, billingApp.WithPublisher(infraRedis.NewEventStream(deps.Redis)))
	}

	service := billingApp.NewService(deps.Store, gateway, billingApp.Config{
		BatchSize:   cfg.Billing.BatchSize,
		Concurrency: cfg.Billing.Concurrency,
	}, opts...)

	tasks := make(map[invoice.Currency]scheduler.Runner, len(cfg.Billing.Currencies))
	for _, code := range cfg.Billing.Currencies {
		currency, err := invoice.ParseCurrency(code)
		if err != nil {
			return nil, fmt.Errorf("billing.currencies: %w", err)
		}
		tasks[currency] = service
	}

	schedOpts := []scheduler.Option{
		scheduler.WithPeriod(cfg.Billing.TickPeriod),
		scheduler.WithMaxJitter(cfg.Billing.MaxJitter),
		scheduler.WithBillingDays(cfg.Billing.BillingDays...),
		scheduler.WithLocation(cfg.Billing.Location()),
		scheduler.WithRunTimeout(cfg.Billing.RunTimeout),
		scheduler.WithLogger(observability.ComponentLogger(deps.Logger, "scheduler")),
		scheduler.WithMetrics(deps.Metrics),
	}
	if cfg.Billing.RunGuard == "redis" {
		if deps.Redis == nil {
			return nil, fmt.Errorf("billing.run_guard redis requires a redis client")
		}
		schedOpts = append(schedOpts, scheduler.WithRunGuard(infraRedis.NewRunGuard(deps.Redis, cfg.Billing.LockTTL)))
	}

	return scheduler.New(tasks, append(schedOpts, extra...)...), nil
}
