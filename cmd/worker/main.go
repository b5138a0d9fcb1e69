package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cassiomorais/billing/internal/bootstrap"
	"github.com/cassiomorais/billing/internal/infrastructure/postgres"
	"github.com/cassiomorais/billing/internal/scheduler"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	once := flag.Bool("once", false, "Run one billing tick per currency and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, "billing-worker", "billing_worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	sched, err := bootstrap.NewBillingScheduler(app.Config, bootstrap.BillingDeps{
		Store:     postgres.NewInvoiceRepository(app.Pool, app.Config.Billing.MaxRetry),
		Customers: postgres.NewCustomerRepository(app.Pool),
		Redis:     app.Redis,
		Logger:    app.Logger,
		Metrics:   app.Metrics,
	})
	if err != nil {
		app.Logger.Error().Err(err).Msg("Failed to build billing scheduler")
		return
	}

	if *once {
		runOnce(ctx, app.Logger, sched)
		return
	}

	if err := sched.Start(ctx); err != nil {
		app.Logger.Error().Err(err).Msg("Failed to start billing scheduler")
		return
	}
	app.Logger.Info().
		Strs("currencies", app.Config.Billing.Currencies).
		Ints("billing_days", app.Config.Billing.BillingDays).
		Dur("period", app.Config.Billing.TickPeriod).
		Str("run_guard", app.Config.Billing.RunGuard).
		Msg("Worker started")

	<-ctx.Done()
	app.Logger.Info().Msg("Shutting down worker...")
	sched.Stop()
	app.Logger.Info().Msg("Worker exited")
}

// runOnce ticks every currency concurrently, still honoring the billing
// days and the run guard.
func runOnce(ctx context.Context, logger zerolog.Logger, sched *scheduler.Scheduler) {
	g, gCtx := errgroup.WithContext(ctx)
	for _, currency := range sched.Currencies() {
		g.Go(func() error {
			result, err := sched.Tick(gCtx, currency)
			if err != nil {
				return err
			}
			logger.Info().Str("currency", currency.String()).Str("result", string(result)).Msg("Billing tick finished")
			return nil
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("Billing tick failed")
	}
}
