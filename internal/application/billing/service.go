// Package billing runs the billing cycle for one currency: it fetches the
// pending invoices, charges them with bounded concurrency and commits the
// state each charge outcome maps to.
package billing

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	domainBilling "github.com/cassiomorais/billing/internal/domain/billing"
	domainErrors "github.com/cassiomorais/billing/internal/domain/errors"
	"github.com/cassiomorais/billing/internal/domain/invoice"
	"github.com/cassiomorais/billing/internal/infrastructure/observability"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBatchSize   = 100
	DefaultConcurrency = 5
)

// Config tunes a billing run.
type Config struct {
	// BatchSize caps the invoices fetched per run.
	BatchSize int
	// Concurrency caps the charges in flight at once.
	Concurrency int
}

func DefaultConfig() Config {
	return Config{
		BatchSize:   DefaultBatchSize,
		Concurrency: DefaultConcurrency,
	}
}

// RunReport summarizes one billing run.
type RunReport struct {
	RunID        string
	Currency     invoice.Currency
	Fetched      int
	Paid         int
	Failed       int
	Retried      int
	Skipped      int
	CommitErrors int
	Duration     time.Duration
}

type tally struct {
	paid, failed, retried, skipped, commitErrors atomic.Int64
}

// Service is the billing orchestrator.
type Service struct {
	store     InvoiceStore
	charger   Charger
	cfg       Config
	logger    zerolog.Logger
	metrics   *observability.Metrics
	tracer    trace.Tracer
	publisher EventPublisher
	now       func() time.Time
}

type Option func(*Service)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// WithPublisher sends committed transitions to p. Publish errors are logged
// and otherwise ignored.
func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

func NewService(store InvoiceStore, charger Charger, cfg Config, opts ...Option) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	s := &Service{
		store:   store,
		charger: charger,
		cfg:     cfg,
		logger:  zerolog.Nop(),
		tracer:  observability.Tracer(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run bills the pending invoices of one currency. Only a failure to fetch
// the batch is returned; per-invoice failures are absorbed into the invoice
// state and the logs.
func (s *Service) Run(ctx context.Context, currency invoice.Currency) error {
	_, err := s.RunWithReport(ctx, currency)
	return err
}

// RunWithReport is Run returning the run summary.
func (s *Service) RunWithReport(ctx context.Context, currency invoice.Currency) (RunReport, error) {
	start := s.now()
	report := RunReport{RunID: uuid.NewString(), Currency: currency}
	logger := s.logger.With().
		Str("run_id", report.RunID).
		Str("currency", currency.String()).
		Logger()

	ctx, span := s.tracer.Start(ctx, "billing.run", trace.WithAttributes(
		attribute.String("billing.currency", currency.String()),
		attribute.String("billing.run_id", report.RunID),
	))
	defer span.End()

	invoices, err := s.store.FetchPendingInvoices(ctx, currency, s.cfg.BatchSize)
	if err != nil {
		err = fmt.Errorf("fetch pending %s invoices: %w", currency, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		if s.metrics != nil {
			s.metrics.BillingRunsTotal.WithLabelValues(currency.String(), "error").Inc()
		}
		logger.Error().Err(err).Msg("Billing run aborted")
		return report, err
	}
	report.Fetched = len(invoices)
	logger.Info().Int("invoices", len(invoices)).Msg("Billing run started")

	var t tally
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Concurrency)
	for _, inv := range invoices {
		g.Go(func() error {
			s.process(ctx, logger, report.RunID, inv, &t)
			return nil
		})
	}
	_ = g.Wait()

	report.Paid = int(t.paid.Load())
	report.Failed = int(t.failed.Load())
	report.Retried = int(t.retried.Load())
	report.Skipped = int(t.skipped.Load())
	report.CommitErrors = int(t.commitErrors.Load())
	report.Duration = s.now().Sub(start)

	span.SetAttributes(
		attribute.Int("billing.fetched", report.Fetched),
		attribute.Int("billing.paid", report.Paid),
		attribute.Int("billing.failed", report.Failed),
		attribute.Int("billing.retried", report.Retried),
	)
	if s.metrics != nil {
		s.metrics.BillingRunsTotal.WithLabelValues(currency.String(), "completed").Inc()
		s.metrics.BillingRunDuration.WithLabelValues(currency.String()).Observe(report.Duration.Seconds())
	}

	logger.Info().
		Int("fetched", report.Fetched).
		Int("paid", report.Paid).
		Int("failed", report.Failed).
		Int("retried", report.Retried).
		Int("skipped", report.Skipped).
		Int("commit_errors", report.CommitErrors).
		Dur("duration", report.Duration).
		Msg("Billing run finished")

	return report, nil
}

func (s *Service) process(ctx context.Context, logger zerolog.Logger, runID string, inv *invoice.Invoice, t *tally) {
	logger = logger.With().Int64("invoice_id", inv.ID).Logger()
	defer func() {
		if r := recover(); r != nil {
			t.commitErrors.Add(1)
			logger.Error().Interface("panic", r).Msg("Invoice processing panicked")
		}
	}()

	// The batch may be stale by the time a slot frees up.
	if !inv.IsChargeable() {
		t.skipped.Add(1)
		logger.Warn().Str("status", string(inv.Status)).Msg("Skipping invoice that is not pending")
		return
	}

	outcome := s.charge(ctx, logger, inv)
	decision := domainBilling.Decide(outcome)

	if err := s.commit(ctx, inv, decision); err != nil {
		t.commitErrors.Add(1)
		if s.metrics != nil {
			s.metrics.InvoiceCommitErrors.WithLabelValues(inv.Currency().String()).Inc()
		}
		logger.Error().Err(err).
			Str("outcome", outcome.Kind.String()).
			Str("status", string(decision.Status)).
			Msg("Failed to commit invoice status")
		return
	}

	switch {
	case decision.Retryable():
		t.retried.Add(1)
	case decision.Status == invoice.StatusPaid:
		t.paid.Add(1)
	default:
		t.failed.Add(1)
	}
	if s.metrics != nil {
		s.metrics.InvoicesProcessed.WithLabelValues(inv.Currency().String(), outcome.Kind.String()).Inc()
	}

	var event *zerolog.Event
	if outcome.Err != nil {
		event = logger.Warn().Err(outcome.Err)
	} else {
		event = logger.Info()
	}
	event.Str("outcome", outcome.Kind.String()).
		Str("status", string(decision.Status)).
		Msg("Invoice charged")

	s.publish(ctx, logger, Transition{
		RunID:      runID,
		InvoiceID:  inv.ID,
		CustomerID: inv.CustomerID,
		Currency:   inv.Currency(),
		Outcome:    outcome.Kind,
		Status:     decision.Status,
		RetryCount: inv.RetryCount + decision.RetryDelta,
		At:         s.now(),
	})
}

// charge runs one charge attempt. A panicking charger yields an
// unclassified outcome so the invoice is still committed as FAILED.
func (s *Service) charge(ctx context.Context, logger zerolog.Logger, inv *invoice.Invoice) (outcome domainBilling.Outcome) {
	ctx, span := s.tracer.Start(ctx, "billing.charge", trace.WithAttributes(
		attribute.Int64("invoice.id", inv.ID),
		attribute.Int("invoice.retry_count", inv.RetryCount),
	))
	start := s.now()
	if s.metrics != nil {
		s.metrics.ChargesInFlight.Inc()
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("Charge panicked")
			outcome = domainBilling.Outcome{Kind: domainBilling.OutcomeUnclassified, Err: fmt.Errorf("charge panicked: %v", r)}
		}
		if s.metrics != nil {
			s.metrics.ChargesInFlight.Dec()
			s.metrics.ChargeDuration.WithLabelValues(inv.Currency().String()).Observe(s.now().Sub(start).Seconds())
		}
		span.SetAttributes(attribute.String("billing.outcome", outcome.Kind.String()))
		if outcome.Err != nil {
			span.RecordError(outcome.Err)
		}
		span.End()
	}()

	return s.charger.Charge(ctx, inv)
}

// commit writes the decision with exactly one store call. MarkRetryable is
// not idempotent, so a failed write is never replayed within a run.
func (s *Service) commit(ctx context.Context, inv *invoice.Invoice, d domainBilling.Decision) error {
	var (
		rows int64
		err  error
	)
	if d.Retryable() {
		rows, err = s.store.MarkRetryable(ctx, inv.ID)
	} else {
		rows, err = s.store.UpdateStatus(ctx, inv.ID, d.Status)
	}
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("no rows updated for invoice %d: %w", inv.ID, domainErrors.ErrInvoiceNotFound)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, logger zerolog.Logger, t Transition) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransition(ctx, t); err != nil {
		logger.Warn().Err(err).Msg("Failed to publish invoice transition")
	}
}
