// Package billing holds the decision logic that maps the outcome of a charge
// attempt onto the invoice state machine.
package billing

import (
	"context"
	"errors"

	domainErrors "github.com/cassiomorais/billing/internal/domain/errors"
	"github.com/cassiomorais/billing/internal/domain/invoice"
)

// OutcomeKind classifies a single charge attempt.
type OutcomeKind int

const (
	OutcomeUnclassified OutcomeKind = iota
	OutcomeSuccess
	OutcomeDeclined
	OutcomeCurrencyMismatch
	OutcomeCustomerNotFound
	OutcomeNetworkError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeDeclined:
		return "declined"
	case OutcomeCurrencyMismatch:
		return "currency_mismatch"
	case OutcomeCustomerNotFound:
		return "customer_not_found"
	case OutcomeNetworkError:
		return "network_error"
	default:
		return "unclassified"
	}
}

// Outcome is the result of a charge attempt. Err carries the provider error
// for non-success kinds and is only used for logging.
type Outcome struct {
	Kind OutcomeKind
	Err  error
}

// Succeeded builds a success outcome.
func Succeeded() Outcome { return Outcome{Kind: OutcomeSuccess} }

// Declined builds a business-decline outcome.
func Declined() Outcome { return Outcome{Kind: OutcomeDeclined} }

// Classify converts the provider contract (true on success, false on a
// business decline, or an error) into an Outcome.
func Classify(ok bool, err error) Outcome {
	if err == nil {
		if ok {
			return Succeeded()
		}
		return Declined()
	}

	switch {
	case errors.Is(err, domainErrors.ErrCurrencyMismatch):
		return Outcome{Kind: OutcomeCurrencyMismatch, Err: err}
	case errors.Is(err, domainErrors.ErrCustomerNotFound):
		return Outcome{Kind: OutcomeCustomerNotFound, Err: err}
	case errors.Is(err, domainErrors.ErrNetwork),
		errors.Is(err, domainErrors.ErrProviderUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return Outcome{Kind: OutcomeNetworkError, Err: err}
	default:
		return Outcome{Kind: OutcomeUnclassified, Err: err}
	}
}

// Decision is the state change the orchestrator commits for an invoice.
type Decision struct {
	Status     invoice.Status
	RetryDelta int
}

// Retryable reports whether the decision keeps the invoice eligible for the
// next billing run.
func (d Decision) Retryable() bool {
	return d.RetryDelta > 0
}

// Decide maps a charge outcome to the invoice's new status. Only network
// errors are retried; every other failure, including unknown ones, is
// terminal.
func Decide(o Outcome) Decision {
	switch o.Kind {
	case OutcomeSuccess:
		return Decision{Status: invoice.StatusPaid}
	case OutcomeNetworkError:
		return Decision{Status: invoice.StatusPending, RetryDelta: 1}
	case OutcomeDeclined, OutcomeCurrencyMismatch, OutcomeCustomerNotFound:
		return Decision{Status: invoice.StatusFailed}
	default:
		return Decision{Status: invoice.StatusFailed}
	}
}
