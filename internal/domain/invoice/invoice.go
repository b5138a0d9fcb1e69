package invoice

import (
	"fmt"
	"strings"

	"github.com/cassiomorais/billing/internal/domain/errors"
	"github.com/shopspring/decimal"
)

// Currency identifies a customer's billing currency and an invoice's
// monetary currency.
type Currency string

const (
	EUR Currency = "EUR"
	USD Currency = "USD"
	DKK Currency = "DKK"
	SEK Currency = "SEK"
	GBP Currency = "GBP"
)

var currencies = []Currency{EUR, USD, DKK, SEK, GBP}

// Currencies returns every supported currency in a stable order.
func Currencies() []Currency {
	out := make([]Currency, len(currencies))
	copy(out, currencies)
	return out
}

// ParseCurrency converts a currency code into a Currency.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%q: %w", s, errors.ErrInvalidCurrency)
	}
	return c, nil
}

// Valid reports whether c is one of the supported currencies.
func (c Currency) Valid() bool {
	for _, known := range currencies {
		if c == known {
			return true
		}
	}
	return false
}

func (c Currency) String() string { return string(c) }

// Status is the invoice state in the billing state machine.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusPaid    Status = "PAID"
	StatusFailed  Status = "FAILED"
)

// ParseStatus converts a stored status into a Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusPaid, StatusFailed:
		return st, nil
	default:
		return "", fmt.Errorf("%q: %w", s, errors.ErrInvalidStatus)
	}
}

// IsTerminal reports whether the billing engine will never select the
// status again.
func (s Status) IsTerminal() bool {
	return s == StatusPaid || s == StatusFailed
}

// Money is an amount in a currency. Value is never negative.
type Money struct {
	Value    decimal.Decimal
	Currency Currency
}

// NewMoney builds a validated Money.
func NewMoney(value decimal.Decimal, currency Currency) (Money, error) {
	m := Money{Value: value, Currency: currency}
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

// Validate rejects negative amounts and unsupported currencies.
func (m Money) Validate() error {
	if m.Value.IsNegative() {
		return errors.NewValidationError("amount", "must not be negative")
	}
	if !m.Currency.Valid() {
		return errors.NewValidationError("currency", "unsupported currency "+string(m.Currency))
	}
	return nil
}

// String returns a human-readable representation of the amount.
func (m Money) String() string {
	return m.Value.StringFixed(2) + " " + string(m.Currency)
}

// Customer owns invoices billed in its currency.
type Customer struct {
	ID       int64
	Currency Currency
}

// Invoice is a charge owed by a customer. It references the customer but
// does not own it.
type Invoice struct {
	ID         int64
	CustomerID int64
	Amount     Money
	Status     Status
	RetryCount int
}

// NewInvoice creates a pending invoice for customer.
func NewInvoice(customer *Customer, amount Money) (*Invoice, error) {
	if customer == nil {
		return nil, errors.ErrCustomerNotFound
	}
	if err := amount.Validate(); err != nil {
		return nil, err
	}
	if amount.Currency != customer.Currency {
		return nil, &errors.CurrencyMismatchError{CustomerID: customer.ID}
	}
	return &Invoice{
		CustomerID: customer.ID,
		Amount:     amount,
		Status:     StatusPending,
	}, nil
}

// IsChargeable reports whether a charge may be attempted. Only pending
// invoices are charged.
func (i *Invoice) IsChargeable() bool {
	return i.Status == StatusPending
}

// Currency is the currency whose billing run selects the invoice.
func (i *Invoice) Currency() Currency {
	return i.Amount.Currency
}
