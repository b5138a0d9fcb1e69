package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	billingApp "github.com/cassiomorais/billing/internal/application/billing"
	"github.com/redis/go-redis/v9"
)

const (
	BillingStream = "invoices:billing"

	defaultStreamMaxLen = 100_000
)

// BillingEvent is a billing transition as stored in the stream.
type BillingEvent struct {
	ID         string `json:"id"`
	RunID      string `json:"run_id"`
	InvoiceID  string `json:"invoice_id"`
	CustomerID string `json:"customer_id"`
	Currency   string `json:"currency"`
	Outcome    string `json:"outcome"`
	Status     string `json:"status"`
	RetryCount string `json:"retry_count"`
	Timestamp  string `json:"timestamp"`
}

// EventStream appends invoice transitions to a capped Redis stream.
type EventStream struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewEventStream(client *redis.Client) *EventStream {
	return &EventStream{client: client, stream: BillingStream, maxLen: defaultStreamMaxLen}
}

func (s *EventStream) PublishTransition(ctx context.Context, t billingApp.Transition) error {
	args := &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"run_id":      t.RunID,
			"invoice_id":  strconv.FormatInt(t.InvoiceID, 10),
			"customer_id": strconv.FormatInt(t.CustomerID, 10),
			"currency":    t.Currency.String(),
			"outcome":     t.Outcome.String(),
			"status":      string(t.Status),
			"retry_count": strconv.Itoa(t.RetryCount),
			"timestamp":   t.At.UTC().Format(time.RFC3339Nano),
		},
	}

	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to publish billing event: %w", err)
	}
	return nil
}

// Recent returns up to count events, newest first.
func (s *EventStream) Recent(ctx context.Context, count int64) ([]BillingEvent, error) {
	msgs, err := s.client.XRevRangeN(ctx, s.stream, "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read billing events: %w", err)
	}

	events := make([]BillingEvent, 0, len(msgs))
	for _, msg := range msgs {
		events = append(events, BillingEvent{
			ID:         msg.ID,
			RunID:      field(msg, "run_id"),
			InvoiceID:  field(msg, "invoice_id"),
			CustomerID: field(msg, "customer_id"),
			Currency:   field(msg, "currency"),
			Outcome:    field(msg, "outcome"),
			Status:     field(msg, "status"),
			RetryCount: field(msg, "retry_count"),
			Timestamp:  field(msg, "timestamp"),
		})
	}
	return events, nil
}

func field(msg redis.XMessage, key string) string {
	v, _ := msg.Values[key].(string)
	return v
}
