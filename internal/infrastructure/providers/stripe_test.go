package providers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	domainErrors "github.com/cassiomorais/billing/internal/domain/errors"
	"github.com/cassiomorais/billing/internal/domain/invoice"
	"github.com/cassiomorais/billing/internal/infrastructure/providers"
	"github.com/cassiomorais/billing/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStripeServer(t *testing.T, status int, body string, inspect func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inspect != nil {
			inspect(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestStripeProvider_Charge_Request(t *testing.T) {
	var (
		path, idempotencyKey string
		form                 map[string]string
	)
	srv := newStripeServer(t, http.StatusOK, `{"id":"pi_1","object":"payment_intent","status":"succeeded"}`,
		func(r *http.Request) {
			path = r.URL.Path
			idempotencyKey = r.Header.Get("Idempotency-Key")
			require.NoError(t, r.ParseForm())
			form = map[string]string{
				"amount":               r.PostForm.Get("amount"),
				"currency":             r.PostForm.Get("currency"),
				"customer":             r.PostForm.Get("customer"),
				"confirm":              r.PostForm.Get("confirm"),
				"metadata[invoice_id]": r.PostForm.Get("metadata[invoice_id]"),
			}
		})

	p := providers.NewStripeProvider("sk_test_123", providers.WithStripeBackend("sk_test_123", srv.URL))
	inv := testutil.NewTestInvoice(42, 7, "10.50", invoice.DKK)
	inv.RetryCount = 2

	ok, err := p.Charge(context.Background(), inv)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, "/v1/payment_intents", path)
	assert.Equal(t, "invoice-42-attempt-2", idempotencyKey)
	assert.Equal(t, map[string]string{
		"amount":               "1050",
		"currency":             "dkk",
		"customer":             "cus_7",
		"confirm":              "true",
		"metadata[invoice_id]": "42",
	}, form)
}

func TestStripeProvider_Charge_Responses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantOK  bool
		wantErr error
	}{
		{
			name:   "requires action is a decline",
			status: http.StatusOK,
			body:   `{"id":"pi_1","object":"payment_intent","status":"requires_payment_method"}`,
		},
		{
			name:   "card declined",
			status: http.StatusPaymentRequired,
			body:   `{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`,
		},
		{
			name:    "unknown customer",
			status:  http.StatusBadRequest,
			body:    `{"error":{"type":"invalid_request_error","code":"resource_missing","param":"customer","message":"No such customer"}}`,
			wantErr: domainErrors.ErrCustomerNotFound,
		},
		{
			name:    "currency rejected",
			status:  http.StatusBadRequest,
			body:    `{"error":{"type":"invalid_request_error","param":"currency","message":"Invalid currency"}}`,
			wantErr: domainErrors.ErrCurrencyMismatch,
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    `{"error":{"type":"api_error","message":"Something went wrong"}}`,
			wantErr: domainErrors.ErrNetwork,
		},
		{
			name:    "rate limited",
			status:  http.StatusTooManyRequests,
			body:    `{"error":{"type":"invalid_request_error","code":"rate_limit","message":"Too many requests"}}`,
			wantErr: domainErrors.ErrNetwork,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newStripeServer(t, tt.status, tt.body, nil)
			p := providers.NewStripeProvider("sk_test_123", providers.WithStripeBackend("sk_test_123", srv.URL))

			ok, err := p.Charge(context.Background(), testutil.NewTestInvoice(1, 1, "5.00", invoice.EUR))
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestStripeProvider_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := providers.NewStripeProvider("sk_test_123", providers.WithStripeBackend("sk_test_123", url))
	_, err := p.Charge(context.Background(), testutil.NewTestInvoice(1, 1, "5.00", invoice.EUR))
	assert.ErrorIs(t, err, domainErrors.ErrNetwork)
}
