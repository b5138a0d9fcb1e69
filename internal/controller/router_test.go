package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	invoiceApp "github.com/cassiomorais/billing/internal/application/invoice"
	"github.com/cassiomorais/billing/internal/domain/invoice"
	"github.com/cassiomorais/billing/internal/infrastructure/config"
	"github.com/cassiomorais/billing/internal/infrastructure/observability"
	"github.com/cassiomorais/billing/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, events EventReader) (http.Handler, *testutil.MockInvoiceRepository) {
	t.Helper()
	invoices := testutil.NewMockInvoiceRepository()
	customers := testutil.NewMockCustomerRepository()
	customers.AddCustomers(testutil.NewTestCustomer(1, invoice.EUR))
	reg := prometheus.NewRegistry()

	r := NewRouter(RouterDeps{
		DB:             okPinger(),
		Events:         events,
		CreateInvoice:  invoiceApp.NewCreateInvoiceUseCase(invoices, customers, testutil.NewMockTransactionManager()),
		GetInvoice:     invoiceApp.NewGetInvoiceUseCase(invoices),
		ListInvoices:   invoiceApp.NewListInvoicesUseCase(invoices),
		CreateCustomer: invoiceApp.NewCreateCustomerUseCase(customers),
		GetCustomer:    invoiceApp.NewGetCustomerUseCase(customers),
		ListCustomers:  invoiceApp.NewListCustomersUseCase(customers),
		Logger:         zerolog.Nop(),
		Metrics:        observability.NewMetrics("billing_test", reg),
		Gatherer:       reg,
		CORSConfig:     config.CORSConfig{AllowedOrigins: []string{"*"}},
	})
	return r, invoices
}

func TestRouter_InvoiceLifecycle(t *testing.T) {
	r, invoices := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/rest/v1/invoices",
		bytes.NewBufferString(`{"customer_id":1,"amount":"10.00","currency":"EUR"}`)))
	require.Equal(t, http.StatusCreated, w.Code)

	var created InvoiceResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	require.NotNil(t, invoices.Invoice(created.ID))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rest/v1/invoices/"+strconv.FormatInt(created.ID, 10), nil))
	require.Equal(t, http.StatusOK, w.Code)

	var fetched InvoiceResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&fetched))
	assert.Equal(t, created, fetched)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rest/v1/invoices/999", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_Routes(t *testing.T) {
	tests := []struct {
		name       string
		events     EventReader
		method     string
		path       string
		wantStatus int
	}{
		{"health", nil, http.MethodGet, "/health", http.StatusOK},
		{"liveness", nil, http.MethodGet, "/health/live", http.StatusOK},
		{"readiness", nil, http.MethodGet, "/health/ready", http.StatusOK},
		{"metrics", nil, http.MethodGet, "/metrics", http.StatusOK},
		{"customers", nil, http.MethodGet, "/rest/v1/customers", http.StatusOK},
		{"customer", nil, http.MethodGet, "/rest/v1/customers/1", http.StatusOK},
		{"invoices", nil, http.MethodGet, "/rest/v1/invoices", http.StatusOK},
		{"events disabled", nil, http.MethodGet, "/rest/v1/billing/events", http.StatusNotFound},
		{"events enabled", &stubEventReader{}, http.MethodGet, "/rest/v1/billing/events", http.StatusOK},
		{"method not allowed", nil, http.MethodDelete, "/rest/v1/invoices/1", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRouter(t, tt.events)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRouter_MetricsExposeRoutePattern(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/rest/v1/customers/1", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `route="/rest/v1/customers/{id}"`))
}
