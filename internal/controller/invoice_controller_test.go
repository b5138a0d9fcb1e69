package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	invoiceApp "github.com/cassiomorais/billing/internal/application/invoice"
	"github.com/cassiomorais/billing/internal/domain/invoice"
	"github.com/cassiomorais/billing/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInvoiceController(invoices *testutil.MockInvoiceRepository, customers *testutil.MockCustomerRepository) *InvoiceController {
	return NewInvoiceController(
		invoiceApp.NewCreateInvoiceUseCase(invoices, customers, testutil.NewMockTransactionManager()),
		invoiceApp.NewGetInvoiceUseCase(invoices),
		invoiceApp.NewListInvoicesUseCase(invoices),
	)
}

func TestInvoiceController_Create(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"created", `{"customer_id":1,"amount":"125.50","currency":"eur"}`, http.StatusCreated, ""},
		{"unknown customer", `{"customer_id":9,"amount":"1","currency":"EUR"}`, http.StatusNotFound, "not_found"},
		{"currency mismatch", `{"customer_id":1,"amount":"1","currency":"USD"}`, http.StatusUnprocessableEntity, "currency_mismatch"},
		{"unsupported currency", `{"customer_id":1,"amount":"1","currency":"JPY"}`, http.StatusBadRequest, "invalid_currency"},
		{"negative amount", `{"customer_id":1,"amount":"-3","currency":"EUR"}`, http.StatusBadRequest, "validation_error"},
		{"amount not a number", `{"customer_id":1,"amount":"ten","currency":"EUR"}`, http.StatusBadRequest, "validation_error"},
		{"missing customer", `{"amount":"1","currency":"EUR"}`, http.StatusBadRequest, "validation_error"},
		{"bad json", `{"customer_id":`, http.StatusBadRequest, "validation_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			customers := testutil.NewMockCustomerRepository()
			customers.AddCustomers(testutil.NewTestCustomer(1, invoice.EUR))
			invoices := testutil.NewMockInvoiceRepository()
			h := newInvoiceController(invoices, customers)

			w := httptest.NewRecorder()
			h.Create(w, httptest.NewRequest(http.MethodPost, "/rest/v1/invoices", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				var resp ErrorResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
				assert.Equal(t, tt.wantCode, resp.Code)
				return
			}

			var resp InvoiceResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.NotZero(t, resp.ID)
			assert.Equal(t, int64(1), resp.CustomerID)
			assert.Equal(t, "125.50", resp.Amount)
			assert.Equal(t, "EUR", resp.Currency)
			assert.Equal(t, "PENDING", resp.Status)
			assert.Zero(t, resp.RetryCount)
			assert.NotNil(t, invoices.Invoice(resp.ID))
		})
	}
}

func TestInvoiceController_Get(t *testing.T) {
	invoices := testutil.NewMockInvoiceRepository()
	inv := testutil.NewTestInvoice(7, 1, "12", invoice.DKK)
	inv.RetryCount = 2
	invoices.AddInvoices(inv)
	h := newInvoiceController(invoices, testutil.NewMockCustomerRepository())

	tests := []struct {
		name       string
		id         string
		wantStatus int
	}{
		{"found", "7", http.StatusOK},
		{"not found", "8", http.StatusNotFound},
		{"invalid id", "x", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withURLParam(httptest.NewRequest(http.MethodGet, "/rest/v1/invoices/"+tt.id, nil), "id", tt.id)
			w := httptest.NewRecorder()
			h.Get(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				var resp InvoiceResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
				assert.Equal(t, int64(7), resp.ID)
				assert.Equal(t, "12.00", resp.Amount)
				assert.Equal(t, 2, resp.RetryCount)
			}
		})
	}
}

func TestInvoiceController_List(t *testing.T) {
	invoices := testutil.NewMockInvoiceRepository()
	invoices.AddInvoices(testutil.NewPendingInvoices(1, 3, invoice.EUR)...)
	invoices.AddInvoices(testutil.NewPendingInvoices(10, 2, invoice.USD)...)
	paid := testutil.NewTestInvoice(20, 1, "5", invoice.EUR)
	paid.Status = invoice.StatusPaid
	invoices.AddInvoices(paid)
	h := newInvoiceController(invoices, testutil.NewMockCustomerRepository())

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantIDs    []int64
	}{
		{"all", "", http.StatusOK, []int64{1, 2, 3, 10, 11, 20}},
		{"by currency", "?currency=usd", http.StatusOK, []int64{10, 11}},
		{"by status", "?status=paid", http.StatusOK, []int64{20}},
		{"by both", "?status=PENDING&currency=EUR", http.StatusOK, []int64{1, 2, 3}},
		{"no match", "?currency=GBP", http.StatusOK, []int64{}},
		{"bad status", "?status=LOST", http.StatusBadRequest, nil},
		{"bad currency", "?currency=XYZ", http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.List(w, httptest.NewRequest(http.MethodGet, "/rest/v1/invoices"+tt.query, nil))

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantIDs == nil {
				return
			}
			var resp []InvoiceResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			ids := make([]int64, 0, len(resp))
			for _, r := range resp {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestInvoiceController_List_RepositoryError(t *testing.T) {
	invoices := testutil.NewMockInvoiceRepository()
	invoices.FetchInvoicesFunc = func(context.Context) ([]*invoice.Invoice, error) {
		return nil, errors.New("connection refused")
	}
	h := newInvoiceController(invoices, testutil.NewMockCustomerRepository())

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/rest/v1/invoices", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}
