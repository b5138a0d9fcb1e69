package controller

import (
	"net/http"
	"strings"

	invoiceApp "github.com/cassiomorais/billing/internal/application/invoice"
	domainErrors "github.com/cassiomorais/billing/internal/domain/errors"
	"github.com/cassiomorais/billing/internal/domain/invoice"
	"github.com/shopspring/decimal"
)

type InvoiceController struct {
	create *invoiceApp.CreateInvoiceUseCase
	get    *invoiceApp.GetInvoiceUseCase
	list   *invoiceApp.ListInvoicesUseCase
}

func NewInvoiceController(
	create *invoiceApp.CreateInvoiceUseCase,
	get *invoiceApp.GetInvoiceUseCase,
	list *invoiceApp.ListInvoicesUseCase,
) *InvoiceController {
	return &InvoiceController{create: create, get: get, list: list}
}

func (h *InvoiceController) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, domainErrors.NewValidationError("amount", "must be a decimal number"))
		return
	}

	inv, err := h.create.Execute(r.Context(), invoiceApp.CreateInvoiceRequest{
		CustomerID: req.CustomerID,
		Amount:     amount,
		Currency:   req.Currency,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, FromInvoice(inv))
}

func (h *InvoiceController) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid invoice id", Code: "invalid_id"})
		return
	}

	inv, err := h.get.Execute(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromInvoice(inv))
}

// List returns every invoice, optionally narrowed by the status and
// currency query parameters.
func (h *InvoiceController) List(w http.ResponseWriter, r *http.Request) {
	var (
		status   invoice.Status
		currency invoice.Currency
		err      error
	)
	if s := r.URL.Query().Get("status"); s != "" {
		if status, err = invoice.ParseStatus(strings.ToUpper(s)); err != nil {
			writeError(w, domainErrors.NewValidationError("status", "unknown invoice status"))
			return
		}
	}
	if c := r.URL.Query().Get("currency"); c != "" {
		if currency, err = invoice.ParseCurrency(c); err != nil {
			writeError(w, err)
			return
		}
	}

	invoices, err := h.list.Execute(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	filtered := invoices[:0:0]
	for _, inv := range invoices {
		if status != "" && inv.Status != status {
			continue
		}
		if currency != "" && inv.Currency() != currency {
			continue
		}
		filtered = append(filtered, inv)
	}

	writeJSON(w, http.StatusOK, FromInvoices(filtered))
}
