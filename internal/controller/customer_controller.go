package controller

import (
	"net/http"

	invoiceApp "github.com/cassiomorais/billing/internal/application/invoice"
)

type CustomerController struct {
	create *invoiceApp.CreateCustomerUseCase
	get    *invoiceApp.GetCustomerUseCase
	list   *invoiceApp.ListCustomersUseCase
}

func NewCustomerController(
	create *invoiceApp.CreateCustomerUseCase,
	get *invoiceApp.GetCustomerUseCase,
	list *invoiceApp.ListCustomersUseCase,
) *CustomerController {
	return &CustomerController{create: create, get: get, list: list}
}

func (h *CustomerController) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	c, err := h.create.Execute(r.Context(), req.Currency)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, FromCustomer(c))
}

func (h *CustomerController) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid customer id", Code: "invalid_id"})
		return
	}

	c, err := h.get.Execute(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromCustomer(c))
}

func (h *CustomerController) List(w http.ResponseWriter, r *http.Request) {
	customers, err := h.list.Execute(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromCustomers(customers))
}
