package invoice

import (
	"context"

	"github.com/cassiomorais/billing/internal/domain/invoice"
)

// CreateCustomerUseCase registers a customer billed in one currency.
type CreateCustomerUseCase struct {
	customerRepo invoice.CustomerRepository
}

func NewCreateCustomerUseCase(customerRepo invoice.CustomerRepository) *CreateCustomerUseCase {
	return &CreateCustomerUseCase{customerRepo: customerRepo}
}

func (uc *CreateCustomerUseCase) Execute(ctx context.Context, currency string) (*invoice.Customer, error) {
	cur, err := invoice.ParseCurrency(currency)
	if err != nil {
		return nil, err
	}
	c := &invoice.Customer{Currency: cur}
	if err := uc.customerRepo.CreateCustomer(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

type GetCustomerUseCase struct {
	customerRepo invoice.CustomerRepository
}

func NewGetCustomerUseCase(customerRepo invoice.CustomerRepository) *GetCustomerUseCase {
	return &GetCustomerUseCase{customerRepo: customerRepo}
}

func (uc *GetCustomerUseCase) Execute(ctx context.Context, id int64) (*invoice.Customer, error) {
	return uc.customerRepo.FetchCustomer(ctx, id)
}

type ListCustomersUseCase struct {
	customerRepo invoice.CustomerRepository
}

func NewListCustomersUseCase(customerRepo invoice.CustomerRepository) *ListCustomersUseCase {
	return &ListCustomersUseCase{customerRepo: customerRepo}
}

func (uc *ListCustomersUseCase) Execute(ctx context.Context) ([]*invoice.Customer, error) {
	return uc.customerRepo.FetchCustomers(ctx)
}
