package invoice

import (
	"context"

	"github.com/cassiomorais/billing/internal/domain/invoice"
	"github.com/shopspring/decimal"
)

// CreateInvoiceRequest holds the input for creating an invoice.
type CreateInvoiceRequest struct {
	CustomerID int64
	Amount     decimal.Decimal
	Currency   string
}

// CreateInvoiceUseCase creates pending invoices for existing customers.
type CreateInvoiceUseCase struct {
	invoiceRepo  invoice.Repository
	customerRepo invoice.CustomerRepository
	txManager    TransactionManager
}

func NewCreateInvoiceUseCase(
	invoiceRepo invoice.Repository,
	customerRepo invoice.CustomerRepository,
	txManager TransactionManager,
) *CreateInvoiceUseCase {
	return &CreateInvoiceUseCase{
		invoiceRepo:  invoiceRepo,
		customerRepo: customerRepo,
		txManager:    txManager,
	}
}

// Execute creates the invoice. The amount must be in the customer's
// currency.
func (uc *CreateInvoiceUseCase) Execute(ctx context.Context, req CreateInvoiceRequest) (*invoice.Invoice, error) {
	currency, err := invoice.ParseCurrency(req.Currency)
	if err != nil {
		return nil, err
	}
	amount, err := invoice.NewMoney(req.Amount, currency)
	if err != nil {
		return nil, err
	}

	var created *invoice.Invoice
	err = uc.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		customer, err := uc.customerRepo.FetchCustomer(txCtx, req.CustomerID)
		if err != nil {
			return err
		}
		inv, err := invoice.NewInvoice(customer, amount)
		if err != nil {
			return err
		}
		if err := uc.invoiceRepo.CreateInvoice(txCtx, inv); err != nil {
			return err
		}
		created = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
