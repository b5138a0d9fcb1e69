package invoice

import (
	"context"

	"github.com/cassiomorais/billing/internal/domain/invoice"
)

// GetInvoiceUseCase retrieves an invoice by ID.
type GetInvoiceUseCase struct {
	invoiceRepo invoice.Repository
}

func NewGetInvoiceUseCase(invoiceRepo invoice.Repository) *GetInvoiceUseCase {
	return &GetInvoiceUseCase{invoiceRepo: invoiceRepo}
}

// Execute returns ErrInvoiceNotFound for unknown IDs.
func (uc *GetInvoiceUseCase) Execute(ctx context.Context, id int64) (*invoice.Invoice, error) {
	return uc.invoiceRepo.FetchInvoice(ctx, id)
}

// ListInvoicesUseCase lists every invoice.
type ListInvoicesUseCase struct {
	invoiceRepo invoice.Repository
}

func NewListInvoicesUseCase(invoiceRepo invoice.Repository) *ListInvoicesUseCase {
	return &ListInvoicesUseCase{invoiceRepo: invoiceRepo}
}

func (uc *ListInvoicesUseCase) Execute(ctx context.Context) ([]*invoice.Invoice, error) {
	return uc.invoiceRepo.FetchInvoices(ctx)
}
