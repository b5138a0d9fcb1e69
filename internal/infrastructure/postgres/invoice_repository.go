package postgres

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/cassiomorais/billing/internal/domain/errors"
	"github.com/cassiomorais/billing/internal/domain/invoice"
	"github.com/jackc/pgx/v5"
)

const invoiceColumns = `id, customer_id, value, currency, status, retry_count`

// scanner is satisfied by pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// InvoiceRepository implements invoice.Repository using PostgreSQL.
type InvoiceRepository struct {
	conn     DBTX
	maxRetry int
}

// NewInvoiceRepository creates an InvoiceRepository over conn, normally a
// *pgxpool.Pool. Pending fetches skip invoices whose retry count has
// reached maxRetry.
func NewInvoiceRepository(conn DBTX, maxRetry int) *InvoiceRepository {
	return &InvoiceRepository{conn: conn, maxRetry: maxRetry}
}

func (r *InvoiceRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.conn)
}

func scanInvoice(s scanner) (*invoice.Invoice, error) {
	inv := &invoice.Invoice{}
	var (
		value, currency, status string
	)
	err := s.Scan(&inv.ID, &inv.CustomerID, &value, &currency, &status, &inv.RetryCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("scan invoice: %w", err)
	}

	amount, err := numericToDecimal(value)
	if err != nil {
		return nil, fmt.Errorf("parse invoice %d amount: %w", inv.ID, err)
	}
	if inv.Amount.Currency, err = invoice.ParseCurrency(currency); err != nil {
		return nil, fmt.Errorf("invoice %d: %w", inv.ID, err)
	}
	if inv.Status, err = invoice.ParseStatus(status); err != nil {
		return nil, fmt.Errorf("invoice %d: %w", inv.ID, err)
	}
	inv.Amount.Value = amount
	return inv, nil
}

func collectInvoices(rows pgx.Rows) ([]*invoice.Invoice, error) {
	defer rows.Close()

	var invoices []*invoice.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoices: %w", err)
	}
	return invoices, nil
}

// FetchPendingInvoices returns up to limit PENDING invoices in currency that
// still have retry budget, oldest first.
func (r *InvoiceRepository) FetchPendingInvoices(ctx context.Context, currency invoice.Currency, limit int) ([]*invoice.Invoice, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+invoiceColumns+`
		 FROM invoices
		 WHERE status = $1 AND currency = $2 AND retry_count < $3
		 ORDER BY id
		 LIMIT $4`,
		string(invoice.StatusPending), currency.String(), r.maxRetry, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query pending invoices: %w", err)
	}
	return collectInvoices(rows)
}

// UpdateStatus sets the status of an invoice.
func (r *InvoiceRepository) UpdateStatus(ctx context.Context, id int64, status invoice.Status) (int64, error) {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE invoices SET status = $1, updated_at = NOW() WHERE id = $2`,
		string(status), id,
	)
	if err != nil {
		return 0, fmt.Errorf("update invoice %d status: %w", id, err)
	}
	return tag.RowsAffected(), nil
}

// MarkRetryable bumps the retry count and resets the invoice to PENDING.
func (r *InvoiceRepository) MarkRetryable(ctx context.Context, id int64) (int64, error) {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE invoices SET retry_count = retry_count + 1, status = $1, updated_at = NOW() WHERE id = $2`,
		string(invoice.StatusPending), id,
	)
	if err != nil {
		return 0, fmt.Errorf("mark invoice %d retryable: %w", id, err)
	}
	return tag.RowsAffected(), nil
}

// FetchInvoice retrieves an invoice by ID.
func (r *InvoiceRepository) FetchInvoice(ctx context.Context, id int64) (*invoice.Invoice, error) {
	return scanInvoice(r.db(ctx).QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
}

// FetchInvoices lists all invoices.
func (r *InvoiceRepository) FetchInvoices(ctx context.Context) ([]*invoice.Invoice, error) {
	rows, err := r.db(ctx).Query(ctx, `SELECT `+invoiceColumns+` FROM invoices ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}
	return collectInvoices(rows)
}

// CreateInvoice inserts inv and sets its ID.
func (r *InvoiceRepository) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO invoices (customer_id, value, currency, status, retry_count)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		inv.CustomerID, decimalToNumeric(inv.Amount.Value), inv.Amount.Currency.String(), string(inv.Status), inv.RetryCount,
	).Scan(&inv.ID)
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}
