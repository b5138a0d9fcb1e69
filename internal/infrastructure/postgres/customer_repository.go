package postgres

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/cassiomorais/billing/internal/domain/errors"
	"github.com/cassiomorais/billing/internal/domain/invoice"
	"github.com/jackc/pgx/v5"
)

// CustomerRepository implements invoice.CustomerRepository using PostgreSQL.
type CustomerRepository struct {
	conn DBTX
}

func NewCustomerRepository(conn DBTX) *CustomerRepository {
	return &CustomerRepository{conn: conn}
}

func (r *CustomerRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.conn)
}

func scanCustomer(s scanner) (*invoice.Customer, error) {
	c := &invoice.Customer{}
	var currency string
	if err := s.Scan(&c.ID, &currency); err != nil {
		return nil, err
	}
	cur, err := invoice.ParseCurrency(currency)
	if err != nil {
		return nil, fmt.Errorf("customer %d: %w", c.ID, err)
	}
	c.Currency = cur
	return c, nil
}

func (r *CustomerRepository) FetchCustomer(ctx context.Context, id int64) (*invoice.Customer, error) {
	c, err := scanCustomer(r.db(ctx).QueryRow(ctx,
		`SELECT id, currency FROM customers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &domainErrors.CustomerNotFoundError{CustomerID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("fetch customer %d: %w", id, err)
	}
	return c, nil
}

func (r *CustomerRepository) FetchCustomers(ctx context.Context) ([]*invoice.Customer, error) {
	rows, err := r.db(ctx).Query(ctx, `SELECT id, currency FROM customers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	var customers []*invoice.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}
	return customers, nil
}

func (r *CustomerRepository) CreateCustomer(ctx context.Context, c *invoice.Customer) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO customers (currency) VALUES ($1) RETURNING id`,
		c.Currency.String(),
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}
