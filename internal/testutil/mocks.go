package testutil

import (
	"context"
	"sort"
	"sync"

	domainErrors "github.com/cassiomorais/billing/internal/domain/errors"
	"github.com/cassiomorais/billing/internal/domain/invoice"
)

// --- Invoice Repository Mock ---

// StatusUpdate records one UpdateStatus call.
type StatusUpdate struct {
	ID     int64
	Status invoice.Status
}

// MockInvoiceRepository is an in-memory implementation of invoice.Repository.
// Stored invoices are copied on the way in and out so callers cannot mutate
// repository state behind its back.
type MockInvoiceRepository struct {
	mu       sync.Mutex
	invoices map[int64]*invoice.Invoice
	nextID   int64
	maxRetry int

	updates   []StatusUpdate
	retryable []int64

	FetchPendingInvoicesFunc func(ctx context.Context, currency invoice.Currency, limit int) ([]*invoice.Invoice, error)
	UpdateStatusFunc         func(ctx context.Context, id int64, status invoice.Status) (int64, error)
	MarkRetryableFunc        func(ctx context.Context, id int64) (int64, error)
	FetchInvoiceFunc         func(ctx context.Context, id int64) (*invoice.Invoice, error)
	FetchInvoicesFunc        func(ctx context.Context) ([]*invoice.Invoice, error)
	CreateInvoiceFunc        func(ctx context.Context, inv *invoice.Invoice) error
}

// NewMockInvoiceRepository creates a repository that, like the database one,
// stops selecting invoices once their retry count reaches 3.
func NewMockInvoiceRepository() *MockInvoiceRepository {
	return &MockInvoiceRepository{
		invoices: make(map[int64]*invoice.Invoice),
		maxRetry: 3,
	}
}

// SetMaxRetry changes the retry ceiling applied by FetchPendingInvoices.
func (m *MockInvoiceRepository) SetMaxRetry(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxRetry = n
}

// AddInvoices stores invoices as-is, keeping their IDs.
func (m *MockInvoiceRepository) AddInvoices(invs ...*invoice.Invoice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range invs {
		cp := *inv
		m.invoices[inv.ID] = &cp
		if inv.ID > m.nextID {
			m.nextID = inv.ID
		}
	}
}

// Invoice returns a copy of the stored invoice, or nil.
func (m *MockInvoiceRepository) Invoice(id int64) *invoice.Invoice {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return nil
	}
	cp := *inv
	return &cp
}

// StatusUpdates returns the UpdateStatus calls in the order they arrived.
func (m *MockInvoiceRepository) StatusUpdates() []StatusUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]StatusUpdate(nil), m.updates...)
}

// RetryableMarks returns the IDs passed to MarkRetryable.
func (m *MockInvoiceRepository) RetryableMarks() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.retryable...)
}

func (m *MockInvoiceRepository) FetchPendingInvoices(ctx context.Context, currency invoice.Currency, limit int) ([]*invoice.Invoice, error) {
	if m.FetchPendingInvoicesFunc != nil {
		return m.FetchPendingInvoicesFunc(ctx, currency, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int64, 0, len(m.invoices))
	for id := range m.invoices {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []*invoice.Invoice
	for _, id := range ids {
		inv := m.invoices[id]
		if inv.Status != invoice.StatusPending || inv.Amount.Currency != currency || inv.RetryCount >= m.maxRetry {
			continue
		}
		cp := *inv
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MockInvoiceRepository) UpdateStatus(ctx context.Context, id int64, status invoice.Status) (int64, error) {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, StatusUpdate{ID: id, Status: status})
	inv, ok := m.invoices[id]
	if !ok {
		return 0, nil
	}
	inv.Status = status
	return 1, nil
}

func (m *MockInvoiceRepository) MarkRetryable(ctx context.Context, id int64) (int64, error) {
	if m.MarkRetryableFunc != nil {
		return m.MarkRetryableFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retryable = append(m.retryable, id)
	inv, ok := m.invoices[id]
	if !ok {
		return 0, nil
	}
	inv.RetryCount++
	inv.Status = invoice.StatusPending
	return 1, nil
}

func (m *MockInvoiceRepository) FetchInvoice(ctx context.Context, id int64) (*invoice.Invoice, error) {
	if m.FetchInvoiceFunc != nil {
		return m.FetchInvoiceFunc(ctx, id)
	}
	if inv := m.Invoice(id); inv != nil {
		return inv, nil
	}
	return nil, domainErrors.ErrInvoiceNotFound
}

func (m *MockInvoiceRepository) FetchInvoices(ctx context.Context) ([]*invoice.Invoice, error) {
	if m.FetchInvoicesFunc != nil {
		return m.FetchInvoicesFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*invoice.Invoice, 0, len(m.invoices))
	for _, inv := range m.invoices {
		cp := *inv
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockInvoiceRepository) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	if m.CreateInvoiceFunc != nil {
		return m.CreateInvoiceFunc(ctx, inv)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	inv.ID = m.nextID
	cp := *inv
	m.invoices[inv.ID] = &cp
	return nil
}

// --- Customer Repository Mock ---

// MockCustomerRepository is an in-memory implementation of
// invoice.CustomerRepository.
type MockCustomerRepository struct {
	mu        sync.Mutex
	customers map[int64]*invoice.Customer
	nextID    int64

	FetchCustomerFunc  func(ctx context.Context, id int64) (*invoice.Customer, error)
	FetchCustomersFunc func(ctx context.Context) ([]*invoice.Customer, error)
	CreateCustomerFunc func(ctx context.Context, c *invoice.Customer) error
}

func NewMockCustomerRepository() *MockCustomerRepository {
	return &MockCustomerRepository{customers: make(map[int64]*invoice.Customer)}
}

func (m *MockCustomerRepository) AddCustomers(cs ...*invoice.Customer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range cs {
		cp := *c
		m.customers[c.ID] = &cp
		if c.ID > m.nextID {
			m.nextID = c.ID
		}
	}
}

func (m *MockCustomerRepository) FetchCustomer(ctx context.Context, id int64) (*invoice.Customer, error) {
	if m.FetchCustomerFunc != nil {
		return m.FetchCustomerFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return nil, &domainErrors.CustomerNotFoundError{CustomerID: id}
	}
	cp := *c
	return &cp, nil
}

func (m *MockCustomerRepository) FetchCustomers(ctx context.Context) ([]*invoice.Customer, error) {
	if m.FetchCustomersFunc != nil {
		return m.FetchCustomersFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*invoice.Customer, 0, len(m.customers))
	for _, c := range m.customers {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockCustomerRepository) CreateCustomer(ctx context.Context, c *invoice.Customer) error {
	if m.CreateCustomerFunc != nil {
		return m.CreateCustomerFunc(ctx, c)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c.ID = m.nextID
	cp := *c
	m.customers[c.ID] = &cp
	return nil
}

// --- Transaction Manager Mock ---

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	WithTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.WithTransactionFunc != nil {
		return m.WithTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

// --- Payment Provider Mock ---

// MockPaymentProvider is a scripted payment provider. ChargeFunc decides the
// result of each call; by default every charge succeeds.
type MockPaymentProvider struct {
	ProviderName string
	ChargeFunc   func(ctx context.Context, inv *invoice.Invoice) (bool, error)

	mu      sync.Mutex
	charged []int64
}

func NewMockPaymentProvider(name string) *MockPaymentProvider {
	return &MockPaymentProvider{ProviderName: name}
}

func (m *MockPaymentProvider) Name() string { return m.ProviderName }

func (m *MockPaymentProvider) Charge(ctx context.Context, inv *invoice.Invoice) (bool, error) {
	m.mu.Lock()
	m.charged = append(m.charged, inv.ID)
	m.mu.Unlock()
	if m.ChargeFunc != nil {
		return m.ChargeFunc(ctx, inv)
	}
	return true, nil
}

// Charged returns the invoice IDs passed to Charge, in call order.
func (m *MockPaymentProvider) Charged() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.charged...)
}
