package erp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/domain"
)

// Mock is the no-credentials ERP used outside production. Pushes are recorded
// in memory and PullVariants returns a small fixed catalog.
type Mock struct {
	mu        sync.Mutex
	orders    []string
	customers []Customer
}

// NewMock creates the mock ERP client.
func NewMock() *Mock {
	return &Mock{}
}

// PushOrder records the order and returns a deterministic ERP order id.
func (m *Mock) PushOrder(_ context.Context, order *domain.Order) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, order.OrderNumber)

	sum := sha256.Sum256([]byte(order.OrderNumber))
	return "ERP-" + hex.EncodeToString(sum[:4]), nil
}

// PushCustomer records the customer.
func (m *Mock) PushCustomer(_ context.Context, c Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers = append(m.customers, c)
	return nil
}

// PullVariants returns a fixed catalog snapshot.
func (m *Mock) PullVariants(_ context.Context) ([]domain.Variant, error) {
	return []domain.Variant{
		{ERPID: "ERP-1001", SKU: "HJB-SAT-RED", Name: "Satin Hijab Red", Price: 50000, WeightGrams: 200, Stock: 25, IsActive: true},
		{ERPID: "ERP-1002", SKU: "HJB-CHF-BLK", Name: "Chiffon Hijab Black", Price: 45000, WeightGrams: 150, Stock: 40, IsActive: true},
		{ERPID: "ERP-1003", SKU: "HJB-PSH-NVY", Name: "Pashmina Navy", Price: 65000, WeightGrams: 250, Stock: 0, IsActive: false},
	}, nil
}

// PushedOrders returns the order numbers recorded so far.
func (m *Mock) PushedOrders() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.orders...)
}

// PushedCustomers returns the customers recorded so far.
func (m *Mock) PushedCustomers() []Customer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Customer(nil), m.customers...)
}
