// Package erp adapts the external ERP: order and customer push, stock pull.
// The ERP is the system of record for inventory and customer master data; the
// shop only mirrors it.
package erp

import (
	"context"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/domain"
)

// Customer is the customer master record pushed to the ERP.
type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Client is the ERP contract. Adapters are constructed from config and
// injected; credential rotation means constructing a new adapter.
type Client interface {
	// PushOrder sends a paid order to the ERP and returns the ERP order id.
	PushOrder(ctx context.Context, order *domain.Order) (string, error)

	// PushCustomer creates or updates a customer master record.
	PushCustomer(ctx context.Context, c Customer) error

	// PullVariants fetches the full variant stock snapshot.
	PullVariants(ctx context.Context) ([]domain.Variant, error)
}
