// Package repository defines the persistence interfaces consumed by the
// service layer. PostgreSQL implementations live in the postgres subpackage,
// the Redis-backed shipping rate cache in the redis subpackage.
package repository

import (
	"context"
	"time"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/domain"
)

// OrderFilter defines typed filter criteria for the admin order listing.
type OrderFilter struct {
	UserID        *string
	Status        *string
	PaymentStatus *string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Page          int
	PerPage       int
}

// CreateOrderParams carries everything the order-creation transaction writes.
// Voucher is non-nil when a redemption must be recorded alongside the order.
type CreateOrderParams struct {
	Order   *domain.Order
	CartID  string
	Voucher *domain.Voucher
}

// ReconciliationUpdate is the unit of work a webhook applies: the order with
// its transition already performed in memory, the payment row to insert, and
// any outbox entries recorded in the same transaction.
type ReconciliationUpdate struct {
	Order      *domain.Order
	FromStatus string
	Payment    *domain.Payment
	Outbox     []*domain.OutboxEntry
}

// VariantRepository provides access to the stock ledger.
type VariantRepository interface {
	// GetByID retrieves a variant by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Variant, error)

	// GetByIDs retrieves multiple variants keyed by ID.
	GetByIDs(ctx context.Context, ids []string) (map[string]*domain.Variant, error)

	// UpsertFromERP applies an ERP stock snapshot, last write wins.
	// It returns how many rows were written.
	UpsertFromERP(ctx context.Context, variants []domain.Variant) (int, error)
}

// CartRepository persists cart aggregates. Reads always return the cart with
// its lines joined against the current variant rows.
type CartRepository interface {
	// GetByUserID loads the cart owned by a user.
	GetByUserID(ctx context.Context, userID string) (*domain.Cart, error)

	// GetBySessionID loads a guest cart by session key.
	GetBySessionID(ctx context.Context, sessionID string) (*domain.Cart, error)

	// Create inserts an empty cart.
	Create(ctx context.Context, cart *domain.Cart) error

	// UpsertItem adds quantity to an existing line or inserts a new one.
	UpsertItem(ctx context.Context, cartID, variantID string, quantity int) error

	// SetItemQuantity replaces the quantity of a line.
	SetItemQuantity(ctx context.Context, cartID, itemID string, quantity int) error

	// RemoveItem deletes a line.
	RemoveItem(ctx context.Context, cartID, itemID string) error

	// Clear removes all lines and any applied voucher.
	Clear(ctx context.Context, cartID string) error

	// SetVoucher applies or removes (nil) the cart voucher.
	SetVoucher(ctx context.Context, cartID string, voucherID *string) error

	// MergeGuestIntoUser sets the user cart's line quantities to lines
	// (variant id to final quantity) and deletes the guest cart in a single
	// transaction. Variants absent from lines keep their current row.
	MergeGuestIntoUser(ctx context.Context, guestCartID, userCartID string, lines map[string]int) error

	// Delete removes a cart and its lines.
	Delete(ctx context.Context, cartID string) error
}

// VoucherRepository provides voucher lookup and usage counting.
type VoucherRepository interface {
	// GetByCode retrieves a voucher by its code.
	GetByCode(ctx context.Context, code string) (*domain.Voucher, error)

	// GetByID retrieves a voucher by ID.
	GetByID(ctx context.Context, id string) (*domain.Voucher, error)

	// CountUsagesByUser returns how many times a user has redeemed a voucher.
	CountUsagesByUser(ctx context.Context, voucherID, userID string) (int, error)
}

// OrderRepository persists orders and owns the two stock-mutating
// transactions: creation (decrement) and cancellation (restore).
type OrderRepository interface {
	// CreateOrder runs the order-creation transaction: conditional stock
	// decrements, order + items + shipping inserts, voucher redemption, and
	// cart clearing. Any failure rolls back every step.
	CreateOrder(ctx context.Context, params CreateOrderParams) error

	// GetByNumber retrieves an order by its order number, including items
	// and shipping.
	GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error)

	// List returns orders matching the given filter along with the total count.
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error)

	// UpdateStatus persists an in-memory transition, guarded by the status
	// the transition started from; zero rows updated means a concurrent
	// writer won and ErrConflict is returned. When restoreStock is true the
	// order's lines are returned to the ledger in the same transaction; IDs
	// of variants that no longer exist are returned for the caller to log.
	UpdateStatus(ctx context.Context, order *domain.Order, fromStatus string, restoreStock bool) (missingVariants []string, err error)
}

// PaymentRepository persists payment attempts and applies webhook
// reconciliations.
type PaymentRepository interface {
	// Create inserts a payment row.
	Create(ctx context.Context, p *domain.Payment) error

	// GetSuccessByOrderID returns the success payment for an order, or
	// ErrNotFound. The partial unique index guarantees at most one.
	GetSuccessByOrderID(ctx context.Context, orderID string) (*domain.Payment, error)

	// ListByOrderID returns all payment attempts for an order.
	ListByOrderID(ctx context.Context, orderID string) ([]domain.Payment, error)

	// ApplyReconciliation runs the webhook transaction: guarded order status
	// update, payment insert, outbox inserts. Zero order rows updated (a
	// racing webhook won) returns ErrConflict and rolls back.
	ApplyReconciliation(ctx context.Context, upd ReconciliationUpdate) error
}

// OutboxRepository manages the ERP outbox drained by the sync worker.
type OutboxRepository interface {
	// Insert records a pending entry.
	Insert(ctx context.Context, e *domain.OutboxEntry) error

	// ClaimDue marks up to limit due pending entries as processing and
	// returns them. Concurrent workers never claim the same entry.
	ClaimDue(ctx context.Context, limit int) ([]domain.OutboxEntry, error)

	// MarkDone finalizes a delivered entry.
	MarkDone(ctx context.Context, id string) error

	// MarkFailed records a failed attempt and schedules the retry, parking
	// the entry as failed once attempts exceed the maximum.
	MarkFailed(ctx context.Context, id string, attempts int, lastError string, nextAttempt time.Time) error
}

// SyncLogRepository records ERP synchronization runs.
type SyncLogRepository interface {
	// Insert writes one run record.
	Insert(ctx context.Context, l *domain.SyncLog) error

	// List returns sync logs, newest first, with the total count.
	List(ctx context.Context, page, perPage int) ([]domain.SyncLog, int, error)
}

// AddressRepository provides stored shipping destinations.
type AddressRepository interface {
	// GetByID retrieves an address, scoped to its owning user.
	GetByID(ctx context.Context, id, userID string) (*domain.Address, error)
}

// RateCache caches courier rate quotes keyed by origin, destination city, and
// chargeable weight. The cache is never authoritative; a miss falls through
// to the provider.
type RateCache interface {
	// Get returns cached quotes and whether the key was present.
	Get(ctx context.Context, origin, city string, kg int) ([]domain.RateQuote, bool, error)

	// Set stores quotes under the key with the cache TTL.
	Set(ctx context.Context, origin, city string, kg int, quotes []domain.RateQuote) error
}
