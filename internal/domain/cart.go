package domain

import "time"

// GuestCartTTL is how long an anonymous (session-keyed) cart lives before it
// is considered expired.
const GuestCartTTL = 7 * 24 * time.Hour

// Cart is the shopping cart aggregate. Exactly one of UserID or SessionID is
// set: authenticated carts are keyed by user, guest carts by session.
type Cart struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id,omitempty"`
	SessionID string     `json:"session_id,omitempty"`
	Items     []CartItem `json:"items"`
	Voucher   *Voucher   `json:"voucher,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartItem is a cart line with a snapshot of the variant it references.
// Price, weight, and stock always reflect the current variant row, not the
// values at the time the item was added.
type CartItem struct {
	ID          string    `json:"id"`
	VariantID   string    `json:"variant_id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Price       int64     `json:"price"`
	WeightGrams int       `json:"weight_grams"`
	Stock       int       `json:"stock"`
	Quantity    int       `json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Subtotal is the line price times quantity.
func (i *CartItem) Subtotal() int64 {
	return i.Price * int64(i.Quantity)
}

// CartTotals holds the derived money fields of a cart. Totals are always
// recomputed from the lines, never stored.
type CartTotals struct {
	ItemCount      int   `json:"item_count"`
	Subtotal       int64 `json:"subtotal"`
	DiscountAmount int64 `json:"discount_amount"`
	Total          int64 `json:"total"`
}

// Totals computes the cart's derived totals. The invariant
// Total == Subtotal - DiscountAmount holds after every mutation, and the
// discount never exceeds the subtotal.
func (c *Cart) Totals() CartTotals {
	t := CartTotals{}
	for i := range c.Items {
		t.ItemCount += c.Items[i].Quantity
		t.Subtotal += c.Items[i].Subtotal()
	}
	if c.Voucher != nil {
		t.DiscountAmount = c.Voucher.DiscountFor(t.Subtotal)
	}
	t.Total = t.Subtotal - t.DiscountAmount
	return t
}

// TotalWeightGrams sums the chargeable weight of all lines, substituting the
// default weight for lines whose variant has none recorded.
func (c *Cart) TotalWeightGrams() int {
	total := 0
	for i := range c.Items {
		w := c.Items[i].WeightGrams
		if w <= 0 {
			w = DefaultItemWeightGrams
		}
		total += w * c.Items[i].Quantity
	}
	return total
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// IsExpired reports whether a guest cart has passed its expiry.
func (c *Cart) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// Item returns the cart line for the given variant, or nil.
func (c *Cart) Item(variantID string) *CartItem {
	for i := range c.Items {
		if c.Items[i].VariantID == variantID {
			return &c.Items[i]
		}
	}
	return nil
}
