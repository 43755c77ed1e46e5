package domain

import "time"

// Voucher discount types.
const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

// Voucher reasons returned by Validate when a voucher cannot be applied.
const (
	VoucherReasonInactive     = "voucher is not active"
	VoucherReasonNotStarted   = "voucher is not valid yet"
	VoucherReasonExpired      = "voucher has expired"
	VoucherReasonMinPurchase  = "cart subtotal is below the voucher minimum purchase"
	VoucherReasonUsageLimit   = "voucher usage limit has been reached"
	VoucherReasonPerUserLimit = "voucher usage limit for this user has been reached"
)

// Voucher is a discount coupon. DiscountValue is a percentage (0-100) for
// percentage vouchers and a fixed minor-unit amount otherwise. Redemption
// (usage_count increment + usage row) happens only at order creation.
type Voucher struct {
	ID            string    `json:"id"`
	Code          string    `json:"code"`
	Description   string    `json:"description"`
	DiscountType  string    `json:"discount_type"`
	DiscountValue int64     `json:"discount_value"`
	MaxDiscount   *int64    `json:"max_discount,omitempty"`
	MinPurchase   int64     `json:"min_purchase"`
	ValidFrom     time.Time `json:"valid_from"`
	ValidUntil    time.Time `json:"valid_until"`
	UsageLimit    *int      `json:"usage_limit,omitempty"`
	UsageCount    int       `json:"usage_count"`
	PerUserLimit  *int      `json:"per_user_limit,omitempty"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Validate checks whether the voucher can be applied to a cart with the given
// subtotal at the given time. userUsageCount is how many times this user has
// already redeemed the voucher. It returns a human-readable reason when the
// voucher is not applicable.
func (v *Voucher) Validate(subtotal int64, userUsageCount int, now time.Time) (bool, string) {
	if !v.IsActive {
		return false, VoucherReasonInactive
	}
	if now.Before(v.ValidFrom) {
		return false, VoucherReasonNotStarted
	}
	if now.After(v.ValidUntil) {
		return false, VoucherReasonExpired
	}
	if subtotal < v.MinPurchase {
		return false, VoucherReasonMinPurchase
	}
	if v.UsageLimit != nil && v.UsageCount >= *v.UsageLimit {
		return false, VoucherReasonUsageLimit
	}
	if v.PerUserLimit != nil && userUsageCount >= *v.PerUserLimit {
		return false, VoucherReasonPerUserLimit
	}
	return true, ""
}

// DiscountFor computes the discount amount for the given subtotal.
// Percentage discounts are capped at MaxDiscount when set; the result never
// exceeds the subtotal and is never negative.
func (v *Voucher) DiscountFor(subtotal int64) int64 {
	if subtotal <= 0 {
		return 0
	}

	var discount int64
	switch v.DiscountType {
	case DiscountTypePercentage:
		discount = subtotal * v.DiscountValue / 100
		if v.MaxDiscount != nil && discount > *v.MaxDiscount {
			discount = *v.MaxDiscount
		}
	case DiscountTypeFixed:
		discount = v.DiscountValue
	default:
		return 0
	}

	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}

// VoucherUsage records one redemption of a voucher by a user on an order.
type VoucherUsage struct {
	ID        string    `json:"id"`
	VoucherID string    `json:"voucher_id"`
	UserID    string    `json:"user_id"`
	OrderID   string    `json:"order_id"`
	UsedAt    time.Time `json:"used_at"`
}
