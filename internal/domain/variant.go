package domain

import "time"

// DefaultItemWeightGrams is assumed for variants with no recorded weight when
// computing shipping weight.
const DefaultItemWeightGrams = 1000

// Variant represents a sellable product variant. Stock is the single
// authoritative available quantity; it is only decremented inside the
// order-creation transaction and restored on cancellation.
type Variant struct {
	ID          string    `json:"id"`
	ERPID       string    `json:"erp_id,omitempty"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Price       int64     `json:"price"`
	WeightGrams int       `json:"weight_grams"`
	Stock       int       `json:"stock"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EffectiveWeightGrams returns the variant weight, falling back to the
// default when none is recorded.
func (v *Variant) EffectiveWeightGrams() int {
	if v.WeightGrams <= 0 {
		return DefaultItemWeightGrams
	}
	return v.WeightGrams
}
