// Package shipping adapts the external courier rate-quote aggregator. A mock
// provider synthesizes weight-based pricing when no credentials are
// configured.
package shipping

import (
	"context"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/domain"
)

// RateProvider quotes courier services for a shipment. Implementations must
// surface provider unavailability as an error; callers own the fallback
// policy, the rate cache is never used as one.
type RateProvider interface {
	// Quote returns the courier options for a shipment of weightKg kilograms
	// from origin to the destination city.
	Quote(ctx context.Context, origin, city string, weightKg int) ([]domain.RateQuote, error)
}
