package shipping

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/domain"
)

// Mock synthesizes deterministic weight-and-distance-based pricing for
// environments without aggregator credentials.
type Mock struct{}

// NewMock creates the mock rate provider.
func NewMock() *Mock {
	return &Mock{}
}

// Quote returns three synthetic courier options. Pricing scales linearly with
// weight plus a pseudo-distance component derived from the route so different
// destinations get different but stable prices.
func (m *Mock) Quote(_ context.Context, origin, city string, weightKg int) ([]domain.RateQuote, error) {
	if weightKg < 1 {
		weightKg = 1
	}

	h := fnv.New32a()
	fmt.Fprintf(h, "%s:%s", origin, city)
	distance := int64(h.Sum32()%20) + 1

	base := distance * 1000

	return []domain.RateQuote{
		{Courier: "jne", Service: "REG", Cost: base + int64(weightKg)*9000, ETD: "2-3"},
		{Courier: "jne", Service: "YES", Cost: base + int64(weightKg)*16000, ETD: "1-1"},
		{Courier: "sicepat", Service: "BEST", Cost: base + int64(weightKg)*12000, ETD: "1-2"},
	}, nil
}
