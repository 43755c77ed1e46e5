// Package redis holds the Redis-backed shipping rate cache. Rate quotes from
// the courier aggregator change rarely, so they are cached per origin,
// destination city, and chargeable weight.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/domain"
)

// RateCacheTTL is how long a cached rate quote set stays valid.
const RateCacheTTL = 24 * time.Hour

// RateCache implements repository.RateCache using Redis.
type RateCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRateCache creates a new Redis-backed rate cache.
func NewRateCache(client *redis.Client) *RateCache {
	return &RateCache{
		client: client,
		ttl:    RateCacheTTL,
	}
}

func rateKey(origin, city string, kg int) string {
	return fmt.Sprintf("shiprate:%s:%s:%d", origin, city, kg)
}

// Get returns cached quotes and whether the key was present. A Redis failure
// is returned as an error so the caller can decide to fall through.
func (c *RateCache) Get(ctx context.Context, origin, city string, kg int) ([]domain.RateQuote, bool, error) {
	data, err := c.client.Get(ctx, rateKey(origin, city, kg)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get rates: %w", err)
	}

	var quotes []domain.RateQuote
	if err := json.Unmarshal(data, &quotes); err != nil {
		return nil, false, fmt.Errorf("unmarshal rates: %w", err)
	}

	return quotes, true, nil
}

// Set stores quotes under the key with the cache TTL.
func (c *RateCache) Set(ctx context.Context, origin, city string, kg int, quotes []domain.RateQuote) error {
	data, err := json.Marshal(quotes)
	if err != nil {
		return fmt.Errorf("marshal rates: %w", err)
	}

	if err := c.client.Set(ctx, rateKey(origin, city, kg), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set rates: %w", err)
	}

	return nil
}
