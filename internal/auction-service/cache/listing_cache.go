package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const listingKey = "auctions:listing"

// ListingCache guarda a listagem pública de leilões serializada no Redis.
// Client: cliente Redis
// TTL: tempo de expiração do registro
type ListingCache struct {
	Client *redis.Client
	TTL    time.Duration
}

// NewListingCache cria um cache de listagem com TTL configurável
func NewListingCache(c *redis.Client, ttl time.Duration) *ListingCache {
	return &ListingCache{Client: c, TTL: ttl}
}

// Get retorna o payload cacheado, ou ok=false em miss/erro
func (c *ListingCache) Get(ctx context.Context) ([]byte, bool) {
	b, err := c.Client.Get(ctx, listingKey).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

// Set armazena o payload da listagem com o TTL do cache
func (c *ListingCache) Set(ctx context.Context, payload []byte) error {
	return c.Client.Set(ctx, listingKey, payload, c.TTL).Err()
}
