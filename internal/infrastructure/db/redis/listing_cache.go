package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/homefinder/listing-service/internal/core/domain"
)

const (
	generationKey = "listings:gen"
	listingsKey   = "listings:all"
)

// ListingCache caches the full listing collection as a single JSON value per
// generation. Invalidate bumps the generation with INCR; values written for
// an older generation are never read again and expire with their TTL.
type ListingCache struct {
	client *redis.Client
}

func NewListingCache(client *redis.Client) *ListingCache {
	return &ListingCache{client: client}
}

func (c *ListingCache) Get(ctx context.Context) ([]*domain.Listing, int64, bool, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, false, fmt.Errorf("listing cache generation: %w", err)
	}

	raw, err := c.client.Get(ctx, dataKey(gen)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, gen, false, nil
		}
		return nil, 0, false, fmt.Errorf("listing cache get: %w", err)
	}

	var listings []*domain.Listing
	if err := json.Unmarshal(raw, &listings); err != nil {
		return nil, 0, false, fmt.Errorf("listing cache decode: %w", err)
	}
	return listings, gen, true, nil
}

func (c *ListingCache) Set(ctx context.Context, gen int64, listings []*domain.Listing, ttl time.Duration) error {
	if listings == nil {
		listings = []*domain.Listing{}
	}
	raw, err := json.Marshal(listings)
	if err != nil {
		return fmt.Errorf("listing cache encode: %w", err)
	}
	return c.client.Set(ctx, dataKey(gen), raw, ttl).Err()
}

func (c *ListingCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, generationKey).Err()
}

func dataKey(gen int64) string {
	return listingsKey + ":" + strconv.FormatInt(gen, 10)
}
