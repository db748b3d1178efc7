package ports

import (
	"context"
	"time"

	"github.com/homefinder/listing-service/internal/core/domain"
)

// ListingRepository defines persistence operations for listings.
type ListingRepository interface {
	// Create stores l and fills in its ID.
	Create(ctx context.Context, l *domain.Listing) error
	// FindAll returns every listing in insertion order.
	FindAll(ctx context.Context) ([]*domain.Listing, error)
	// FindByID returns domain.ErrListingNotFound for unknown or malformed ids.
	FindByID(ctx context.Context, id string) (*domain.Listing, error)
	// Delete removes the listing and returns it, or returns (nil, nil) when
	// nothing matched.
	Delete(ctx context.Context, id string) (*domain.Listing, error)
}

// ListingCache is a read-through cache for the full listing collection.
// Entries are versioned by a generation that Invalidate advances, so a
// snapshot read before a write can never be served after it.
type ListingCache interface {
	// Get reports ok=false on a miss. gen is the generation the lookup saw and
	// must be handed back to Set.
	Get(ctx context.Context) (listings []*domain.Listing, gen int64, ok bool, err error)
	// Set stores listings under generation gen.
	Set(ctx context.Context, gen int64, listings []*domain.Listing, ttl time.Duration) error
	// Invalidate advances the generation.
	Invalidate(ctx context.Context) error
}
