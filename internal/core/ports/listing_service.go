package ports

import (
	"context"

	"github.com/homefinder/listing-service/internal/core/domain"
)

// CreateListingInput carries the validated form fields of a new listing.
// Amenities holds the raw transport encoding (a JSON array of strings).
type CreateListingInput struct {
	Title       string
	Location    string
	Price       float64
	Description string
	Bedrooms    int
	Bathrooms   int
	Amenities   string
	Images      []ImageUpload
}

// ListingService defines use-case operations for listings.
type ListingService interface {
	CreateListing(ctx context.Context, input CreateListingInput, actor *domain.User) (*domain.Listing, error)
	ListListings(ctx context.Context) ([]*domain.Listing, error)
	GetListing(ctx context.Context, id string) (*domain.Listing, error)
	// DeleteListing succeeds silently when id does not exist. actor may be nil
	// under the open delete policy.
	DeleteListing(ctx context.Context, id string, actor *domain.User) error
}
