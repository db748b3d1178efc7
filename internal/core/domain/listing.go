package domain

import "time"

// ImagesPerListing is the exact number of images every listing carries.
const ImagesPerListing = 2

// Listing is a rental property published by a user.
type Listing struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Location    string    `json:"location"`
	Price       float64   `json:"price"`
	Description string    `json:"description"`
	Bedrooms    int       `json:"bedrooms"`
	Bathrooms   int       `json:"bathrooms"`
	Amenities   []string  `json:"amenities"`
	Images      []string  `json:"images"`
	OwnerID     string    `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DeletePolicy selects who may delete a listing.
type DeletePolicy string

const (
	// DeleteOpen lets any caller delete any listing, authenticated or not.
	DeleteOpen DeletePolicy = "open"
	// DeleteOwner restricts deletion to the listing's owner.
	DeleteOwner DeletePolicy = "owner"
)

// Valid reports whether p is a known policy.
func (p DeletePolicy) Valid() bool {
	return p == DeleteOpen || p == DeleteOwner
}

// RequiresAuth reports whether the policy needs an acting user.
func (p DeletePolicy) RequiresAuth() bool {
	return p == DeleteOwner
}

// CanDelete reports whether user may delete listing. The admin flag is
// intentionally not consulted.
func CanDelete(user *User, listing *Listing) bool {
	if user == nil || listing == nil {
		return false
	}
	return listing.OwnerID != "" && listing.OwnerID == user.ID
}
