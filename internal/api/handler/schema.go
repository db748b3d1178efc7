package handler

import (
	"time"

	"github.com/homefinder/listing-service/internal/core/domain"
)

// statusOK is the status field of every successful response.
const statusOK = "ok"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// --- Auth ---

type registerRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Status string               `json:"status"`
	User   domain.PublicProfile `json:"user"`
	Token  string               `json:"token"`
}

// --- Listings ---

// createListingForm holds the text parts of the multipart upload. Numbers
// arrive as strings and are converted after validation.
type createListingForm struct {
	Title       string `form:"title"       validate:"required,max=200"`
	Location    string `form:"location"    validate:"required,max=200"`
	Price       string `form:"price"       validate:"required,numeric"`
	Description string `form:"description" validate:"required,max=5000"`
	Bedrooms    string `form:"bedrooms"    validate:"required,number"`
	Bathrooms   string `form:"bathrooms"   validate:"required,number"`
	Amenities   string `form:"amenities"`
}

type listingResponse struct {
	ID          string    `json:"_id"`
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

type createListingResponse struct {
	Status     string          `json:"status"`
	NewListing listingResponse `json:"newListing"`
}

type listListingsResponse struct {
	Status string            `json:"status"`
	Data   []listingResponse `json:"data"`
}

type getListingResponse struct {
	Status string          `json:"status"`
	Data   listingResponse `json:"data"`
}
