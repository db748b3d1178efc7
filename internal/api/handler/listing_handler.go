package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/homefinder/listing-service/internal/api/metrics"
	"github.com/homefinder/listing-service/internal/api/middleware"
	"github.com/homefinder/listing-service/internal/core/domain"
	"github.com/homefinder/listing-service/internal/core/ports"
)

// imagesField is the multipart field carrying the listing photos.
const imagesField = "images"

// ListingHandler handles HTTP requests for listing operations.
type ListingHandler struct {
	service        ports.ListingService
	storageTimeout time.Duration
}

// NewListingHandler returns a handler whose uploads are bounded by
// storageTimeout. A non-positive timeout leaves the request context as is.
func NewListingHandler(service ports.ListingService, storageTimeout time.Duration) *ListingHandler {
	return &ListingHandler{service: service, storageTimeout: storageTimeout}
}

// Upload handles POST /upload-listing.
//
// @Summary      Publish a listing with exactly two photos
// @Tags         listings
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        title        formData  string  true   "Title"
// @Param        location     formData  string  true   "Location"
// @Param        price        formData  number  true   "Monthly price"
// @Param        description  formData  string  true   "Description"
// @Param        bedrooms     formData  integer true   "Bedrooms"
// @Param        bathrooms    formData  integer true   "Bathrooms"
// @Param        amenities    formData  string  false  "JSON array of strings"
// @Param        images       formData  file    true   "Exactly two images"
// @Success      200          {object}  createListingResponse
// @Failure      400          {object}  errorResponse
// @Failure      401          {object}  errorResponse
// @Failure      500          {object}  errorResponse
// @Router       /upload-listing [post]
func (h *ListingHandler) Upload(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	var form createListingForm
	if err := c.Bind(&form); err != nil {
		metrics.ListingUploadFailuresTotal.WithLabelValues("validation").Inc()
		return domain.NewValidationError("invalid multipart payload")
	}
	if err := c.Validate(&form); err != nil {
		metrics.ListingUploadFailuresTotal.WithLabelValues("validation").Inc()
		return err
	}

	mf, err := c.MultipartForm()
	if err != nil {
		metrics.ListingUploadFailuresTotal.WithLabelValues("validation").Inc()
		return domain.NewValidationError("invalid multipart payload")
	}
	uploads, closeUploads, err := openUploads(mf.File[imagesField])
	if err != nil {
		metrics.ListingUploadFailuresTotal.WithLabelValues("storage_write").Inc()
		return errors.Join(domain.ErrStorageWrite, err)
	}
	defer closeUploads()

	input, err := toCreateInput(form, uploads)
	if err != nil {
		metrics.ListingUploadFailuresTotal.WithLabelValues("validation").Inc()
		return err
	}

	ctx := c.Request().Context()
	if h.storageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.storageTimeout)
		defer cancel()
	}

	listing, err := h.service.CreateListing(ctx, input, user)
	if err != nil {
		metrics.ListingUploadFailuresTotal.WithLabelValues(uploadFailureReason(err)).Inc()
		return err
	}

	metrics.ListingsCreatedTotal.Inc()
	metrics.ImagesIngestedTotal.Add(float64(len(listing.Images)))
	return c.JSON(http.StatusOK, createListingResponse{
		Status:     statusOK,
		NewListing: toListingResponse(listing),
	})
}

// List handles GET /listings.
//
// @Summary      List every listing
// @Tags         listings
// @Produce      json
// @Success      200  {object}  listListingsResponse
// @Failure      500  {object}  errorResponse
// @Router       /listings [get]
func (h *ListingHandler) List(c echo.Context) error {
	listings, err := h.service.ListListings(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listListingsResponse{
		Status: statusOK,
		Data:   toListingResponses(listings),
	})
}

// Get handles GET /listings/:id.
//
// @Summary      Get a listing by id
// @Tags         listings
// @Produce      json
// @Param        id   path      string  true  "Listing id"
// @Success      200  {object}  getListingResponse
// @Failure      404  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /listings/{id} [get]
func (h *ListingHandler) Get(c echo.Context) error {
	listing, err := h.service.GetListing(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, getListingResponse{
		Status: statusOK,
		Data:   toListingResponse(listing),
	})
}

// Delete handles DELETE /listings/:id. Unknown ids succeed. Whether a token
// is required depends on the configured delete policy.
//
// @Summary      Delete a listing
// @Tags         listings
// @Produce      json
// @Param        id   path      string  true  "Listing id"
// @Success      200  {object}  statusResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /listings/{id} [delete]
func (h *ListingHandler) Delete(c echo.Context) error {
	err := h.service.DeleteListing(c.Request().Context(), c.Param("id"), middleware.UserFrom(c))
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			metrics.ListingsDeletedTotal.WithLabelValues("forbidden").Inc()
		}
		return err
	}

	metrics.ListingsDeletedTotal.WithLabelValues("ok").Inc()
	return c.JSON(http.StatusOK, statusResponse{Status: statusOK})
}

func uploadFailureReason(err error) string {
	var ve *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrWrongImageCount):
		return "wrong_image_count"
	case errors.Is(err, domain.ErrMalformedAmenities):
		return "malformed_amenities"
	case errors.Is(err, domain.ErrStorageWrite):
		return "storage_write"
	case errors.As(err, &ve):
		return "validation"
	default:
		return "internal"
	}
}
