package handler

import (
	"mime/multipart"
	"strconv"

	"github.com/homefinder/listing-service/internal/core/domain"
	"github.com/homefinder/listing-service/internal/core/ports"
)

// --- Request → Service input ---

func toCreateInput(form createListingForm, images []ports.ImageUpload) (ports.CreateListingInput, error) {
	price, err := strconv.ParseFloat(form.Price, 64)
	if err != nil || price < 0 {
		return ports.CreateListingInput{}, domain.NewValidationError("price must be a non-negative number")
	}
	bedrooms, err := strconv.Atoi(form.Bedrooms)
	if err != nil || bedrooms < 0 {
		return ports.CreateListingInput{}, domain.NewValidationError("bedrooms must be a non-negative whole number")
	}
	bathrooms, err := strconv.Atoi(form.Bathrooms)
	if err != nil || bathrooms < 0 {
		return ports.CreateListingInput{}, domain.NewValidationError("bathrooms must be a non-negative whole number")
	}

	return ports.CreateListingInput{
		Title:       form.Title,
		Location:    form.Location,
		Price:       price,
		Description: form.Description,
		Bedrooms:    bedrooms,
		Bathrooms:   bathrooms,
		Amenities:   form.Amenities,
		Images:      images,
	}, nil
}

// openUploads opens every file part. The returned closer must be called once
// the service is done reading.
func openUploads(headers []*multipart.FileHeader) ([]ports.ImageUpload, func(), error) {
	files := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	uploads := make([]ports.ImageUpload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		files = append(files, f)
		uploads = append(uploads, ports.ImageUpload{Filename: fh.Filename, Content: f})
	}
	return uploads, closeAll, nil
}

// --- Domain → Response ---

func toListingResponse(l *domain.Listing) listingResponse {
	amenities := l.Amenities
	if amenities == nil {
		amenities = []string{}
	}
	images := l.Images
	if images == nil {
		images = []string{}
	}
	return listingResponse{
		ID:          l.ID,
		Title:       l.Title,
		Location:    l.Location,
		Price:       l.Price,
		Description: l.Description,
		Bedrooms:    l.Bedrooms,
		Bathrooms:   l.Bathrooms,
		Amenities:   amenities,
		Images:      images,
		OwnerID:     l.OwnerID,
		CreatedAt:   l.CreatedAt,
	}
}

func toListingResponses(listings []*domain.Listing) []listingResponse {
	out := make([]listingResponse, 0, len(listings))
	for _, l := range listings {
		out = append(out, toListingResponse(l))
	}
	return out
}
