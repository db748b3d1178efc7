package domain

import "errors"

var (
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrMissingToken       = errors.New("missing bearer token")
	ErrInvalidToken       = errors.New("invalid token")
	ErrForbidden          = errors.New("access forbidden")

	ErrListingNotFound    = errors.New("listing not found")
	ErrWrongImageCount    = errors.New("exactly two images are required")
	ErrMalformedAmenities = errors.New("amenities must be a JSON array of strings")
	ErrStorageWrite       = errors.New("storage write failure")
	ErrImageNotFound      = errors.New("image not found")
)

// ValidationError reports a request that failed its input schema.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NewValidationError returns a ValidationError carrying msg.
func NewValidationError(msg string) error {
	return &ValidationError{Msg: msg}
}
