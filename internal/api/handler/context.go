package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/homefinder/listing-service/internal/api/middleware"
	"github.com/homefinder/listing-service/internal/core/domain"
)

// ctxUser returns the user attached by the Auth middleware. A route that is
// gated must always find one; its absence means the gate never ran.
func ctxUser(c echo.Context) (*domain.User, error) {
	user := middleware.UserFrom(c)
	if user == nil {
		return nil, domain.ErrMissingToken
	}
	return user, nil
}
