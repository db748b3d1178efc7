package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/homefinder/listing-service/internal/core/domain"
	"github.com/homefinder/listing-service/internal/core/ports"
)

const userKey = "user"

// Auth is the access gate: it requires a "Bearer <token>" Authorization
// header, resolves the token to a user and stores the user on the context.
func Auth(resolver ports.TokenResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return unauthorized(domain.ErrMissingToken)
			}

			user, err := resolver.ResolveToken(c.Request().Context(), raw)
			if err != nil {
				if errors.Is(err, domain.ErrInvalidToken) || errors.Is(err, domain.ErrMissingToken) {
					return unauthorized(err)
				}
				return err
			}

			c.Set(userKey, user)
			return next(c)
		}
	}
}

// UserFrom returns the user stored by Auth, or nil on ungated routes.
func UserFrom(c echo.Context) *domain.User {
	user, _ := c.Get(userKey).(*domain.User)
	return user
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	raw := strings.TrimSpace(parts[1])
	if raw == "" || strings.ContainsAny(raw, " \t") {
		return "", false
	}
	return raw, true
}

func unauthorized(err error) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusUnauthorized, err.Error()).SetInternal(err)
}
