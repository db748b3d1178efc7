package ports

import (
	"context"

	"github.com/homefinder/listing-service/internal/core/domain"
)

type AuthService interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (string, *domain.User, error)
}

// TokenResolver turns a bearer token into the user it was issued to.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (*domain.User, error)
}
