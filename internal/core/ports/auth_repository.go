package ports

import (
	"context"

	"github.com/homefinder/listing-service/internal/core/domain"
)

// UserRepository persists user accounts.
type UserRepository interface {
	// FindByUsername returns domain.ErrUserNotFound when no account matches.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// FindByID returns domain.ErrUserNotFound when no account matches.
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// Create returns domain.ErrDuplicateUsername when the username is taken.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
}
