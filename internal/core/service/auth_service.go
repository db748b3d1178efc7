package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/homefinder/listing-service/internal/core/domain"
	"github.com/homefinder/listing-service/internal/core/ports"
)

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

// TokenManager issues bearer tokens and maps them back to a user id.
type TokenManager interface {
	Issue(userID string) (string, error)
	Subject(token string) (string, error)
}

// AuthService implements registration, login and bearer-token resolution.
type AuthService struct {
	repo   ports.UserRepository
	tokens TokenManager
	cost   int
	log    zerolog.Logger

	dummyOnce sync.Once
	dummyHash []byte
}

// NewAuthService returns an AuthService hashing passwords with the given
// bcrypt cost. A cost <= 0 selects bcrypt.DefaultCost.
func NewAuthService(repo ports.UserRepository, tokens TokenManager, cost int, log zerolog.Logger) *AuthService {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &AuthService{repo: repo, tokens: tokens, cost: cost, log: log}
}

func (s *AuthService) Register(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.NewValidationError("username and password are required")
	}
	if len(password) > maxPasswordBytes {
		return domain.NewValidationError(fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes))
	}

	// Fast path only; the unique index behind repo.Create is authoritative.
	_, err := s.repo.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return domain.ErrDuplicateUsername
	case !errors.Is(err, domain.ErrUserNotFound):
		return fmt.Errorf("register: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("register: hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, &domain.User{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateUsername) {
			return err
		}
		return fmt.Errorf("register: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	return nil
}

// Login verifies the credentials and returns a bearer token together with
// the authenticated user. Unknown usernames and wrong passwords are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Burn the same bcrypt time as a real comparison.
			_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("login: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	tkn, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("login: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("user logged in")
	return tkn, user, nil
}

// ResolveToken verifies a bearer token and loads the user it belongs to.
func (s *AuthService) ResolveToken(ctx context.Context, raw string) (*domain.User, error) {
	if raw == "" {
		return nil, domain.ErrMissingToken
	}

	userID, err := s.tokens.Subject(raw)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, fmt.Errorf("resolve token: %w", err)
	}
	return user, nil
}

func (s *AuthService) dummy() []byte {
	s.dummyOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.cost)
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to build dummy password hash")
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}
