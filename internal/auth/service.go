package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/homefind/usersvc/internal/shared"
	"github.com/homefind/usersvc/internal/users"
)

// UserFinder looks up accounts for credential checks.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*users.User, error)
}

// TokenIssuer signs access tokens for authenticated accounts.
type TokenIssuer interface {
	Issue(subject, role, email string) (string, error)
}

// Service wraps authentication business rules.
type Service struct {
	finder UserFinder
	issuer TokenIssuer
}

// NewService constructs a new Service.
func NewService(finder UserFinder, issuer TokenIssuer) *Service {
	return &Service{finder: finder, issuer: issuer}
}

// Authenticate validates email/password credentials and issues an access
// token. Every failure collapses to invalid credentials; callers learn
// nothing about which check failed.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*users.User, string, error) {
	user, err := s.finder.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", shared.ErrInvalidCredentials
	}
	if !user.IsActive || user.PasswordHash == "" {
		return nil, "", shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", shared.ErrInvalidCredentials
	}
	signed, err := s.issuer.Issue(user.ID.String(), user.Role, user.Email)
	if err != nil {
		return nil, "", err
	}
	return user, signed, nil
}
