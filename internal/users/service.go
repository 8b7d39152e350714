package users

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/homefind/usersvc/internal/events"
	"github.com/homefind/usersvc/internal/shared"
	"github.com/homefind/usersvc/internal/token"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	Create(ctx context.Context, user User) (*User, error)
	List(ctx context.Context, filter ListFilter) ([]User, error)
	Get(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) (*User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service handles user business logic: authorization policy, credential
// hashing, repository orchestration, and change event emission.
type Service struct {
	repo              RepositoryPort
	publisher         events.Publisher
	logger            *slog.Logger
	allowSelfRegister bool
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, publisher events.Publisher, logger *slog.Logger, allowSelfRegister bool) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{repo: repo, publisher: publisher, logger: logger, allowSelfRegister: allowSelfRegister}
}

// CreateUserInput carries the fields accepted on account creation.
type CreateUserInput struct {
	Email             string
	Name              string
	PhoneNumber       string
	HousingPreference string
	ListingGroup      string
	Password          string
	Role              string
}

// UpdateUserInput carries a partial update; nil fields stay untouched.
type UpdateUserInput struct {
	Email             *string
	Name              *string
	PhoneNumber       *string
	HousingPreference *string
	ListingGroup      *string
	Password          *string
	IsActive          *bool
}

/// canAct implements the authorization rule: an identity acts on its own
// record, an elevated identity acts on any record. Fails closed.
func canAct(ident *token.Identity, id uuid.UUID) bool {
	if ident == nil {
		return false
	}
	return ident.Elevated || ident.IsSelf(id.String())
}

// CreateUser registers a new account. Anonymous callers are accepted only
// when self-registration is enabled and must supply a password; a verified
// Google identity always binds its own subject; an elevated identity may
// create any account. Standard local identities cannot create accounts.
func (s *Service) CreateUser(ctx context.Context, ident *token.Identity, input CreateUserInput) (*User, error) {
	user := User{
		ID:                uuid.New(),
		Email:             input.Email,
		Name:              input.Name,
		PhoneNumber:       input.PhoneNumber,
		HousingPreference: input.HousingPreference,
		ListingGroup:      input.ListingGroup,
		Role:              RoleUser,
		IsActive:          true,
	}

	switch {
	case ident == nil:
		if !s.allowSelfRegister {
			return nil, shared.ErrUnauthorized
		}
		if input.Password == "" {
			return nil, fmt.Errorf("%w: password required for self-registration", shared.ErrValidation)
		}
	case ident.Issuer == token.IssuerGoogle:
		user.GoogleSub = ident.Subject
		if user.Email == "" {
			user.Email = ident.Email
		}
	case ident.Elevated:
		if input.Role == RoleAdmin {
			user.Role = RoleAdmin
		}
		if input.Password == "" {
			return nil, fmt.Errorf("%w: password required", shared.ErrValidation)
		}
	default:
		return nil, shared.ErrForbidden
	}

	if input.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("users: hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}
	if user.PasswordHash == "" && user.GoogleSub == "" {
		return nil, fmt.Errorf("%w: account needs a password or an external subject", shared.ErrValidation)
	}
	if user.Email == "" {
		return nil, fmt.Errorf("%w: email required", shared.ErrValidation)
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	s.emit(events.TypeUserCreated, created)
	return created, nil
}

// ListUsers returns users matching the filter. The collection scan has no
// self-scoped reading, so it requires elevated trust.
func (s *Service) ListUsers(ctx context.Context, ident *token.Identity, filter ListFilter) ([]User, error) {
	if ident == nil || !ident.Elevated {
		return nil, shared.ErrForbidden
	}
	return s.repo.List(ctx, filter)
}

// GetUser fetches a single record for its owner or an elevated identity.
func (s *Service) GetUser(ctx context.Context, ident *token.Identity, id uuid.UUID) (*User, error) {
	if !canAct(ident, id) {
		return nil, shared.ErrForbidden
	}
	return s.repo.Get(ctx, id)
}

// UpdateUser applies the supplied fields to the record and emits an event.
func (s *Service) UpdateUser(ctx context.Context, ident *token.Identity, id uuid.UUID, input UpdateUserInput) (*User, error) {
	if !canAct(ident, id) {
		return nil, shared.ErrForbidden
	}

	updates := make(map[string]any)
	setString := func(column string, value *string) {
		if value != nil {
			updates[column] = *value
		}
	}
	setString("email", input.Email)
	setString("name", input.Name)
	setString("phone_number", input.PhoneNumber)
	setString("housing_preference", input.HousingPreference)
	setString("listing_group", input.ListingGroup)
	if input.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("users: hash password: %w", err)
		}
		updates["password_hash"] = string(hash)
	}
	if input.IsActive != nil {
		if !ident.Elevated {
			return nil, shared.ErrForbidden
		}
		updates["is_active"] = *input.IsActive
	}

	updated, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		return nil, err
	}
	s.emit(events.TypeUserUpdated, updated)
	return updated, nil
}

// DeleteUser removes the record. Deletion is hard; a second delete on the
// same id reports not found.
func (s *Service) DeleteUser(ctx context.Context, ident *token.Identity, id uuid.UUID) error {
	if !canAct(ident, id) {
		return shared.ErrForbidden
	}

	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.emit(events.TypeUserDeleted, user)
	return nil
}

// emit publishes a change event after the mutation has committed. The
// publisher absorbs all failures; the caller's outcome is already decided.
func (s *Service) emit(eventType string, user *User) {
	s.publisher.Publish(events.ChangeEvent{
		Type:       eventType,
		UserID:     user.ID.String(),
		OccurredAt: time.Now().UTC(),
		User:       user.Snapshot(),
	})
}
