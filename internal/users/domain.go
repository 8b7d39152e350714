package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/homefind/usersvc/internal/events"
)

// Trust roles. Admin is the elevated tier; everything else is standard.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the persisted account entity. The repository is its sole writer.
// At least one of PasswordHash and GoogleSub is always present.
type User struct {
	ID                uuid.UUID
	Email             string
	Name              string
	PhoneNumber       string
	HousingPreference string
	ListingGroup      string
	PasswordHash      string
	GoogleSub         string
	Role              string
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// External reports whether the account originates from an external identity
// provider.
func (u *User) External() bool {
	return u.GoogleSub != ""
}

// Snapshot builds the sanitized event payload for this user. Credential
// material never leaves the repository boundary.
func (u *User) Snapshot() events.UserSnapshot {
	return events.UserSnapshot{
		ID:       u.ID.String(),
		Email:    u.Email,
		Name:     u.Name,
		Role:     u.Role,
		External: u.External(),
		IsActive: u.IsActive,
	}
}

// ListFilter narrows List results; all matches are exact.
type ListFilter struct {
	Email             string
	Name              string
	HousingPreference string
	ListingGroup      string
}
