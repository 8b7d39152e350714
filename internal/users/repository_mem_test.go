package users_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/homefind/usersvc/internal/shared"
	"github.com/homefind/usersvc/internal/users"
)

// memRepo is an in-memory users.RepositoryPort with the same contract as the
// PostgreSQL repository: unique email and google_sub, ordered listing,
// strictly increasing updated_at, hard delete.
type memRepo struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]users.User
	failC error
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[uuid.UUID]users.User)}
}

func (m *memRepo) Create(ctx context.Context, user users.User) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failC != nil {
		return nil, m.failC
	}
	for _, row := range m.rows {
		if row.Email == user.Email {
			return nil, shared.ErrConflict
		}
		if user.GoogleSub != "" && row.GoogleSub == user.GoogleSub {
			return nil, shared.ErrConflict
		}
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	m.rows[user.ID] = user
	stored := user
	return &stored, nil
}

func (m *memRepo) List(ctx context.Context, filter users.ListFilter) ([]users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []users.User
	for _, row := range m.rows {
		if filter.Email != "" && row.Email != filter.Email {
			continue
		}
		if filter.Name != "" && row.Name != filter.Name {
			continue
		}
		if filter.HousingPreference != "" && row.HousingPreference != filter.HousingPreference {
			continue
		}
		if filter.ListingGroup != "" && row.ListingGroup != filter.ListingGroup {
			continue
		}
		result = append(result, row)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID.String() < result[j].ID.String()
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *memRepo) Get(ctx context.Context, id uuid.UUID) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &row, nil
}

func (m *memRepo) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.Email == email {
			found := row
			return &found, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	for column, value := range updates {
		switch column {
		case "email":
			row.Email = value.(string)
		case "name":
			row.Name = value.(string)
		case "phone_number":
			row.PhoneNumber = value.(string)
		case "housing_preference":
			row.HousingPreference = value.(string)
		case "listing_group":
			row.ListingGroup = value.(string)
		case "password_hash":
			row.PasswordHash = value.(string)
		case "is_active":
			row.IsActive = value.(bool)
		}
	}
	now := time.Now().UTC()
	if !now.After(row.UpdatedAt) {
		now = row.UpdatedAt.Add(time.Microsecond)
	}
	row.UpdatedAt = now
	m.rows[id] = row
	return &row, nil
}

func (m *memRepo) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

var _ users.RepositoryPort = (*memRepo)(nil)
