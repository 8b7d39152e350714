package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/homefind/usersvc/internal/shared"
)

const userColumns = `id, email, name, phone_number, housing_preference, listing_group,
	password_hash, google_sub, role, is_active, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for users.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new user and returns the stored row.
func (r *Repository) Create(ctx context.Context, user User) (*User, error) {
	query := `
		INSERT INTO users (id, email, name, phone_number, housing_preference, listing_group,
			password_hash, google_sub, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + userColumns
	row := r.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.Name, user.PhoneNumber, user.HousingPreference,
		user.ListingGroup, user.PasswordHash, user.GoogleSub, user.Role, user.IsActive,
	)
	stored, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, shared.ErrConflict
		}
		return nil, fmt.Errorf("users: create: %w", err)
	}
	return stored, nil
}

// List returns users matching the filter ordered by creation time.
// An empty result is not an error.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]User, error) {
	var (
		conditions []string
		args       []any
	)
	addFilter := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	addFilter("email", filter.Email)
	addFilter("name", filter.Name)
	addFilter("housing_preference", filter.HousingPreference)
	addFilter("listing_group", filter.ListingGroup)

	query := `SELECT ` + userColumns + ` FROM users`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()

	var result []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("users: list scan: %w", err)
		}
		result = append(result, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("users: list rows: %w", err)
	}
	return result, nil
}

// Get fetches a user by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("users: get: %w", err)
	}
	return user, nil
}

// FindByEmail fetches a user by email address.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("users: find by email: %w", err)
	}
	return user, nil
}

// updatableColumns whitelists columns Update may touch.
var updatableColumns = map[string]bool{
	"email":              true,
	"name":               true,
	"phone_number":       true,
	"housing_preference": true,
	"listing_group":      true,
	"password_hash":      true,
	"is_active":          true,
}

// Update applies only the supplied columns in a single statement and bumps
// updated_at; concurrent readers never observe a partial update.
// clock_timestamp() keeps updated_at strictly increasing across sequential
// updates inside one transaction's now().
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) (*User, error) {
	if len(updates) == 0 {
		return r.Get(ctx, id)
	}

	setClauses := make([]string, 0, len(updates)+1)
	args := []any{id}
	for column, value := range updates {
		if !updatableColumns[column] {
			return nil, fmt.Errorf("users: update: column %q not updatable", column)
		}
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	setClauses = append(setClauses, "updated_at = clock_timestamp()")

	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(setClauses, ", "), userColumns)

	row := r.pool.QueryRow(ctx, query, args...)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, shared.ErrConflict
		}
		return nil, fmt.Errorf("users: update: %w", err)
	}
	return user, nil
}

// Delete removes the row. A repeated delete reports ErrNotFound; removal is
// hard and ids are never reassigned.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("users: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*User, error) {
	var user User
	err := row.Scan(
		&user.ID, &user.Email, &user.Name, &user.PhoneNumber, &user.HousingPreference,
		&user.ListingGroup, &user.PasswordHash, &user.GoogleSub, &user.Role,
		&user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
