package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/stockfolio/performance-backend/internal/apperrors"
	"github.com/stockfolio/performance-backend/internal/model"
)

// UserRepository provides data access methods for the user table.
// User lifecycle management lives elsewhere; this service only needs display
// metadata for leaderboards and the user set for batch iteration.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository with the provided database connection.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Get retrieves one user by ID.
// Returns apperrors.ErrUserNotFound when no row exists.
func (r *UserRepository) Get(userID string) (model.User, error) {
	query := `
		SELECT id, display_name, created_at
		FROM user
		WHERE id = ?
	`

	var u model.User
	var createdAtStr string

	err := r.db.QueryRow(query, userID).Scan(&u.ID, &u.DisplayName, &createdAtStr)
	if err == sql.ErrNoRows {
		return model.User{}, apperrors.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to query user table: %w", err)
	}

	u.CreatedAt, err = ParseTime(createdAtStr)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return u, nil
}

// GetAll retrieves all users ordered by creation.
func (r *UserRepository) GetAll() ([]model.User, error) {
	query := `
		SELECT id, display_name, created_at
		FROM user
		ORDER BY created_at ASC, rowid ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query user table: %w", err)
	}
	defer rows.Close()

	users := []model.User{}

	for rows.Next() {
		var u model.User
		var createdAtStr string

		if err := rows.Scan(&u.ID, &u.DisplayName, &createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan user table results: %w", err)
		}

		u.CreatedAt, err = ParseTime(createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}

		users = append(users, u)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user table: %w", err)
	}

	return users, nil
}

// Insert creates a user row.
func (r *UserRepository) Insert(ctx context.Context, u model.User) error {
	query := `
		INSERT INTO user (id, display_name, created_at)
		VALUES (?, ?, ?)
	`

	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	if _, err := r.db.ExecContext(ctx, query, u.ID, u.DisplayName, createdAt.Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}
