package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/stockfolio/performance-backend/internal/apperrors"
	"github.com/stockfolio/performance-backend/internal/model"
)

// SecurityRepository provides data access methods for the security table,
// the static per-ticker classification used by leaderboard category filters.
type SecurityRepository struct {
	db *sql.DB
}

// NewSecurityRepository creates a new SecurityRepository with the provided database connection.
func NewSecurityRepository(db *sql.DB) *SecurityRepository {
	return &SecurityRepository{db: db}
}

// Get retrieves one security by ticker.
// Returns apperrors.ErrSecurityNotFound when no row exists.
func (r *SecurityRepository) Get(ticker string) (model.Security, error) {
	query := `
		SELECT ticker, name, category
		FROM security
		WHERE ticker = ?
	`

	var s model.Security
	err := r.db.QueryRow(query, ticker).Scan(&s.Ticker, &s.Name, &s.Category)
	if err == sql.ErrNoRows {
		return model.Security{}, apperrors.ErrSecurityNotFound
	}
	if err != nil {
		return model.Security{}, fmt.Errorf("failed to query security table: %w", err)
	}

	return s, nil
}

// GetTickersByCategory returns the set of tickers classified in the given
// category.
func (r *SecurityRepository) GetTickersByCategory(category string) (map[string]bool, error) {
	query := `
		SELECT ticker
		FROM security
		WHERE category = ?
	`

	rows, err := r.db.Query(query, category)
	if err != nil {
		return nil, fmt.Errorf("failed to query security table: %w", err)
	}
	defer rows.Close()

	tickers := make(map[string]bool)

	for rows.Next() {
		var ticker string
		if err := rows.Scan(&ticker); err != nil {
			return nil, fmt.Errorf("failed to scan security results: %w", err)
		}
		tickers[ticker] = true
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating security table: %w", err)
	}

	return tickers, nil
}

// Upsert writes a security classification, replacing any existing row.
func (r *SecurityRepository) Upsert(ctx context.Context, s model.Security) error {
	query := `
		INSERT INTO security (ticker, name, category)
		VALUES (?, ?, ?)
		ON CONFLICT(ticker) DO UPDATE SET
			name = excluded.name,
			category = excluded.category
	`

	if _, err := r.db.ExecContext(ctx, query, s.Ticker, s.Name, s.Category); err != nil {
		return fmt.Errorf("failed to upsert security: %w", err)
	}

	return nil
}
