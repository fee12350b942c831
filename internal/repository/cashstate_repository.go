package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/stockfolio/performance-backend/internal/model"
)

// CashStateRepository provides data access methods for the cash_state table.
// The table denormalizes the two running cash-flow totals per user so reads
// are O(1); the ledger remains the source of truth and the row can always be
// rebuilt by replay.
type CashStateRepository struct {
	db *sql.DB
}

// NewCashStateRepository creates a new CashStateRepository with the provided database connection.
func NewCashStateRepository(db *sql.DB) *CashStateRepository {
	return &CashStateRepository{db: db}
}

// Get retrieves the cash state for a user. A user with no ledger activity
// yet has no row; that is returned as a zero state, not an error.
func (r *CashStateRepository) Get(userID string) (model.CashState, error) {
	query := `
		SELECT user_id, max_cash_deployed, cash_proceeds, updated_at
		FROM cash_state
		WHERE user_id = ?
	`

	var state model.CashState
	var updatedAtStr string

	err := r.db.QueryRow(query, userID).Scan(
		&state.UserID,
		&state.MaxCashDeployed,
		&state.CashProceeds,
		&updatedAtStr,
	)
	if err == sql.ErrNoRows {
		return model.CashState{UserID: userID}, nil
	}
	if err != nil {
		return model.CashState{}, fmt.Errorf("failed to query cash_state table: %w", err)
	}

	state.UpdatedAt, err = ParseTime(updatedAtStr)
	if err != nil {
		return model.CashState{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return state, nil
}

// Upsert writes the cash state for a user, replacing any existing row.
func (r *CashStateRepository) Upsert(ctx context.Context, state model.CashState) error {
	query := `
		INSERT INTO cash_state (user_id, max_cash_deployed, cash_proceeds, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			max_cash_deployed = excluded.max_cash_deployed,
			cash_proceeds = excluded.cash_proceeds,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		state.UserID,
		state.MaxCashDeployed,
		state.CashProceeds,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert cash_state: %w", err)
	}

	return nil
}
