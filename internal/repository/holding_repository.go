package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/stockfolio/performance-backend/internal/model"
)

// HoldingRepository provides data access methods for the holding table,
// which carries each user's live positions. Rows are maintained in lockstep
// with ledger appends and can be rebuilt from the ledger at any time.
type HoldingRepository struct {
	db *sql.DB
}

// NewHoldingRepository creates a new HoldingRepository with the provided database connection.
func NewHoldingRepository(db *sql.DB) *HoldingRepository {
	return &HoldingRepository{db: db}
}

// GetByUser retrieves a user's open positions (quantity > 0), ordered by ticker.
func (r *HoldingRepository) GetByUser(userID string) ([]model.Holding, error) {
	query := `
		SELECT user_id, ticker, quantity, avg_purchase_price
		FROM holding
		WHERE user_id = ?
		AND quantity > 0
		ORDER BY ticker ASC
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holding table: %w", err)
	}
	defer rows.Close()

	holdings := []model.Holding{}

	for rows.Next() {
		var h model.Holding

		err := rows.Scan(
			&h.UserID,
			&h.Ticker,
			&h.Quantity,
			&h.AvgPurchasePrice,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding table results: %w", err)
		}

		holdings = append(holdings, h)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holding table: %w", err)
	}

	return holdings, nil
}

// Upsert writes a single position, replacing any existing row for the
// (user, ticker) pair.
func (r *HoldingRepository) Upsert(ctx context.Context, h model.Holding) error {
	query := `
		INSERT INTO holding (user_id, ticker, quantity, avg_purchase_price)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, ticker) DO UPDATE SET
			quantity = excluded.quantity,
			avg_purchase_price = excluded.avg_purchase_price
	`

	_, err := r.db.ExecContext(ctx, query, h.UserID, h.Ticker, h.Quantity, h.AvgPurchasePrice)
	if err != nil {
		return fmt.Errorf("failed to upsert holding: %w", err)
	}

	return nil
}

// ReplaceForUser atomically replaces all of a user's positions. Used by the
// rebuild-from-ledger audit path.
func (r *HoldingRepository) ReplaceForUser(ctx context.Context, userID string, holdings []model.Holding) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin holding replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM holding WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to clear holdings: %w", err)
	}

	insert := `
		INSERT INTO holding (user_id, ticker, quantity, avg_purchase_price)
		VALUES (?, ?, ?, ?)
	`

	for _, h := range holdings {
		if _, err := tx.ExecContext(ctx, insert, userID, h.Ticker, h.Quantity, h.AvgPurchasePrice); err != nil {
			return fmt.Errorf("failed to insert holding for %s: %w", h.Ticker, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit holding replace: %w", err)
	}

	return nil
}
