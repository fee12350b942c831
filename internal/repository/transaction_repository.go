package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/stockfolio/performance-backend/internal/model"
)

// TransactionRepository provides data access methods for the append-only
// ledger_transaction table. Records are never updated or deleted.
type TransactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository creates a new TransactionRepository with the provided database connection.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Insert appends a ledger record. The record's ID and timestamps must
// already be populated by the caller.
func (r *TransactionRepository) Insert(ctx context.Context, rec *model.TransactionRecord) error {
	query := `
		INSERT INTO ledger_transaction (id, user_id, ticker, quantity, price, type, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.UserID,
		rec.Ticker,
		rec.Quantity,
		rec.Price,
		rec.Type,
		rec.Timestamp.UTC().Format(time.RFC3339),
		rec.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert ledger_transaction: %w", err)
	}

	return nil
}

// GetByUser retrieves a user's ledger records with timestamp <= cutoff,
// ordered by timestamp ascending. A zero cutoff returns the full ledger.
// Insertion order breaks timestamp ties so replay is deterministic.
func (r *TransactionRepository) GetByUser(userID string, cutoff time.Time) ([]model.TransactionRecord, error) {
	query := `
		SELECT id, user_id, ticker, quantity, price, type, timestamp, created_at
		FROM ledger_transaction
		WHERE user_id = ?
	`

	args := []any{userID}

	if !cutoff.IsZero() {
		query += ` AND timestamp <= ?`
		args = append(args, cutoff.UTC().Format(time.RFC3339))
	}

	query += ` ORDER BY timestamp ASC, rowid ASC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger_transaction table: %w", err)
	}
	defer rows.Close()

	records := []model.TransactionRecord{}

	for rows.Next() {
		var timestampStr, createdAtStr string
		var t model.TransactionRecord

		err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.Ticker,
			&t.Quantity,
			&t.Price,
			&t.Type,
			&timestampStr,
			&createdAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger_transaction results: %w", err)
		}

		t.Timestamp, err = ParseTime(timestampStr)
		if err != nil || t.Timestamp.IsZero() {
			return nil, fmt.Errorf("failed to parse timestamp: %w", err)
		}

		t.CreatedAt, err = ParseTime(createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}

		records = append(records, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger_transaction table: %w", err)
	}

	return records, nil
}

// GetOldestTimestamp finds the timestamp of the user's earliest ledger
// record. This bounds historical valuations and snapshot creation: no
// portfolio state exists before it.
//
// Returns time.Time{} (zero value) if the user has no records or the query fails.
func (r *TransactionRepository) GetOldestTimestamp(userID string) time.Time {
	var oldestStr sql.NullString

	query := `
		SELECT MIN(timestamp)
		FROM ledger_transaction
		WHERE user_id = ?
	`

	err := r.db.QueryRow(query, userID).Scan(&oldestStr)
	if err != nil || !oldestStr.Valid {
		return time.Time{}
	}

	oldest, err := ParseTime(oldestStr.String)
	if err != nil {
		return time.Time{}
	}

	return oldest
}

// ListUserIDs returns the distinct user IDs present in the ledger, in first-
// appearance order. Batch jobs iterate this set.
func (r *TransactionRepository) ListUserIDs() ([]string, error) {
	query := `
		SELECT user_id
		FROM ledger_transaction
		GROUP BY user_id
		ORDER BY MIN(rowid) ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger user ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan ledger user id: %w", err)
		}
		ids = append(ids, id)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger user ids: %w", err)
	}

	return ids, nil
}
