package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/stockfolio/performance-backend/internal/model"
)

// SnapshotRepository provides data access methods for the snapshot table,
// which holds point-in-time valuation records per user. At most one end-of-day
// row exists per user per date; intraday rows are distinguished by the
// intraday flag and upserted the same way.
type SnapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository creates a new SnapshotRepository with the provided database connection.
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Upsert writes a snapshot, replacing any existing row for the same
// (user, date, intraday) key. Same-day re-captures overwrite; the service
// layer guards prior-day immutability before calling this.
func (r *SnapshotRepository) Upsert(ctx context.Context, snap model.Snapshot) error {
	query := `
		INSERT INTO snapshot (id, user_id, date, taken_at, intraday,
			stock_value, cash_proceeds, max_cash_deployed, total_value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, date, intraday) DO UPDATE SET
			taken_at = excluded.taken_at,
			stock_value = excluded.stock_value,
			cash_proceeds = excluded.cash_proceeds,
			max_cash_deployed = excluded.max_cash_deployed,
			total_value = excluded.total_value
	`

	_, err := r.db.ExecContext(ctx, query,
		snap.ID,
		snap.UserID,
		FormatDate(snap.Date),
		snap.TakenAt.UTC().Format(time.RFC3339),
		snap.Intraday,
		snap.StockValue,
		snap.CashProceeds,
		snap.MaxCashDeployed,
		snap.TotalValue,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}

	return nil
}

// GetRange retrieves a user's snapshots with date inside [startDate, endDate],
// ordered by capture time ascending. When includeIntraday is false only
// end-of-day rows are returned, which is what period return calculations use.
//
// The callback pattern streams rows to the caller without materializing the
// whole range; multi-year ranges stay cheap.
func (r *SnapshotRepository) GetRange(
	userID string,
	startDate, endDate time.Time,
	includeIntraday bool,
	callback func(snap model.Snapshot) error,
) error {
	query := `
		SELECT id, user_id, date, taken_at, intraday,
			stock_value, cash_proceeds, max_cash_deployed, total_value
		FROM snapshot
		WHERE user_id = ?
		AND date >= ?
		AND date <= ?
	`

	args := []any{userID, FormatDate(startDate), FormatDate(endDate)}

	if !includeIntraday {
		query += ` AND intraday = 0`
	}

	query += ` ORDER BY date ASC, taken_at ASC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return fmt.Errorf("failed to query snapshot table: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var snap model.Snapshot
		var dateStr, takenAtStr string

		err := rows.Scan(
			&snap.ID,
			&snap.UserID,
			&dateStr,
			&takenAtStr,
			&snap.Intraday,
			&snap.StockValue,
			&snap.CashProceeds,
			&snap.MaxCashDeployed,
			&snap.TotalValue,
		)
		if err != nil {
			return fmt.Errorf("failed to scan snapshot row: %w", err)
		}

		snap.Date, err = ParseTime(dateStr)
		if err != nil {
			return fmt.Errorf("failed to parse date: %w", err)
		}

		snap.TakenAt, err = ParseTime(takenAtStr)
		if err != nil {
			return fmt.Errorf("failed to parse taken_at: %w", err)
		}

		if err := callback(snap); err != nil {
			return err
		}
	}

	if err = rows.Err(); err != nil {
		return fmt.Errorf("error iterating snapshot rows: %w", err)
	}

	return nil
}

// ListRange collects GetRange results into a slice.
func (r *SnapshotRepository) ListRange(userID string, startDate, endDate time.Time, includeIntraday bool) ([]model.Snapshot, error) {
	snaps := []model.Snapshot{}
	err := r.GetRange(userID, startDate, endDate, includeIntraday, func(snap model.Snapshot) error {
		snaps = append(snaps, snap)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snaps, nil
}

// Exists reports whether an end-of-day snapshot exists for the user and date.
func (r *SnapshotRepository) Exists(userID string, date time.Time) (bool, error) {
	query := `
		SELECT 1
		FROM snapshot
		WHERE user_id = ?
		AND date = ?
		AND intraday = 0
	`

	var one int
	err := r.db.QueryRow(query, userID, FormatDate(date)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query snapshot existence: %w", err)
	}

	return true, nil
}

// GetEarliestDate finds the date of the user's first end-of-day snapshot.
// Returns time.Time{} (zero value) if the user has no snapshots.
func (r *SnapshotRepository) GetEarliestDate(userID string) time.Time {
	var dateStr sql.NullString

	query := `
		SELECT MIN(date)
		FROM snapshot
		WHERE user_id = ?
		AND intraday = 0
	`

	err := r.db.QueryRow(query, userID).Scan(&dateStr)
	if err != nil || !dateStr.Valid {
		return time.Time{}
	}

	date, err := ParseTime(dateStr.String)
	if err != nil {
		return time.Time{}
	}

	return date
}

// DeleteIntradayBefore removes intraday snapshots older than the given date.
// End-of-day rows are never touched; intraday points only serve short-period
// charts and are pruned by the nightly batch.
func (r *SnapshotRepository) DeleteIntradayBefore(ctx context.Context, date time.Time) (int64, error) {
	query := `
		DELETE FROM snapshot
		WHERE intraday = 1
		AND date < ?
	`

	result, err := r.db.ExecContext(ctx, query, FormatDate(date))
	if err != nil {
		return 0, fmt.Errorf("failed to prune intraday snapshots: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return n, nil
}
