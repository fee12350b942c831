package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/stockfolio/performance-backend/internal/apperrors"
	"github.com/stockfolio/performance-backend/internal/model"
)

// CacheRepository provides data access methods for the cached_period_result
// table, the persisted tier of the per-(user, period) result cache. Chart
// points and flags are stored as JSON text columns; everything here is
// re-derivable, so a lost row only costs a recompute.
type CacheRepository struct {
	db *sql.DB
}

// NewCacheRepository creates a new CacheRepository with the provided database connection.
func NewCacheRepository(db *sql.DB) *CacheRepository {
	return &CacheRepository{db: db}
}

// Get retrieves the cached result for a user/period combination.
// Returns apperrors.ErrCacheEntryNotFound when no row exists.
func (r *CacheRepository) Get(userID, period string) (model.CachedPeriodResult, error) {
	query := `
		SELECT id, user_id, period, portfolio_return_pct, benchmark_return_pct,
			chart_points, flags, generated_at
		FROM cached_period_result
		WHERE user_id = ?
		AND period = ?
	`

	row := r.db.QueryRow(query, userID, period)
	result, err := scanCachedResult(row.Scan)
	if err == sql.ErrNoRows {
		return model.CachedPeriodResult{}, apperrors.ErrCacheEntryNotFound
	}
	if err != nil {
		return model.CachedPeriodResult{}, err
	}

	return result, nil
}

// GetAllForPeriod retrieves every user's cached result for one period, in
// row insertion order. The leaderboard relies on that order for stable tie
// breaking.
func (r *CacheRepository) GetAllForPeriod(period string) ([]model.CachedPeriodResult, error) {
	query := `
		SELECT id, user_id, period, portfolio_return_pct, benchmark_return_pct,
			chart_points, flags, generated_at
		FROM cached_period_result
		WHERE period = ?
		ORDER BY rowid ASC
	`

	rows, err := r.db.Query(query, period)
	if err != nil {
		return nil, fmt.Errorf("failed to query cached_period_result table: %w", err)
	}
	defer rows.Close()

	results := []model.CachedPeriodResult{}

	for rows.Next() {
		result, err := scanCachedResult(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cached_period_result table: %w", err)
	}

	return results, nil
}

// Upsert writes one cached result, replacing any existing row for the same
// (user, period) pair. This is the isolated single-entry refresh path; a
// failure here must not affect any other write.
func (r *CacheRepository) Upsert(ctx context.Context, result model.CachedPeriodResult) error {
	query, args, err := buildCachedResultUpsert(result)
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert cached_period_result: %w", err)
	}

	return nil
}

// UpsertTx writes one cached result inside an existing transaction. The
// batch regeneration path uses this so all refreshed entries become visible
// atomically at commit.
func (r *CacheRepository) UpsertTx(ctx context.Context, tx *sql.Tx, result model.CachedPeriodResult) error {
	query, args, err := buildCachedResultUpsert(result)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert cached_period_result: %w", err)
	}

	return nil
}

// BeginTx starts a write transaction for batch regeneration commits.
func (r *CacheRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin cache batch: %w", err)
	}
	return tx, nil
}

func buildCachedResultUpsert(result model.CachedPeriodResult) (string, []any, error) {
	chartJSON, err := json.Marshal(result.ChartPoints)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal chart points: %w", err)
	}

	query := `
		INSERT INTO cached_period_result (id, user_id, period, portfolio_return_pct,
			benchmark_return_pct, chart_points, flags, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, period) DO UPDATE SET
			portfolio_return_pct = excluded.portfolio_return_pct,
			benchmark_return_pct = excluded.benchmark_return_pct,
			chart_points = excluded.chart_points,
			flags = excluded.flags,
			generated_at = excluded.generated_at
	`

	args := []any{
		result.ID,
		result.UserID,
		result.Period,
		result.PortfolioReturnPct,
		result.BenchmarkReturnPct,
		string(chartJSON),
		strings.Join(result.Flags, ","),
		result.GeneratedAt.UTC().Format(time.RFC3339),
	}

	return query, args, nil
}

func scanCachedResult(scan func(dest ...any) error) (model.CachedPeriodResult, error) {
	var result model.CachedPeriodResult
	var chartJSON, flagsStr, generatedAtStr string

	err := scan(
		&result.ID,
		&result.UserID,
		&result.Period,
		&result.PortfolioReturnPct,
		&result.BenchmarkReturnPct,
		&chartJSON,
		&flagsStr,
		&generatedAtStr,
	)
	if err == sql.ErrNoRows {
		return model.CachedPeriodResult{}, err
	}
	if err != nil {
		return model.CachedPeriodResult{}, fmt.Errorf("failed to scan cached_period_result row: %w", err)
	}

	if chartJSON != "" {
		if err := json.Unmarshal([]byte(chartJSON), &result.ChartPoints); err != nil {
			return model.CachedPeriodResult{}, fmt.Errorf("failed to unmarshal chart points: %w", err)
		}
	}

	if flagsStr != "" {
		result.Flags = strings.Split(flagsStr, ",")
	}

	result.GeneratedAt, err = ParseTime(generatedAtStr)
	if err != nil {
		return model.CachedPeriodResult{}, fmt.Errorf("failed to parse generated_at: %w", err)
	}

	return result, nil
}
