package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stockfolio/performance-backend/internal/apperrors"
	"github.com/stockfolio/performance-backend/internal/model"
)

// PriceRepository provides data access methods for the price_cache table,
// the persisted tier of the price lookup chain. External fetches bulk-
// populate it so rate-limited provider calls amortize over whole ranges.
type PriceRepository struct {
	db *sql.DB
}

// NewPriceRepository creates a new PriceRepository with the provided database connection.
func NewPriceRepository(db *sql.DB) *PriceRepository {
	return &PriceRepository{db: db}
}

// Get retrieves the closing price for an exact ticker/date combination.
// Returns apperrors.ErrPriceNotFound when no row exists.
func (r *PriceRepository) Get(ticker string, date time.Time) (float64, error) {
	query := `
		SELECT price
		FROM price_cache
		WHERE ticker = ?
		AND date = ?
	`

	var price float64
	err := r.db.QueryRow(query, ticker, FormatDate(date)).Scan(&price)
	if err == sql.ErrNoRows {
		return 0, apperrors.ErrPriceNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query price_cache: %w", err)
	}

	return price, nil
}

// GetNearestOnOrBefore retrieves the most recent close at or before the
// given date. Missing exact dates (weekends, holidays) resolve to the
// nearest earlier trading day. Returns apperrors.ErrPriceNotFound when the
// ticker has no data at or before the date.
func (r *PriceRepository) GetNearestOnOrBefore(ticker string, date time.Time) (model.PricePoint, error) {
	query := `
		SELECT id, ticker, date, price
		FROM price_cache
		WHERE ticker = ?
		AND date <= ?
		ORDER BY date DESC
		LIMIT 1
	`

	var pp model.PricePoint
	var dateStr string

	err := r.db.QueryRow(query, ticker, FormatDate(date)).Scan(&pp.ID, &pp.Ticker, &dateStr, &pp.Price)
	if err == sql.ErrNoRows {
		return model.PricePoint{}, apperrors.ErrPriceNotFound
	}
	if err != nil {
		return model.PricePoint{}, fmt.Errorf("failed to query price_cache: %w", err)
	}

	pp.Date, err = ParseTime(dateStr)
	if err != nil {
		return model.PricePoint{}, fmt.Errorf("failed to parse date: %w", err)
	}

	return pp, nil
}

// GetNearestOnOrAfter retrieves the earliest close at or after the given
// date. Used for the start endpoint of benchmark ranges.
func (r *PriceRepository) GetNearestOnOrAfter(ticker string, date time.Time) (model.PricePoint, error) {
	query := `
		SELECT id, ticker, date, price
		FROM price_cache
		WHERE ticker = ?
		AND date >= ?
		ORDER BY date ASC
		LIMIT 1
	`

	var pp model.PricePoint
	var dateStr string

	err := r.db.QueryRow(query, ticker, FormatDate(date)).Scan(&pp.ID, &pp.Ticker, &dateStr, &pp.Price)
	if err == sql.ErrNoRows {
		return model.PricePoint{}, apperrors.ErrPriceNotFound
	}
	if err != nil {
		return model.PricePoint{}, fmt.Errorf("failed to query price_cache: %w", err)
	}

	pp.Date, err = ParseTime(dateStr)
	if err != nil {
		return model.PricePoint{}, fmt.Errorf("failed to parse date: %w", err)
	}

	return pp, nil
}

// GetLatest retrieves the most recent close for a ticker regardless of date.
func (r *PriceRepository) GetLatest(ticker string) (model.PricePoint, error) {
	return r.GetNearestOnOrBefore(ticker, time.Now().UTC())
}

// GetRange retrieves closes for the given tickers within [startDate, endDate],
// grouped by ticker and sorted by date ascending. The grouped map lets the
// valuation engine price a whole reconstruction from one query.
func (r *PriceRepository) GetRange(tickers []string, startDate, endDate time.Time) (map[string][]model.PricePoint, error) {
	if len(tickers) == 0 {
		return make(map[string][]model.PricePoint), nil
	}

	if startDate.After(endDate) {
		return nil, fmt.Errorf("startDate (%s) must be before or equal to endDate (%s)",
			FormatDate(startDate), FormatDate(endDate))
	}

	placeholders := make([]string, len(tickers))
	for i := range placeholders {
		placeholders[i] = "?"
	}

	query := `
		SELECT id, ticker, date, price
		FROM price_cache
		WHERE ticker IN (` + strings.Join(placeholders, ",") + `)
		AND date >= ?
		AND date <= ?
		ORDER BY ticker ASC, date ASC
	`

	args := make([]any, 0, len(tickers)+2)
	for _, t := range tickers {
		args = append(args, t)
	}
	args = append(args, FormatDate(startDate))
	args = append(args, FormatDate(endDate))

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query price_cache range: %w", err)
	}
	defer rows.Close()

	pricesByTicker := make(map[string][]model.PricePoint)

	for rows.Next() {
		var pp model.PricePoint
		var dateStr string

		err := rows.Scan(&pp.ID, &pp.Ticker, &dateStr, &pp.Price)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price_cache results: %w", err)
		}

		pp.Date, err = ParseTime(dateStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse date: %w", err)
		}

		pricesByTicker[pp.Ticker] = append(pricesByTicker[pp.Ticker], pp)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price_cache: %w", err)
	}

	return pricesByTicker, nil
}

// BulkUpsert writes a batch of closes for one ticker, replacing existing
// rows for the same dates. Called after an external fetch with the provider's
// whole available range, not just the requested date.
func (r *PriceRepository) BulkUpsert(ctx context.Context, ticker string, prices map[string]float64) error {
	if len(prices) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin price upsert: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO price_cache (id, ticker, date, price)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(ticker, date) DO UPDATE SET
			price = excluded.price
	`

	for date, price := range prices {
		if _, err := tx.ExecContext(ctx, query, uuid.New().String(), ticker, date, price); err != nil {
			return fmt.Errorf("failed to upsert price for %s on %s: %w", ticker, date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit price upsert: %w", err)
	}

	return nil
}

// HasAny reports whether the cache holds any close for the ticker.
func (r *PriceRepository) HasAny(ticker string) (bool, error) {
	var one int
	err := r.db.QueryRow(`SELECT 1 FROM price_cache WHERE ticker = ? LIMIT 1`, ticker).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query price_cache: %w", err)
	}
	return true, nil
}
