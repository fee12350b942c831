package testutil

import (
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/stockfolio/performance-backend/internal/model"
)

// MakeID generates a random UUID string for test rows.
func MakeID() string {
	return uuid.New().String()
}

// Day parses a "2006-01-02" date; bad literals fail the calling test.
func Day(t *testing.T, s string) time.Time {
	t.Helper()
	day, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("Failed to parse test date %q: %v", s, err)
	}
	return day
}

// UserBuilder provides a fluent interface for creating test users.
//
// Example usage:
//
//	user := testutil.NewUser().WithDisplayName("alice").Build(t, db)
type UserBuilder struct {
	ID          string
	DisplayName string
	CreatedAt   time.Time
}

// NewUser creates a UserBuilder with sensible defaults.
func NewUser() *UserBuilder {
	return &UserBuilder{
		ID:          MakeID(),
		DisplayName: "Test User",
		CreatedAt:   time.Now().UTC(),
	}
}

// WithID sets a custom ID.
func (b *UserBuilder) WithID(id string) *UserBuilder {
	b.ID = id
	return b
}

// WithDisplayName sets a custom display name.
func (b *UserBuilder) WithDisplayName(name string) *UserBuilder {
	b.DisplayName = name
	return b
}

// Build creates the user in the database and returns it.
func (b *UserBuilder) Build(t *testing.T, db *sql.DB) model.User {
	t.Helper()

	query := `
		INSERT INTO user (id, display_name, created_at)
		VALUES (?, ?, ?)
	`

	_, err := db.Exec(query, b.ID, b.DisplayName, b.CreatedAt.Format(time.RFC3339))
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return model.User{
		ID:          b.ID,
		DisplayName: b.DisplayName,
		CreatedAt:   b.CreatedAt,
	}
}

// SecurityBuilder provides a fluent interface for creating test securities.
type SecurityBuilder struct {
	Ticker   string
	Name     string
	Category string
}

// NewSecurity creates a SecurityBuilder with sensible defaults.
func NewSecurity(ticker string) *SecurityBuilder {
	return &SecurityBuilder{
		Ticker:   ticker,
		Name:     ticker + " Inc.",
		Category: "stock",
	}
}

// WithCategory sets a custom category.
func (b *SecurityBuilder) WithCategory(category string) *SecurityBuilder {
	b.Category = category
	return b
}

// Build creates the security in the database and returns it.
func (b *SecurityBuilder) Build(t *testing.T, db *sql.DB) model.Security {
	t.Helper()

	query := `
		INSERT INTO security (ticker, name, category)
		VALUES (?, ?, ?)
	`

	_, err := db.Exec(query, b.Ticker, b.Name, b.Category)
	if err != nil {
		t.Fatalf("Failed to create test security: %v", err)
	}

	return model.Security{Ticker: b.Ticker, Name: b.Name, Category: b.Category}
}

// TransactionBuilder provides a fluent interface for creating test ledger rows
// directly, bypassing service validation. Use the ledger service in tests that
// exercise the append path itself.
type TransactionBuilder struct {
	ID        string
	UserID    string
	Ticker    string
	Quantity  float64
	Price     float64
	Type      string
	Timestamp time.Time
}

// NewTransaction creates a TransactionBuilder with sensible defaults.
func NewTransaction(userID string) *TransactionBuilder {
	return &TransactionBuilder{
		ID:        MakeID(),
		UserID:    userID,
		Ticker:    "AAPL",
		Quantity:  1,
		Price:     100,
		Type:      model.TransactionBuy,
		Timestamp: time.Now().UTC(),
	}
}

// WithTicker sets a custom ticker.
func (b *TransactionBuilder) WithTicker(ticker string) *TransactionBuilder {
	b.Ticker = ticker
	return b
}

// WithQuantity sets a custom quantity.
func (b *TransactionBuilder) WithQuantity(quantity float64) *TransactionBuilder {
	b.Quantity = quantity
	return b
}

// WithPrice sets a custom price.
func (b *TransactionBuilder) WithPrice(price float64) *TransactionBuilder {
	b.Price = price
	return b
}

// WithType sets a custom transaction type.
func (b *TransactionBuilder) WithType(txType string) *TransactionBuilder {
	b.Type = txType
	return b
}

// WithTimestamp sets a custom timestamp.
func (b *TransactionBuilder) WithTimestamp(ts time.Time) *TransactionBuilder {
	b.Timestamp = ts
	return b
}

// Sell marks the transaction as a sell.
func (b *TransactionBuilder) Sell() *TransactionBuilder {
	b.Type = model.TransactionSell
	return b
}

// Build creates the transaction in the database and returns it.
func (b *TransactionBuilder) Build(t *testing.T, db *sql.DB) model.TransactionRecord {
	t.Helper()

	query := `
		INSERT INTO ledger_transaction (id, user_id, ticker, quantity, price, type, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now().UTC()
	_, err := db.Exec(query,
		b.ID, b.UserID, b.Ticker, b.Quantity, b.Price, b.Type,
		b.Timestamp.UTC().Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		t.Fatalf("Failed to create test transaction: %v", err)
	}

	return model.TransactionRecord{
		ID:        b.ID,
		UserID:    b.UserID,
		Ticker:    b.Ticker,
		Quantity:  b.Quantity,
		Price:     b.Price,
		Type:      b.Type,
		Timestamp: b.Timestamp,
		CreatedAt: now,
	}
}

// SnapshotBuilder provides a fluent interface for creating test snapshots.
//
// Example usage:
//
//	testutil.NewSnapshot(userID, "2024-01-01").
//	    WithValues(1000, 0, 1000).
//	    Build(t, db)
type SnapshotBuilder struct {
	ID              string
	UserID          string
	Date            string
	TakenAt         time.Time
	Intraday        bool
	StockValue      float64
	CashProceeds    float64
	MaxCashDeployed float64
}

// NewSnapshot creates a SnapshotBuilder for the given user and date.
func NewSnapshot(userID, date string) *SnapshotBuilder {
	return &SnapshotBuilder{
		ID:      MakeID(),
		UserID:  userID,
		Date:    date,
		TakenAt: time.Now().UTC(),
	}
}

// WithValues sets stock value, cash proceeds and max cash deployed at once.
func (b *SnapshotBuilder) WithValues(stock, proceeds, deployed float64) *SnapshotBuilder {
	b.StockValue = stock
	b.CashProceeds = proceeds
	b.MaxCashDeployed = deployed
	return b
}

// Intra marks the snapshot as intraday.
func (b *SnapshotBuilder) Intra() *SnapshotBuilder {
	b.Intraday = true
	return b
}

// Build creates the snapshot in the database and returns it.
func (b *SnapshotBuilder) Build(t *testing.T, db *sql.DB) model.Snapshot {
	t.Helper()

	query := `
		INSERT INTO snapshot (id, user_id, date, taken_at, intraday,
			stock_value, cash_proceeds, max_cash_deployed, total_value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	total := b.StockValue + b.CashProceeds
	_, err := db.Exec(query,
		b.ID, b.UserID, b.Date, b.TakenAt.Format(time.RFC3339), b.Intraday,
		b.StockValue, b.CashProceeds, b.MaxCashDeployed, total)
	if err != nil {
		t.Fatalf("Failed to create test snapshot: %v", err)
	}

	return model.Snapshot{
		ID:              b.ID,
		UserID:          b.UserID,
		Date:            Day(t, b.Date),
		TakenAt:         b.TakenAt,
		Intraday:        b.Intraday,
		StockValue:      b.StockValue,
		CashProceeds:    b.CashProceeds,
		MaxCashDeployed: b.MaxCashDeployed,
		TotalValue:      total,
	}
}

// InsertPrice stores one daily close in the price cache.
func InsertPrice(t *testing.T, db *sql.DB, ticker, date string, price float64) {
	t.Helper()

	query := `
		INSERT INTO price_cache (id, ticker, date, price)
		VALUES (?, ?, ?, ?)
	`

	if _, err := db.Exec(query, MakeID(), ticker, date, price); err != nil {
		t.Fatalf("Failed to create test price: %v", err)
	}
}

// CachedResultBuilder provides a fluent interface for creating cached period
// result rows, typically with a back-dated generated_at to exercise staleness.
type CachedResultBuilder struct {
	ID          string
	UserID      string
	Period      string
	ReturnPct   float64
	BenchPct    float64
	Flags       []string
	GeneratedAt time.Time
}

// NewCachedResult creates a CachedResultBuilder with sensible defaults.
func NewCachedResult(userID, period string) *CachedResultBuilder {
	return &CachedResultBuilder{
		ID:          MakeID(),
		UserID:      userID,
		Period:      period,
		GeneratedAt: time.Now().UTC(),
	}
}

// WithReturn sets the portfolio return percentage.
func (b *CachedResultBuilder) WithReturn(pct float64) *CachedResultBuilder {
	b.ReturnPct = pct
	return b
}

// WithBenchmark sets the benchmark return percentage.
func (b *CachedResultBuilder) WithBenchmark(pct float64) *CachedResultBuilder {
	b.BenchPct = pct
	return b
}

// WithFlags sets the result flags.
func (b *CachedResultBuilder) WithFlags(flags ...string) *CachedResultBuilder {
	b.Flags = flags
	return b
}

// GeneratedAgo back-dates generated_at by the given duration.
func (b *CachedResultBuilder) GeneratedAgo(age time.Duration) *CachedResultBuilder {
	b.GeneratedAt = time.Now().UTC().Add(-age)
	return b
}

// Build creates the cached result in the database and returns it.
func (b *CachedResultBuilder) Build(t *testing.T, db *sql.DB) model.CachedPeriodResult {
	t.Helper()

	chartJSON, err := json.Marshal([]model.ChartPoint{})
	if err != nil {
		t.Fatalf("Failed to marshal chart points: %v", err)
	}

	query := `
		INSERT INTO cached_period_result (id, user_id, period, portfolio_return_pct,
			benchmark_return_pct, chart_points, flags, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = db.Exec(query,
		b.ID, b.UserID, b.Period, b.ReturnPct, b.BenchPct,
		string(chartJSON), strings.Join(b.Flags, ","), b.GeneratedAt.Format(time.RFC3339))
	if err != nil {
		t.Fatalf("Failed to create test cached result: %v", err)
	}

	return model.CachedPeriodResult{
		ID:                 b.ID,
		UserID:             b.UserID,
		Period:             b.Period,
		PortfolioReturnPct: b.ReturnPct,
		BenchmarkReturnPct: b.BenchPct,
		Flags:              b.Flags,
		GeneratedAt:        b.GeneratedAt,
	}
}

// InsertHolding stores one denormalized holding row.
func InsertHolding(t *testing.T, db *sql.DB, userID, ticker string, quantity, avgPrice float64) {
	t.Helper()

	query := `
		INSERT INTO holding (user_id, ticker, quantity, avg_purchase_price)
		VALUES (?, ?, ?, ?)
	`

	if _, err := db.Exec(query, userID, ticker, quantity, avgPrice); err != nil {
		t.Fatalf("Failed to create test holding: %v", err)
	}
}
