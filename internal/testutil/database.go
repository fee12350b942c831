package testutil

import (
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"

	_ "modernc.org/sqlite" // Test Package
)

// testDBCounter gives each test database a unique name so shared-cache
// in-memory databases are isolated between tests.
var testDBCounter atomic.Int64

// SetupTestDB creates an in-memory SQLite database for testing.
// The database is automatically cleaned up when the test completes.
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    db := testutil.SetupTestDB(t)
//	    // db is ready to use with schema created
//	}
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// In-memory database (destroyed when the last connection closes).
	// cache=shared with a unique name ensures every connection in the
	// database/sql pool sees the same in-memory database.
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", testDBCounter.Add(1))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	// Configure SQLite for testing
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA timezone = 'UTC'",
		"PRAGMA journal_mode = MEMORY", // Faster for tests
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			t.Fatalf("Failed to set pragma: %v", err)
		}
	}

	// Create schema
	if err := createTestSchema(db); err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	// Cleanup when test ends
	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// createTestSchema creates all database tables for testing.
// Schema is synchronized with the embedded migrations.
func createTestSchema(db *sql.DB) error {
	schema := `
		-- User table
		CREATE TABLE user (
			id TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		-- Security reference data
		CREATE TABLE security (
			ticker TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT ''
		);

		-- Transaction ledger (append-only source of truth)
		CREATE TABLE ledger_transaction (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			ticker TEXT NOT NULL,
			quantity REAL NOT NULL,
			price REAL NOT NULL,
			type TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE INDEX idx_ledger_transaction_user_ts ON ledger_transaction (user_id, timestamp);

		-- Denormalized cash accumulators
		CREATE TABLE cash_state (
			user_id TEXT PRIMARY KEY,
			max_cash_deployed REAL NOT NULL DEFAULT 0,
			cash_proceeds REAL NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL
		);

		-- Denormalized positions
		CREATE TABLE holding (
			user_id TEXT NOT NULL,
			ticker TEXT NOT NULL,
			quantity REAL NOT NULL,
			avg_purchase_price REAL NOT NULL,
			PRIMARY KEY (user_id, ticker)
		);

		-- Point-in-time valuations
		CREATE TABLE snapshot (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			date TEXT NOT NULL,
			taken_at TEXT NOT NULL,
			intraday INTEGER NOT NULL DEFAULT 0,
			stock_value REAL NOT NULL,
			cash_proceeds REAL NOT NULL,
			max_cash_deployed REAL NOT NULL,
			total_value REAL NOT NULL,
			UNIQUE (user_id, date, intraday)
		);
		CREATE INDEX idx_snapshot_user_date ON snapshot (user_id, date);

		-- Persisted daily closes
		CREATE TABLE price_cache (
			id TEXT PRIMARY KEY,
			ticker TEXT NOT NULL,
			date TEXT NOT NULL,
			price REAL NOT NULL,
			UNIQUE (ticker, date)
		);
		CREATE INDEX idx_price_cache_ticker_date ON price_cache (ticker, date);

		-- Cached per-period results
		CREATE TABLE cached_period_result (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			period TEXT NOT NULL,
			portfolio_return_pct REAL NOT NULL,
			benchmark_return_pct REAL NOT NULL,
			chart_points TEXT NOT NULL DEFAULT '[]',
			flags TEXT NOT NULL DEFAULT '',
			generated_at TEXT NOT NULL,
			UNIQUE (user_id, period)
		);

		-- External provider credentials
		CREATE TABLE provider_config (
			id TEXT PRIMARY KEY,
			api_token TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`

	_, err := db.Exec(schema)
	return err
}
