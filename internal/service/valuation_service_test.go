package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stockfolio/performance-backend/internal/model"
	"github.com/stockfolio/performance-backend/internal/testutil"
)

// TestValuationService_CurrentValue tests live portfolio valuation.
//
// WHY: the resolver chain is the degradation policy when the price feed
// fails. The portfolio total must survive feed outages by falling back to
// cached closes and finally purchase price, and must never count a position
// at a bogus non-positive price.
func TestValuationService_CurrentValue(t *testing.T) {
	t.Run("prices holdings from live feed", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		source := testutil.NewFakePriceSource()
		source.Current["AAPL"] = 200
		source.Current["MSFT"] = 400
		svc := testutil.NewTestValuationService(t, db, source)

		testutil.InsertHolding(t, db, "user-1", "AAPL", 10, 150)
		testutil.InsertHolding(t, db, "user-1", "MSFT", 2, 300)

		// Execute
		result, err := svc.CalculateValue(context.Background(), "user-1", time.Time{})

		// Assert
		if err != nil {
			t.Fatalf("CalculateValue() returned unexpected error: %v", err)
		}
		if result.StockValue != 2800 {
			t.Errorf("Expected stock value 2800, got %f", result.StockValue)
		}
		if len(result.ExcludedTickers) != 0 {
			t.Errorf("Expected no exclusions, got %v", result.ExcludedTickers)
		}
	})

	t.Run("falls back to cached close when feed fails", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		source := testutil.NewFakePriceSource() // no live quotes
		svc := testutil.NewTestValuationService(t, db, source)

		testutil.InsertHolding(t, db, "user-1", "AAPL", 10, 150)
		testutil.InsertPrice(t, db, "AAPL", "2024-01-05", 180)

		result, err := svc.CalculateValue(context.Background(), "user-1", time.Time{})
		if err != nil {
			t.Fatalf("CalculateValue() returned unexpected error: %v", err)
		}

		if result.StockValue != 1800 {
			t.Errorf("Expected stock value 1800 from cached close, got %f", result.StockValue)
		}
	})

	t.Run("falls back to purchase price as last resort", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		source := testutil.NewFakePriceSource()
		svc := testutil.NewTestValuationService(t, db, source)

		// No live quote, no cached close
		testutil.InsertHolding(t, db, "user-1", "AAPL", 10, 150)

		result, err := svc.CalculateValue(context.Background(), "user-1", time.Time{})
		if err != nil {
			t.Fatalf("CalculateValue() returned unexpected error: %v", err)
		}

		if result.StockValue != 1500 {
			t.Errorf("Expected stock value 1500 from purchase price, got %f", result.StockValue)
		}
	})

	t.Run("non-positive live price falls through the chain", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		source := testutil.NewFakePriceSource()
		source.Current["AAPL"] = -1
		svc := testutil.NewTestValuationService(t, db, source)

		testutil.InsertHolding(t, db, "user-1", "AAPL", 10, 150)
		testutil.InsertPrice(t, db, "AAPL", "2024-01-05", 180)

		result, err := svc.CalculateValue(context.Background(), "user-1", time.Time{})
		if err != nil {
			t.Fatalf("CalculateValue() returned unexpected error: %v", err)
		}

		if result.StockValue != 1800 {
			t.Errorf("Expected negative quote to be rejected, got stock value %f", result.StockValue)
		}
	})

	t.Run("cash proceeds are included in total", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		source := testutil.NewFakePriceSource()
		source.Current["AAPL"] = 100
		svc := testutil.NewTestValuationService(t, db, source)

		testutil.InsertHolding(t, db, "user-1", "AAPL", 1, 100)
		if _, err := db.Exec(
			`INSERT INTO cash_state (user_id, max_cash_deployed, cash_proceeds, updated_at)
			 VALUES (?, ?, ?, ?)`,
			"user-1", 500, 50, "2024-01-01T00:00:00Z"); err != nil {
			t.Fatalf("Failed to seed cash state: %v", err)
		}

		result, err := svc.CalculateValue(context.Background(), "user-1", time.Time{})
		if err != nil {
			t.Fatalf("CalculateValue() returned unexpected error: %v", err)
		}

		if result.TotalValue != 150 {
			t.Errorf("Expected total 150 (100 stock + 50 proceeds), got %f", result.TotalValue)
		}
		if result.MaxCashDeployed != 500 {
			t.Errorf("Expected max_cash_deployed 500, got %f", result.MaxCashDeployed)
		}
	})
}

// TestValuationService_HistoricalValue tests valuation at a past date.
//
// WHY: snapshots for past dates are rebuilt from ledger replay plus cached
// closes. Weekend dates must substitute the prior close and dates before the
// user existed must value to zero, or backfills fabricate history.
func TestValuationService_HistoricalValue(t *testing.T) {
	t.Run("values replayed positions at historical close", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		source := testutil.NewFakePriceSource()
		svc := testutil.NewTestValuationService(t, db, source)

		testutil.NewTransaction("user-1").
			WithQuantity(10).WithPrice(100).
			WithTimestamp(testutil.Day(t, "2024-01-10")).
			Build(t, db)
		testutil.InsertPrice(t, db, "AAPL", "2024-02-01", 120)

		result, err := svc.CalculateValue(context.Background(), "user-1", testutil.Day(t, "2024-02-01"))
		if err != nil {
			t.Fatalf("CalculateValue() returned unexpected error: %v", err)
		}

		if result.StockValue != 1200 {
			t.Errorf("Expected stock value 1200, got %f", result.StockValue)
		}
		if result.MaxCashDeployed != 1000 {
			t.Errorf("Expected max_cash_deployed 1000, got %f", result.MaxCashDeployed)
		}
	})

	t.Run("weekend date substitutes nearest earlier close", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		source := testutil.NewFakePriceSource()
		svc := testutil.NewTestValuationService(t, db, source)

		testutil.NewTransaction("user-1").
			WithQuantity(10).WithPrice(100).
			WithTimestamp(testutil.Day(t, "2024-01-10")).
			Build(t, db)
		// Friday close; the requested Saturday has no row.
		testutil.InsertPrice(t, db, "AAPL", "2024-02-02", 110)

		result, err := svc.CalculateValue(context.Background(), "user-1", testutil.Day(t, "2024-02-03"))
		if err != nil {
			t.Fatalf("CalculateValue() returned unexpected error: %v", err)
		}

		if result.StockValue != 1100 {
			t.Errorf("Expected Friday close to be used, got stock value %f", result.StockValue)
		}
	})

	t.Run("date before first transaction values to zero", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		source := testutil.NewFakePriceSource()
		svc := testutil.NewTestValuationService(t, db, source)

		testutil.NewTransaction("user-1").
			WithQuantity(10).WithPrice(100).
			WithTimestamp(testutil.Day(t, "2024-06-01")).
			Build(t, db)

		result, err := svc.CalculateValue(context.Background(), "user-1", testutil.Day(t, "2024-01-01"))
		if err != nil {
			t.Fatalf("CalculateValue() returned unexpected error: %v", err)
		}

		if result.TotalValue != 0 {
			t.Errorf("Expected zero value before first transaction, got %f", result.TotalValue)
		}
	})

	t.Run("missing history triggers one bulk fetch and caches it", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		source := testutil.NewFakePriceSource()
		source.History["AAPL"] = map[string]float64{
			"2024-01-15": 95,
			"2024-01-16": 98,
		}
		svc := testutil.NewTestValuationService(t, db, source)

		testutil.NewTransaction("user-1").
			WithQuantity(10).WithPrice(100).
			WithTimestamp(testutil.Day(t, "2024-01-10")).
			Build(t, db)

		result, err := svc.CalculateValue(context.Background(), "user-1", testutil.Day(t, "2024-01-16"))
		if err != nil {
			t.Fatalf("CalculateValue() returned unexpected error: %v", err)
		}

		if result.StockValue != 980 {
			t.Errorf("Expected stock value 980 from fetched history, got %f", result.StockValue)
		}
		if source.HistoryCalls != 1 {
			t.Errorf("Expected exactly 1 history fetch, got %d", source.HistoryCalls)
		}

		// Second valuation hits the cache, not the feed.
		if _, err := svc.CalculateValue(context.Background(), "user-1", testutil.Day(t, "2024-01-15")); err != nil {
			t.Fatalf("CalculateValue() returned unexpected error: %v", err)
		}
		if source.HistoryCalls != 1 {
			t.Errorf("Expected cached closes to be reused, got %d fetches", source.HistoryCalls)
		}
	})

	t.Run("unpriceable ticker is excluded and reported", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		source := testutil.NewFakePriceSource()
		svc := testutil.NewTestValuationService(t, db, source)

		testutil.NewTransaction("user-1").
			WithTicker("GHOST").
			WithQuantity(10).WithPrice(100).
			WithTimestamp(testutil.Day(t, "2024-01-10")).
			Build(t, db)
		testutil.NewTransaction("user-1").
			WithTicker("AAPL").
			WithQuantity(1).WithPrice(50).
			WithTimestamp(testutil.Day(t, "2024-01-10")).
			Build(t, db)
		testutil.InsertPrice(t, db, "AAPL", "2024-02-01", 60)

		result, err := svc.CalculateValue(context.Background(), "user-1", testutil.Day(t, "2024-02-01"))
		if err != nil {
			t.Fatalf("CalculateValue() returned unexpected error: %v", err)
		}

		if result.StockValue != 60 {
			t.Errorf("Expected only priceable position in value, got %f", result.StockValue)
		}
		if len(result.ExcludedTickers) != 1 || result.ExcludedTickers[0] != "GHOST" {
			t.Errorf("Expected GHOST excluded, got %v", result.ExcludedTickers)
		}
		if !result.HasFlag(model.FlagUnpricedHoldings) {
			t.Errorf("Expected unpriced_holdings flag, got %v", result.Flags)
		}
	})
}
