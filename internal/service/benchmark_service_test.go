package service_test

import (
	"context"
	"testing"

	"github.com/stockfolio/performance-backend/internal/model"
	"github.com/stockfolio/performance-backend/internal/testutil"
)

// TestBenchmarkService_ComputeReturn tests index return calculation.
//
// WHY: the benchmark column is the user's reference point for every period.
// Weekend window edges must snap to trading days, and an index data gap must
// degrade to a flagged 0% rather than break the whole cached result.
func TestBenchmarkService_ComputeReturn(t *testing.T) {
	t.Run("computes simple percent change", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		source := testutil.NewFakePriceSource()
		svc := testutil.NewTestBenchmarkService(t, db, source, "^GSPC")

		testutil.InsertPrice(t, db, "^GSPC", "2024-01-02", 4000)
		testutil.InsertPrice(t, db, "^GSPC", "2024-01-31", 4400)

		// Execute: window starts on a holiday, ends mid-week
		pct, flags := svc.ComputeReturn(context.Background(),
			testutil.Day(t, "2024-01-01"), testutil.Day(t, "2024-01-31"))

		// Assert
		if len(flags) != 0 {
			t.Errorf("Expected no flags, got %v", flags)
		}
		if pct != 10 {
			t.Errorf("Expected 10%%, got %f%%", pct)
		}
	})

	t.Run("weekend end snaps to last trading day", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		source := testutil.NewFakePriceSource()
		svc := testutil.NewTestBenchmarkService(t, db, source, "^GSPC")

		testutil.InsertPrice(t, db, "^GSPC", "2024-01-02", 4000)
		testutil.InsertPrice(t, db, "^GSPC", "2024-02-02", 4200)

		pct, flags := svc.ComputeReturn(context.Background(),
			testutil.Day(t, "2024-01-01"), testutil.Day(t, "2024-02-04"))

		if len(flags) != 0 {
			t.Errorf("Expected no flags, got %v", flags)
		}
		if pct != 5 {
			t.Errorf("Expected 5%%, got %f%%", pct)
		}
	})

	t.Run("data gap yields flagged zero", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		source := testutil.NewFakePriceSource() // no data anywhere
		svc := testutil.NewTestBenchmarkService(t, db, source, "^GSPC")

		pct, flags := svc.ComputeReturn(context.Background(),
			testutil.Day(t, "2024-01-01"), testutil.Day(t, "2024-01-31"))

		if pct != 0 {
			t.Errorf("Expected 0%% on gap, got %f%%", pct)
		}
		if len(flags) != 1 || flags[0] != model.FlagBenchmarkGap {
			t.Errorf("Expected benchmark_gap flag, got %v", flags)
		}
	})

	t.Run("empty cache is backfilled from the feed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		source := testutil.NewFakePriceSource()
		source.History["^GSPC"] = map[string]float64{
			"2024-01-02": 4000,
			"2024-01-31": 4100,
		}
		svc := testutil.NewTestBenchmarkService(t, db, source, "^GSPC")

		pct, flags := svc.ComputeReturn(context.Background(),
			testutil.Day(t, "2024-01-01"), testutil.Day(t, "2024-01-31"))

		if len(flags) != 0 {
			t.Errorf("Expected no flags after backfill, got %v", flags)
		}
		if pct != 2.5 {
			t.Errorf("Expected 2.5%%, got %f%%", pct)
		}
		if source.HistoryCalls != 1 {
			t.Errorf("Expected one history fetch, got %d", source.HistoryCalls)
		}
	})
}
