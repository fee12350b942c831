package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stockfolio/performance-backend/internal/repository"
	"github.com/stockfolio/performance-backend/internal/service"
)

// FakePriceSource is an in-memory stand-in for the external price feed.
// Current holds live quotes; History holds full daily close history per
// ticker keyed by "2006-01-02". Err, when set, is returned by every call.
type FakePriceSource struct {
	Current map[string]float64
	History map[string]map[string]float64
	Err     error

	CurrentCalls int
	HistoryCalls int
}

// NewFakePriceSource creates an empty FakePriceSource.
func NewFakePriceSource() *FakePriceSource {
	return &FakePriceSource{
		Current: make(map[string]float64),
		History: make(map[string]map[string]float64),
	}
}

// GetCurrentPrice implements service.PriceSource.
func (f *FakePriceSource) GetCurrentPrice(_ context.Context, ticker string) (float64, error) {
	f.CurrentCalls++
	if f.Err != nil {
		return 0, f.Err
	}
	price, ok := f.Current[ticker]
	if !ok {
		return 0, sql.ErrNoRows
	}
	return price, nil
}

// GetHistoricalPrices implements service.PriceSource.
func (f *FakePriceSource) GetHistoricalPrices(_ context.Context, ticker string, _ time.Time) (map[string]float64, error) {
	f.HistoryCalls++
	if f.Err != nil {
		return nil, f.Err
	}
	return f.History[ticker], nil
}

// NewTestLedgerService wires a LedgerService against the test database.
func NewTestLedgerService(t *testing.T, db *sql.DB) *service.LedgerService {
	t.Helper()

	return service.NewLedgerService(
		repository.NewTransactionRepository(db),
		repository.NewCashStateRepository(db),
		repository.NewHoldingRepository(db),
	)
}

// NewTestValuationService wires a ValuationService against the test database
// and the given fake feed.
func NewTestValuationService(t *testing.T, db *sql.DB, source *FakePriceSource) *service.ValuationService {
	t.Helper()

	return service.NewValuationService(
		NewTestLedgerService(t, db),
		repository.NewPriceRepository(db),
		source,
	)
}

// NewTestReturnService wires a ReturnService against the test database.
func NewTestReturnService(t *testing.T, db *sql.DB) *service.ReturnService {
	t.Helper()

	return service.NewReturnService(repository.NewSnapshotRepository(db))
}

// NewTestBenchmarkService wires a BenchmarkService tracking the given ticker.
func NewTestBenchmarkService(t *testing.T, db *sql.DB, source *FakePriceSource, ticker string) *service.BenchmarkService {
	t.Helper()

	return service.NewBenchmarkService(repository.NewPriceRepository(db), source, ticker)
}

// NewTestSnapshotService wires a SnapshotService against the test database.
func NewTestSnapshotService(t *testing.T, db *sql.DB, source *FakePriceSource) *service.SnapshotService {
	t.Helper()

	return service.NewSnapshotService(
		repository.NewSnapshotRepository(db),
		NewTestValuationService(t, db, source),
		NewTestLedgerService(t, db),
	)
}

// NewTestCacheService wires a CacheService with the given benchmark ticker.
func NewTestCacheService(t *testing.T, db *sql.DB, source *FakePriceSource, benchmarkTicker string) *service.CacheService {
	t.Helper()

	return service.NewCacheService(
		repository.NewCacheRepository(db),
		repository.NewSnapshotRepository(db),
		NewTestReturnService(t, db),
		NewTestBenchmarkService(t, db, source, benchmarkTicker),
		NewTestLedgerService(t, db),
	)
}

// NewTestLeaderboardService wires a LeaderboardService against the test database.
func NewTestLeaderboardService(t *testing.T, db *sql.DB) *service.LeaderboardService {
	t.Helper()

	return service.NewLeaderboardService(
		repository.NewCacheRepository(db),
		repository.NewHoldingRepository(db),
		repository.NewSecurityRepository(db),
		repository.NewUserRepository(db),
	)
}
