package model

import "time"

// Result flags carried on ReturnResult and CachedPeriodResult.
// Flags mark degraded-but-valid results; they are never errors.
const (
	// FlagInsufficientData marks a period with fewer than two snapshots.
	// The return defaults to 0% rather than failing.
	FlagInsufficientData = "insufficient_data"

	// FlagZeroBaseline marks a degenerate denominator (V_start + W*CF_net
	// is zero). The return defaults to 0% rather than dividing.
	FlagZeroBaseline = "zero_baseline"

	// FlagRebased marks a user whose data begins after the nominal period
	// start; the calculation re-based to their first available snapshot.
	FlagRebased = "rebased"

	// FlagUnpricedHoldings marks a valuation in which one or more tickers
	// could not be priced by any resolver and were excluded from the sum.
	FlagUnpricedHoldings = "unpriced_holdings"

	// FlagBenchmarkGap marks a benchmark return that defaulted to 0%
	// because index data was missing at one or both endpoints.
	FlagBenchmarkGap = "benchmark_gap"
)

// ReturnResult is the outcome of a time-weighted period return calculation.
// Percent is the headline figure; the remaining fields expose the inputs so
// callers and tests can audit how the figure was derived.
type ReturnResult struct {
	Percent float64  `json:"percent"`
	VStart  float64  `json:"vStart"`
	VEnd    float64  `json:"vEnd"`
	CFNet   float64  `json:"cfNet"`
	Weight  float64  `json:"weight"`
	Flags   []string `json:"flags,omitempty"`
}

// HasFlag reports whether the result carries the given flag.
func (r ReturnResult) HasFlag(flag string) bool {
	for _, f := range r.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// ChartPoint is one point of a period chart series. Percent is the cheap
// baseline-relative change, not the weighted summary figure.
type ChartPoint struct {
	Date    time.Time `json:"date"`
	Value   float64   `json:"value"`
	Percent float64   `json:"percent"`
}

// CachedPeriodResult is the cached payload for one (user, period) pair.
// It is always re-derivable from snapshots and carries no independent
// durability guarantee.
type CachedPeriodResult struct {
	ID                 string       `json:"id"`
	UserID             string       `json:"userId"`
	Period             string       `json:"period"`
	PortfolioReturnPct float64      `json:"portfolioReturnPct"`
	BenchmarkReturnPct float64      `json:"benchmarkReturnPct"`
	ChartPoints        []ChartPoint `json:"chartPoints"`
	Flags              []string     `json:"flags,omitempty"`
	GeneratedAt        time.Time    `json:"generatedAt"`
}

// HasFlag reports whether the cached result carries the given flag.
func (r CachedPeriodResult) HasFlag(flag string) bool {
	for _, f := range r.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// LeaderboardEntry is one row of a ranked leaderboard, derived entirely from
// cached period results.
type LeaderboardEntry struct {
	Rank        int     `json:"rank"`
	UserID      string  `json:"userId"`
	DisplayName string  `json:"displayName"`
	ReturnPct   float64 `json:"returnPct"`
}

// ValuationResult is the outcome of valuing a user's portfolio at a point in
// time. ExcludedTickers lists holdings that no resolver could price; their
// value is omitted from the sums rather than counted as zero.
type ValuationResult struct {
	UserID          string    `json:"userId"`
	AsOf            time.Time `json:"asOf"`
	StockValue      float64   `json:"stockValue"`
	CashProceeds    float64   `json:"cashProceeds"`
	MaxCashDeployed float64   `json:"maxCashDeployed"`
	TotalValue      float64   `json:"totalValue"`
	ExcludedTickers []string  `json:"excludedTickers,omitempty"`
	Flags           []string  `json:"flags,omitempty"`
}

// HasFlag reports whether the valuation carries the given flag.
func (r ValuationResult) HasFlag(flag string) bool {
	for _, f := range r.Flags {
		if f == flag {
			return true
		}
	}
	return false
}
