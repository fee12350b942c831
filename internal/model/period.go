package model

import "time"

// Staleness thresholds per period class.
// These are compared against a cached entry's age; an entry whose age has
// reached the threshold is stale and must be recomputed. Short periods chart
// intraday movement and tolerate only minutes of staleness; multi-year
// periods barely move day to day.
const (
	StalenessWeek      = 15 * time.Minute
	StalenessMonth     = time.Hour
	StalenessQuarter   = 6 * time.Hour
	StalenessYear      = 24 * time.Hour
	StalenessMultiYear = 3 * 24 * time.Hour
)

// Period identifies a reporting window for cached return results.
// Days is the nominal window length; 0 means "since the user's first
// snapshot" (all-time).
type Period struct {
	Key       string        `json:"key"`
	Days      int           `json:"days"`
	Staleness time.Duration `json:"-"`
}

// Well-known periods, ordered short to long. The key is the cache key
// component used in cached_period_result rows.
var periods = []Period{
	{Key: "1w", Days: 7, Staleness: StalenessWeek},
	{Key: "1m", Days: 30, Staleness: StalenessMonth},
	{Key: "3m", Days: 91, Staleness: StalenessQuarter},
	{Key: "1y", Days: 365, Staleness: StalenessYear},
	{Key: "3y", Days: 3 * 365, Staleness: StalenessMultiYear},
	{Key: "all", Days: 0, Staleness: StalenessMultiYear},
}

// Periods returns all supported reporting periods.
func Periods() []Period {
	out := make([]Period, len(periods))
	copy(out, periods)
	return out
}

// LookupPeriod returns the period for the given key.
// The second return value is false if the key is unknown.
func LookupPeriod(key string) (Period, bool) {
	for _, p := range periods {
		if p.Key == key {
			return p, true
		}
	}
	return Period{}, false
}

// Range resolves the period to a concrete [start, end] date pair ending at
// the given day. For the all-time period, start is the zero time and the
// caller re-bases to the user's first snapshot.
func (p Period) Range(end time.Time) (time.Time, time.Time) {
	if p.Days == 0 {
		return time.Time{}, end
	}
	return end.AddDate(0, 0, -p.Days), end
}
