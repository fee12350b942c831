package model

import "time"

// Security holds static per-ticker classification data. Category is the
// composition class used by leaderboard filters (e.g. "tech", "energy");
// it is independent of any return calculation.
type Security struct {
	Ticker   string `json:"ticker"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// PricePoint is one persisted historical closing price for a ticker.
type PricePoint struct {
	ID     string    `json:"id"`
	Ticker string    `json:"ticker"`
	Date   time.Time `json:"date"`
	Price  float64   `json:"price"`
}
