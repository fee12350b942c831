package model

import "time"

// Snapshot is a persisted point-in-time valuation record for one user.
// One end-of-day snapshot exists per user per trading day; optional intraday
// snapshots support short-period charting during market hours.
//
// TotalValue decomposes as StockValue + CashProceeds. MaxCashDeployed is
// carried on each snapshot so that period return calculations can read the
// capital deployed as of any snapshot without replaying the ledger.
type Snapshot struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	Date            time.Time `json:"date"`    // trading day (midnight UTC)
	TakenAt         time.Time `json:"takenAt"` // actual capture time
	Intraday        bool      `json:"intraday"`
	StockValue      float64   `json:"stockValue"`
	CashProceeds    float64   `json:"cashProceeds"`
	MaxCashDeployed float64   `json:"maxCashDeployed"`
	TotalValue      float64   `json:"totalValue"`
}
