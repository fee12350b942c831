package model

import "time"

// CashState holds the two running cash-flow totals for a user, derived from
// the transaction ledger.
//
// MaxCashDeployed is the cumulative external capital ever committed to the
// portfolio. It never decreases: selling returns cash as proceeds but does not
// un-deploy capital. It serves as the cost-basis denominator for performance.
//
// CashProceeds is uninvested cash realized from sales, awaiting redeployment.
// Buys consume proceeds before new capital is counted as deployed.
type CashState struct {
	UserID          string    `json:"userId"`
	MaxCashDeployed float64   `json:"maxCashDeployed"`
	CashProceeds    float64   `json:"cashProceeds"`
	UpdatedAt       time.Time `json:"updatedAt,omitempty"`
}
