package model

import "time"

// Transaction types accepted by the ledger.
// "initial" marks the opening position of a newly onboarded user and is
// treated as a capital deployment, the same as "buy".
const (
	TransactionBuy     = "buy"
	TransactionSell    = "sell"
	TransactionInitial = "initial"
)

// TransactionRecord represents a single immutable ledger event.
// The ledger is the sole source of truth: holdings and cash-flow state are
// fully re-derivable by replaying records in timestamp order.
type TransactionRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Ticker    string    `json:"ticker"`
	Quantity  float64   `json:"quantity"`
	Price     float64   `json:"price"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Value returns the cash value of the transaction (quantity * price).
func (t TransactionRecord) Value() float64 {
	return t.Quantity * t.Price
}
