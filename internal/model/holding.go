package model

// Holding represents a live position for a user.
// Maintained synchronously with ledger appends and re-derivable by replay.
// AvgPurchasePrice is the weighted average cost per share, used as the
// last-resort price substitute when no market price can be resolved.
type Holding struct {
	UserID           string  `json:"userId"`
	Ticker           string  `json:"ticker"`
	Quantity         float64 `json:"quantity"`
	AvgPurchasePrice float64 `json:"avgPurchasePrice"`
}
