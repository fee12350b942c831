package validation

import (
	"strings"

	"github.com/stockfolio/performance-backend/internal/apperrors"
	"github.com/stockfolio/performance-backend/internal/model"
)

// ValidTransactionType contains the allowed ledger record type values.
var ValidTransactionType = map[string]bool{
	model.TransactionBuy: true, model.TransactionSell: true, model.TransactionInitial: true,
}

// ValidateTransaction validates a ledger record before it is appended.
// A malformed record is fatal for that record only; the sentinel errors let
// callers distinguish an unknown type from a non-positive value.
//
// Required:
//   - userId and ticker: non-empty
//   - type: one of buy, sell, initial
//   - quantity and price: strictly positive
//   - timestamp: non-zero (ledger ordering is by timestamp)
func ValidateTransaction(rec model.TransactionRecord) error {
	if strings.TrimSpace(rec.UserID) == "" || strings.TrimSpace(rec.Ticker) == "" {
		return apperrors.ErrMissingRequiredField
	}

	if rec.Timestamp.IsZero() {
		return apperrors.ErrMissingRequiredField
	}

	if !ValidTransactionType[rec.Type] {
		return apperrors.ErrInvalidTransactionType
	}

	if rec.Quantity <= 0.0 || rec.Price <= 0.0 {
		return apperrors.ErrInvalidTransactionValue
	}

	return nil
}
