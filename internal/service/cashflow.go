package service

import (
	"fmt"

	"github.com/stockfolio/performance-backend/internal/apperrors"
	"github.com/stockfolio/performance-backend/internal/model"
)

// ApplyTransaction advances a cash state by one ledger record.
//
// Buys (and initial positions) consume sale proceeds first; only the
// shortfall counts as newly deployed capital. Sells add their full value to
// proceeds. MaxCashDeployed therefore never decreases and CashProceeds never
// goes negative, which is what lets MaxCashDeployed serve as the cost-basis
// denominator for performance.
func ApplyTransaction(state model.CashState, rec model.TransactionRecord) (model.CashState, error) {
	if rec.Quantity <= 0 || rec.Price <= 0 {
		return state, fmt.Errorf("%w: %s %s quantity=%f price=%f",
			apperrors.ErrInvalidTransactionValue, rec.ID, rec.Type, rec.Quantity, rec.Price)
	}

	value := rec.Value()

	switch rec.Type {
	case model.TransactionBuy, model.TransactionInitial:
		if state.CashProceeds >= value {
			state.CashProceeds -= value
		} else {
			state.MaxCashDeployed += value - state.CashProceeds
			state.CashProceeds = 0
		}
	case model.TransactionSell:
		state.CashProceeds += value
	default:
		return state, fmt.Errorf("%w: %q", apperrors.ErrInvalidTransactionType, rec.Type)
	}

	return state, nil
}

// ReplayLedger derives a user's cash state from an ordered ledger slice.
// The replay is deterministic and idempotent: identical input always yields
// identical state. It backs both audits and rebuilds; live appends use the
// incremental ApplyTransaction instead.
//
// Records must already be sorted by timestamp; the repository guarantees that.
func ReplayLedger(userID string, records []model.TransactionRecord) (model.CashState, error) {
	state := model.CashState{UserID: userID}

	for _, rec := range records {
		var err error
		state, err = ApplyTransaction(state, rec)
		if err != nil {
			return model.CashState{}, err
		}
	}

	return state, nil
}

// replayHoldings reconstructs positions from an ordered ledger slice.
// Sells reduce quantity and scale cost basis down proportionally; a position
// sold to zero (or below, for malformed ledgers) is dropped.
func replayHoldings(userID string, records []model.TransactionRecord) map[string]model.Holding {
	holdings := make(map[string]model.Holding)

	for _, rec := range records {
		h := holdings[rec.Ticker]
		h.UserID = userID
		h.Ticker = rec.Ticker

		switch rec.Type {
		case model.TransactionBuy, model.TransactionInitial:
			totalCost := h.AvgPurchasePrice*h.Quantity + rec.Value()
			h.Quantity += rec.Quantity
			if h.Quantity > 0 {
				h.AvgPurchasePrice = totalCost / h.Quantity
			}
		case model.TransactionSell:
			h.Quantity -= rec.Quantity
		}

		if h.Quantity > 0 {
			holdings[rec.Ticker] = h
		} else {
			delete(holdings, rec.Ticker)
		}
	}

	return holdings
}
