package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stockfolio/performance-backend/internal/apperrors"
	"github.com/stockfolio/performance-backend/internal/model"
	"github.com/stockfolio/performance-backend/internal/repository"
	"github.com/stockfolio/performance-backend/internal/validation"
)

// LedgerService handles transaction ledger operations. Every append updates
// the denormalized cash state and holdings in the same call, so reads stay
// O(1); the ledger itself remains the sole source of truth and
// RebuildFromLedger restores the derived rows from scratch.
//
// Appends are serialized per user: two goroutines appending for the same
// user queue behind one mutex, while different users proceed in parallel.
type LedgerService struct {
	transactionRepo *repository.TransactionRepository
	cashStateRepo   *repository.CashStateRepository
	holdingRepo     *repository.HoldingRepository

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// NewLedgerService creates a new LedgerService with the provided repository dependencies.
func NewLedgerService(
	transactionRepo *repository.TransactionRepository,
	cashStateRepo *repository.CashStateRepository,
	holdingRepo *repository.HoldingRepository,
) *LedgerService {
	return &LedgerService{
		transactionRepo: transactionRepo,
		cashStateRepo:   cashStateRepo,
		holdingRepo:     holdingRepo,
		userLocks:       make(map[string]*sync.Mutex),
	}
}

// lockUser returns the append mutex for a user, creating it on first use.
func (s *LedgerService) lockUser(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.userLocks[userID] = lock
	}
	return lock
}

// Append validates and persists a ledger record, then synchronously advances
// the user's cash state and holdings. A malformed record is rejected before
// anything is written and affects only itself.
func (s *LedgerService) Append(ctx context.Context, rec model.TransactionRecord) (*model.TransactionRecord, error) {
	if err := validation.ValidateTransaction(rec); err != nil {
		return nil, err
	}

	lock := s.lockUser(rec.UserID)
	lock.Lock()
	defer lock.Unlock()

	if rec.Type == model.TransactionSell {
		held, err := s.heldQuantity(rec.UserID, rec.Ticker)
		if err != nil {
			return nil, err
		}
		if rec.Quantity > held {
			return nil, fmt.Errorf("%w: selling %f of %s, holding %f",
				apperrors.ErrInsufficientShares, rec.Quantity, rec.Ticker, held)
		}
	}

	rec.ID = uuid.New().String()
	rec.CreatedAt = time.Now().UTC()

	if err := s.transactionRepo.Insert(ctx, &rec); err != nil {
		return nil, fmt.Errorf("failed to append transaction: %w", err)
	}

	state, err := s.cashStateRepo.Get(rec.UserID)
	if err != nil {
		return nil, err
	}

	state, err = ApplyTransaction(state, rec)
	if err != nil {
		return nil, err
	}

	if err := s.cashStateRepo.Upsert(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to update cash state: %w", err)
	}

	if err := s.applyHolding(ctx, rec); err != nil {
		return nil, err
	}

	return &rec, nil
}

// heldQuantity returns the user's current position size for a ticker.
func (s *LedgerService) heldQuantity(userID, ticker string) (float64, error) {
	holdings, err := s.holdingRepo.GetByUser(userID)
	if err != nil {
		return 0, err
	}
	for _, h := range holdings {
		if h.Ticker == ticker {
			return h.Quantity, nil
		}
	}
	return 0, nil
}

// applyHolding advances the holding row for one appended record.
func (s *LedgerService) applyHolding(ctx context.Context, rec model.TransactionRecord) error {
	holdings, err := s.holdingRepo.GetByUser(rec.UserID)
	if err != nil {
		return err
	}

	var h model.Holding
	for _, existing := range holdings {
		if existing.Ticker == rec.Ticker {
			h = existing
			break
		}
	}
	h.UserID = rec.UserID
	h.Ticker = rec.Ticker

	switch rec.Type {
	case model.TransactionBuy, model.TransactionInitial:
		totalCost := h.AvgPurchasePrice*h.Quantity + rec.Value()
		h.Quantity += rec.Quantity
		h.AvgPurchasePrice = totalCost / h.Quantity
	case model.TransactionSell:
		h.Quantity -= rec.Quantity
	}

	if h.Quantity < 0 {
		h.Quantity = 0
	}

	return s.holdingRepo.Upsert(ctx, h)
}

// GetCashState returns the user's current denormalized cash state.
func (s *LedgerService) GetCashState(userID string) (model.CashState, error) {
	return s.cashStateRepo.Get(userID)
}

// GetHoldings returns the user's live positions.
func (s *LedgerService) GetHoldings(userID string) ([]model.Holding, error) {
	return s.holdingRepo.GetByUser(userID)
}

// GetLedger returns the user's full ledger in timestamp order.
func (s *LedgerService) GetLedger(userID string) ([]model.TransactionRecord, error) {
	return s.transactionRepo.GetByUser(userID, time.Time{})
}

// FirstTransactionTime returns the timestamp of the user's earliest ledger
// record, or the zero time if none exists.
func (s *LedgerService) FirstTransactionTime(userID string) time.Time {
	return s.transactionRepo.GetOldestTimestamp(userID)
}

// ListUserIDs returns every user with ledger activity, for batch iteration.
func (s *LedgerService) ListUserIDs() ([]string, error) {
	return s.transactionRepo.ListUserIDs()
}

// StateAsOf replays the user's ledger up to the cutoff and returns the cash
// state and holdings as of that moment. Used by historical valuation; live
// reads use the denormalized rows instead.
func (s *LedgerService) StateAsOf(userID string, cutoff time.Time) (model.CashState, map[string]model.Holding, error) {
	records, err := s.transactionRepo.GetByUser(userID, cutoff)
	if err != nil {
		return model.CashState{}, nil, err
	}

	state, err := ReplayLedger(userID, records)
	if err != nil {
		return model.CashState{}, nil, err
	}

	return state, replayHoldings(userID, records), nil
}

// RebuildFromLedger discards the user's denormalized cash state and holdings
// and re-derives both by full ledger replay. This is the audit/backfill
// path; normal appends maintain the rows incrementally.
func (s *LedgerService) RebuildFromLedger(ctx context.Context, userID string) (model.CashState, error) {
	lock := s.lockUser(userID)
	lock.Lock()
	defer lock.Unlock()

	records, err := s.transactionRepo.GetByUser(userID, time.Time{})
	if err != nil {
		return model.CashState{}, err
	}

	state, err := ReplayLedger(userID, records)
	if err != nil {
		return model.CashState{}, err
	}

	if err := s.cashStateRepo.Upsert(ctx, state); err != nil {
		return model.CashState{}, fmt.Errorf("failed to store rebuilt cash state: %w", err)
	}

	holdingMap := replayHoldings(userID, records)
	holdings := make([]model.Holding, 0, len(holdingMap))
	for _, h := range holdingMap {
		holdings = append(holdings, h)
	}

	if err := s.holdingRepo.ReplaceForUser(ctx, userID, holdings); err != nil {
		return model.CashState{}, fmt.Errorf("failed to store rebuilt holdings: %w", err)
	}

	return state, nil
}
