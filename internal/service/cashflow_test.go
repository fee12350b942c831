package service_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stockfolio/performance-backend/internal/apperrors"
	"github.com/stockfolio/performance-backend/internal/model"
	"github.com/stockfolio/performance-backend/internal/service"
)

func tx(txType string, quantity, price float64) model.TransactionRecord {
	return model.TransactionRecord{
		ID:        "tx",
		UserID:    "user",
		Ticker:    "AAPL",
		Quantity:  quantity,
		Price:     price,
		Type:      txType,
		Timestamp: time.Now().UTC(),
	}
}

// TestApplyTransaction tests the cash accumulator state machine.
//
// WHY: max_cash_deployed is the denominator of every performance figure. A
// buy that double-counts redeployed proceeds, or a sell that fails to bank
// them, silently skews every user's return.
func TestApplyTransaction(t *testing.T) {
	t.Run("buy with no proceeds deploys fresh cash", func(t *testing.T) {
		state, err := service.ApplyTransaction(model.CashState{UserID: "user"}, tx(model.TransactionBuy, 10, 15))
		if err != nil {
			t.Fatalf("ApplyTransaction() returned unexpected error: %v", err)
		}

		if state.MaxCashDeployed != 150 {
			t.Errorf("Expected max_cash_deployed 150, got %f", state.MaxCashDeployed)
		}
		if state.CashProceeds != 0 {
			t.Errorf("Expected cash_proceeds 0, got %f", state.CashProceeds)
		}
	})

	t.Run("buy consumes proceeds before deploying new cash", func(t *testing.T) {
		state := model.CashState{UserID: "user", MaxCashDeployed: 100, CashProceeds: 40}

		state, err := service.ApplyTransaction(state, tx(model.TransactionBuy, 1, 100))
		if err != nil {
			t.Fatalf("ApplyTransaction() returned unexpected error: %v", err)
		}

		// 40 redeployed, only the 60 shortfall is new capital
		if state.MaxCashDeployed != 160 {
			t.Errorf("Expected max_cash_deployed 160, got %f", state.MaxCashDeployed)
		}
		if state.CashProceeds != 0 {
			t.Errorf("Expected cash_proceeds 0, got %f", state.CashProceeds)
		}
	})

	t.Run("buy fully covered by proceeds deploys nothing", func(t *testing.T) {
		state := model.CashState{UserID: "user", MaxCashDeployed: 100, CashProceeds: 80}

		state, err := service.ApplyTransaction(state, tx(model.TransactionBuy, 1, 50))
		if err != nil {
			t.Fatalf("ApplyTransaction() returned unexpected error: %v", err)
		}

		if state.MaxCashDeployed != 100 {
			t.Errorf("Expected max_cash_deployed unchanged at 100, got %f", state.MaxCashDeployed)
		}
		if state.CashProceeds != 30 {
			t.Errorf("Expected cash_proceeds 30, got %f", state.CashProceeds)
		}
	})

	t.Run("sell banks full value as proceeds", func(t *testing.T) {
		state := model.CashState{UserID: "user", MaxCashDeployed: 100}

		state, err := service.ApplyTransaction(state, tx(model.TransactionSell, 2, 30))
		if err != nil {
			t.Fatalf("ApplyTransaction() returned unexpected error: %v", err)
		}

		if state.MaxCashDeployed != 100 {
			t.Errorf("Expected max_cash_deployed unchanged at 100, got %f", state.MaxCashDeployed)
		}
		if state.CashProceeds != 60 {
			t.Errorf("Expected cash_proceeds 60, got %f", state.CashProceeds)
		}
	})

	t.Run("initial position behaves like a buy", func(t *testing.T) {
		state, err := service.ApplyTransaction(model.CashState{UserID: "user"}, tx(model.TransactionInitial, 5, 20))
		if err != nil {
			t.Fatalf("ApplyTransaction() returned unexpected error: %v", err)
		}

		if state.MaxCashDeployed != 100 {
			t.Errorf("Expected max_cash_deployed 100, got %f", state.MaxCashDeployed)
		}
	})

	t.Run("rejects unknown transaction type", func(t *testing.T) {
		_, err := service.ApplyTransaction(model.CashState{UserID: "user"}, tx("transfer", 1, 1))
		if !errors.Is(err, apperrors.ErrInvalidTransactionType) {
			t.Errorf("Expected ErrInvalidTransactionType, got %v", err)
		}
	})

	t.Run("rejects non-positive quantity and price", func(t *testing.T) {
		_, err := service.ApplyTransaction(model.CashState{UserID: "user"}, tx(model.TransactionBuy, 0, 10))
		if !errors.Is(err, apperrors.ErrInvalidTransactionValue) {
			t.Errorf("Expected ErrInvalidTransactionValue for zero quantity, got %v", err)
		}

		_, err = service.ApplyTransaction(model.CashState{UserID: "user"}, tx(model.TransactionBuy, 1, -5))
		if !errors.Is(err, apperrors.ErrInvalidTransactionValue) {
			t.Errorf("Expected ErrInvalidTransactionValue for negative price, got %v", err)
		}
	})
}

// TestReplayLedger tests full-ledger replay.
//
// WHY: replay backs rebuilds and historical valuation. It must be
// deterministic and must preserve the invariant that max_cash_deployed never
// decreases, whatever the sequence of buys and sells.
func TestReplayLedger(t *testing.T) {
	t.Run("replay is deterministic", func(t *testing.T) {
		records := []model.TransactionRecord{
			tx(model.TransactionBuy, 10, 10),
			tx(model.TransactionSell, 5, 12),
			tx(model.TransactionBuy, 4, 20),
			tx(model.TransactionSell, 2, 25),
		}

		first, err := service.ReplayLedger("user", records)
		if err != nil {
			t.Fatalf("ReplayLedger() returned unexpected error: %v", err)
		}

		second, err := service.ReplayLedger("user", records)
		if err != nil {
			t.Fatalf("ReplayLedger() returned unexpected error: %v", err)
		}

		if first.MaxCashDeployed != second.MaxCashDeployed || first.CashProceeds != second.CashProceeds {
			t.Errorf("Replays disagree: %+v vs %+v", first, second)
		}
	})

	t.Run("max cash deployed never decreases across replay", func(t *testing.T) {
		records := []model.TransactionRecord{
			tx(model.TransactionBuy, 10, 10),  // deploy 100
			tx(model.TransactionSell, 10, 20), // bank 200
			tx(model.TransactionBuy, 1, 50),   // fully covered by proceeds
			tx(model.TransactionBuy, 10, 30),  // 150 covered, 150 new
		}

		state := model.CashState{UserID: "user"}
		previous := 0.0
		for _, rec := range records {
			var err error
			state, err = service.ApplyTransaction(state, rec)
			if err != nil {
				t.Fatalf("ApplyTransaction() returned unexpected error: %v", err)
			}
			if state.MaxCashDeployed < previous {
				t.Fatalf("max_cash_deployed decreased from %f to %f", previous, state.MaxCashDeployed)
			}
			previous = state.MaxCashDeployed
		}

		if state.MaxCashDeployed != 250 {
			t.Errorf("Expected max_cash_deployed 250, got %f", state.MaxCashDeployed)
		}
		if state.CashProceeds != 0 {
			t.Errorf("Expected cash_proceeds 0, got %f", state.CashProceeds)
		}
	})

	t.Run("malformed record aborts replay", func(t *testing.T) {
		records := []model.TransactionRecord{
			tx(model.TransactionBuy, 10, 10),
			tx("dividend", 1, 1),
		}

		_, err := service.ReplayLedger("user", records)
		if !errors.Is(err, apperrors.ErrInvalidTransactionType) {
			t.Errorf("Expected ErrInvalidTransactionType, got %v", err)
		}
	})
}
