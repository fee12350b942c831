package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stockfolio/performance-backend/internal/apperrors"
	"github.com/stockfolio/performance-backend/internal/model"
	"github.com/stockfolio/performance-backend/internal/testutil"
)

// TestLedgerService_Append tests the transaction append path.
//
// WHY: the ledger is the sole source of truth and every append also advances
// the denormalized cash state and holdings. An append that writes the ledger
// row but corrupts the derived rows would poison every later valuation.
func TestLedgerService_Append(t *testing.T) {
	t.Run("append updates cash state and holdings", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestLedgerService(t, db)

		// Execute
		rec, err := svc.Append(context.Background(), model.TransactionRecord{
			UserID:    "user-1",
			Ticker:    "AAPL",
			Quantity:  10,
			Price:     15,
			Type:      model.TransactionBuy,
			Timestamp: time.Now().UTC(),
		})

		// Assert
		if err != nil {
			t.Fatalf("Append() returned unexpected error: %v", err)
		}
		if rec.ID == "" {
			t.Error("Expected generated transaction ID")
		}

		state, err := svc.GetCashState("user-1")
		if err != nil {
			t.Fatalf("GetCashState() returned unexpected error: %v", err)
		}
		if state.MaxCashDeployed != 150 {
			t.Errorf("Expected max_cash_deployed 150, got %f", state.MaxCashDeployed)
		}

		holdings, err := svc.GetHoldings("user-1")
		if err != nil {
			t.Fatalf("GetHoldings() returned unexpected error: %v", err)
		}
		if len(holdings) != 1 || holdings[0].Quantity != 10 || holdings[0].AvgPurchasePrice != 15 {
			t.Errorf("Unexpected holdings after buy: %+v", holdings)
		}
	})

	t.Run("rejects sell exceeding held quantity", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestLedgerService(t, db)

		_, err := svc.Append(context.Background(), model.TransactionRecord{
			UserID: "user-1", Ticker: "AAPL", Quantity: 5, Price: 10,
			Type: model.TransactionBuy, Timestamp: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("Append() returned unexpected error: %v", err)
		}

		// Execute: sell more than held
		_, err = svc.Append(context.Background(), model.TransactionRecord{
			UserID: "user-1", Ticker: "AAPL", Quantity: 6, Price: 10,
			Type: model.TransactionSell, Timestamp: time.Now().UTC(),
		})

		// Assert
		if !errors.Is(err, apperrors.ErrInsufficientShares) {
			t.Errorf("Expected ErrInsufficientShares, got %v", err)
		}

		// The rejected sell must not have touched state
		ledger, err := svc.GetLedger("user-1")
		if err != nil {
			t.Fatalf("GetLedger() returned unexpected error: %v", err)
		}
		if len(ledger) != 1 {
			t.Errorf("Expected 1 ledger record, got %d", len(ledger))
		}
	})

	t.Run("rejects malformed records without writing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestLedgerService(t, db)

		cases := []struct {
			name string
			rec  model.TransactionRecord
			want error
		}{
			{
				name: "missing user",
				rec: model.TransactionRecord{
					Ticker: "AAPL", Quantity: 1, Price: 1,
					Type: model.TransactionBuy, Timestamp: time.Now().UTC(),
				},
				want: apperrors.ErrMissingRequiredField,
			},
			{
				name: "unknown type",
				rec: model.TransactionRecord{
					UserID: "user-1", Ticker: "AAPL", Quantity: 1, Price: 1,
					Type: "dividend", Timestamp: time.Now().UTC(),
				},
				want: apperrors.ErrInvalidTransactionType,
			},
			{
				name: "zero quantity",
				rec: model.TransactionRecord{
					UserID: "user-1", Ticker: "AAPL", Quantity: 0, Price: 1,
					Type: model.TransactionBuy, Timestamp: time.Now().UTC(),
				},
				want: apperrors.ErrInvalidTransactionValue,
			},
		}

		for _, tc := range cases {
			if _, err := svc.Append(context.Background(), tc.rec); !errors.Is(err, tc.want) {
				t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
			}
		}

		ledger, err := svc.GetLedger("user-1")
		if err != nil {
			t.Fatalf("GetLedger() returned unexpected error: %v", err)
		}
		if len(ledger) != 0 {
			t.Errorf("Expected empty ledger after rejected appends, got %d records", len(ledger))
		}
	})

	t.Run("sell scales position without touching average price", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestLedgerService(t, db)
		ctx := context.Background()

		appendTx := func(txType string, quantity, price float64) {
			t.Helper()
			_, err := svc.Append(ctx, model.TransactionRecord{
				UserID: "user-1", Ticker: "AAPL", Quantity: quantity, Price: price,
				Type: txType, Timestamp: time.Now().UTC(),
			})
			if err != nil {
				t.Fatalf("Append() returned unexpected error: %v", err)
			}
		}

		appendTx(model.TransactionBuy, 10, 10)
		appendTx(model.TransactionBuy, 10, 20)
		appendTx(model.TransactionSell, 5, 30)

		holdings, err := svc.GetHoldings("user-1")
		if err != nil {
			t.Fatalf("GetHoldings() returned unexpected error: %v", err)
		}
		if len(holdings) != 1 {
			t.Fatalf("Expected 1 holding, got %d", len(holdings))
		}
		if holdings[0].Quantity != 15 {
			t.Errorf("Expected quantity 15, got %f", holdings[0].Quantity)
		}
		if holdings[0].AvgPurchasePrice != 15 {
			t.Errorf("Expected avg purchase price 15, got %f", holdings[0].AvgPurchasePrice)
		}
	})
}

// TestLedgerService_RebuildFromLedger tests full replay against incremental state.
//
// WHY: the rebuild path exists to recover from derived-row corruption. It
// must land on exactly the state the incremental path produced, or the two
// paths disagree about the same ledger.
func TestLedgerService_RebuildFromLedger(t *testing.T) {
	t.Run("rebuild matches incremental state", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestLedgerService(t, db)
		ctx := context.Background()

		seq := []struct {
			txType   string
			quantity float64
			price    float64
		}{
			{model.TransactionInitial, 10, 10},
			{model.TransactionBuy, 5, 20},
			{model.TransactionSell, 8, 25},
			{model.TransactionBuy, 3, 30},
		}
		for _, s := range seq {
			_, err := svc.Append(ctx, model.TransactionRecord{
				UserID: "user-1", Ticker: "AAPL", Quantity: s.quantity, Price: s.price,
				Type: s.txType, Timestamp: time.Now().UTC(),
			})
			if err != nil {
				t.Fatalf("Append() returned unexpected error: %v", err)
			}
		}

		incremental, err := svc.GetCashState("user-1")
		if err != nil {
			t.Fatalf("GetCashState() returned unexpected error: %v", err)
		}

		// Execute
		rebuilt, err := svc.RebuildFromLedger(ctx, "user-1")
		if err != nil {
			t.Fatalf("RebuildFromLedger() returned unexpected error: %v", err)
		}

		// Assert
		if rebuilt.MaxCashDeployed != incremental.MaxCashDeployed {
			t.Errorf("max_cash_deployed mismatch: rebuilt %f, incremental %f",
				rebuilt.MaxCashDeployed, incremental.MaxCashDeployed)
		}
		if rebuilt.CashProceeds != incremental.CashProceeds {
			t.Errorf("cash_proceeds mismatch: rebuilt %f, incremental %f",
				rebuilt.CashProceeds, incremental.CashProceeds)
		}
	})
}

// TestLedgerService_StateAsOf tests historical ledger replay with a cutoff.
//
// WHY: historical valuation reconstructs what the user held on a past date.
// Including transactions after the cutoff would leak future activity into
// past snapshots.
func TestLedgerService_StateAsOf(t *testing.T) {
	t.Run("cutoff excludes later transactions", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestLedgerService(t, db)

		testutil.NewTransaction("user-1").
			WithQuantity(10).WithPrice(10).
			WithTimestamp(testutil.Day(t, "2024-01-10")).
			Build(t, db)
		testutil.NewTransaction("user-1").
			WithQuantity(5).WithPrice(20).
			WithTimestamp(testutil.Day(t, "2024-03-01")).
			Build(t, db)

		state, holdings, err := svc.StateAsOf("user-1", testutil.Day(t, "2024-02-01"))
		if err != nil {
			t.Fatalf("StateAsOf() returned unexpected error: %v", err)
		}

		if state.MaxCashDeployed != 100 {
			t.Errorf("Expected max_cash_deployed 100 at cutoff, got %f", state.MaxCashDeployed)
		}
		if h := holdings["AAPL"]; h.Quantity != 10 {
			t.Errorf("Expected 10 shares at cutoff, got %f", h.Quantity)
		}
	})
}
