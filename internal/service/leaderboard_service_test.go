package service_test

import (
	"errors"
	"testing"

	"github.com/stockfolio/performance-backend/internal/apperrors"
	"github.com/stockfolio/performance-backend/internal/testutil"
)

// TestLeaderboardService_Build tests ranking assembly.
//
// WHY: the leaderboard is a cached-only view. It must rank by cached return,
// silently omit users whose results are not cached yet, and keep tie order
// stable between rebuilds of the same cache generation.
func TestLeaderboardService_Build(t *testing.T) {
	t.Run("ranks users by descending return", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestLeaderboardService(t, db)

		alice := testutil.NewUser().WithDisplayName("alice").Build(t, db)
		bob := testutil.NewUser().WithDisplayName("bob").Build(t, db)
		carol := testutil.NewUser().WithDisplayName("carol").Build(t, db)

		testutil.NewCachedResult(alice.ID, "1m").WithReturn(5).Build(t, db)
		testutil.NewCachedResult(bob.ID, "1m").WithReturn(12).Build(t, db)
		testutil.NewCachedResult(carol.ID, "1m").WithReturn(-3).Build(t, db)

		// Execute
		entries, err := svc.Build("1m", "", 0)

		// Assert
		if err != nil {
			t.Fatalf("Build() returned unexpected error: %v", err)
		}
		if len(entries) != 3 {
			t.Fatalf("Expected 3 entries, got %d", len(entries))
		}

		wantOrder := []string{"bob", "alice", "carol"}
		for i, want := range wantOrder {
			if entries[i].DisplayName != want {
				t.Errorf("Position %d: expected %s, got %s", i+1, want, entries[i].DisplayName)
			}
			if entries[i].Rank != i+1 {
				t.Errorf("Position %d: expected rank %d, got %d", i, i+1, entries[i].Rank)
			}
		}
	})

	t.Run("omits users without a cached result", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestLeaderboardService(t, db)

		alice := testutil.NewUser().WithDisplayName("alice").Build(t, db)
		testutil.NewUser().WithDisplayName("bob").Build(t, db) // no cached entry

		testutil.NewCachedResult(alice.ID, "1m").WithReturn(5).Build(t, db)

		entries, err := svc.Build("1m", "", 0)
		if err != nil {
			t.Fatalf("Build() returned unexpected error: %v", err)
		}

		if len(entries) != 1 || entries[0].DisplayName != "alice" {
			t.Errorf("Expected only alice ranked, got %+v", entries)
		}
	})

	t.Run("ties keep cache insertion order", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestLeaderboardService(t, db)

		alice := testutil.NewUser().WithDisplayName("alice").Build(t, db)
		bob := testutil.NewUser().WithDisplayName("bob").Build(t, db)

		testutil.NewCachedResult(alice.ID, "1m").WithReturn(7).Build(t, db)
		testutil.NewCachedResult(bob.ID, "1m").WithReturn(7).Build(t, db)

		for range [3]struct{}{} {
			entries, err := svc.Build("1m", "", 0)
			if err != nil {
				t.Fatalf("Build() returned unexpected error: %v", err)
			}
			if entries[0].DisplayName != "alice" || entries[1].DisplayName != "bob" {
				t.Errorf("Tie order unstable: %+v", entries)
			}
		}
	})

	t.Run("category filter requires a current holding in category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestLeaderboardService(t, db)

		alice := testutil.NewUser().WithDisplayName("alice").Build(t, db)
		bob := testutil.NewUser().WithDisplayName("bob").Build(t, db)

		testutil.NewSecurity("BTC-USD").WithCategory("crypto").Build(t, db)
		testutil.NewSecurity("AAPL").WithCategory("stock").Build(t, db)

		testutil.InsertHolding(t, db, alice.ID, "BTC-USD", 1, 30000)
		testutil.InsertHolding(t, db, bob.ID, "AAPL", 10, 150)

		testutil.NewCachedResult(alice.ID, "1m").WithReturn(20).Build(t, db)
		testutil.NewCachedResult(bob.ID, "1m").WithReturn(40).Build(t, db)

		entries, err := svc.Build("1m", "crypto", 0)
		if err != nil {
			t.Fatalf("Build() returned unexpected error: %v", err)
		}

		if len(entries) != 1 || entries[0].DisplayName != "alice" {
			t.Errorf("Expected only alice in crypto ranking, got %+v", entries)
		}
		if entries[0].Rank != 1 {
			t.Errorf("Expected rank 1 after filtering, got %d", entries[0].Rank)
		}
	})

	t.Run("limit truncates after ranking", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestLeaderboardService(t, db)

		for _, pct := range []float64{1, 9, 5} {
			u := testutil.NewUser().Build(t, db)
			testutil.NewCachedResult(u.ID, "1m").WithReturn(pct).Build(t, db)
		}

		entries, err := svc.Build("1m", "", 2)
		if err != nil {
			t.Fatalf("Build() returned unexpected error: %v", err)
		}

		if len(entries) != 2 {
			t.Fatalf("Expected 2 entries, got %d", len(entries))
		}
		if entries[0].ReturnPct != 9 || entries[1].ReturnPct != 5 {
			t.Errorf("Expected top two returns 9 and 5, got %+v", entries)
		}
	})

	t.Run("unknown period is rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestLeaderboardService(t, db)

		_, err := svc.Build("6m", "", 0)
		if !errors.Is(err, apperrors.ErrUnknownPeriod) {
			t.Errorf("Expected ErrUnknownPeriod, got %v", err)
		}
	})
}
