package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/stockfolio/performance-backend/internal/apperrors"
	"github.com/stockfolio/performance-backend/internal/model"
	"github.com/stockfolio/performance-backend/internal/repository"
)

// SnapshotService captures point-in-time valuations. End-of-day snapshots are
// the inputs to all return math; intraday snapshots only add resolution to
// short-period charts and are pruned after a few days.
type SnapshotService struct {
	snapshotRepo *repository.SnapshotRepository
	valuation    *ValuationService
	ledger       *LedgerService
}

// NewSnapshotService creates a new SnapshotService.
func NewSnapshotService(
	snapshotRepo *repository.SnapshotRepository,
	valuation *ValuationService,
	ledger *LedgerService,
) *SnapshotService {
	return &SnapshotService{
		snapshotRepo: snapshotRepo,
		valuation:    valuation,
		ledger:       ledger,
	}
}

// CaptureDaily values the user as of the given date and stores the end-of-day
// snapshot. Re-capturing the same day overwrites; a date earlier than today
// is rejected so finalized history stays immutable (Backfill is the explicit
// exception). No snapshot is created before the user's first transaction.
func (s *SnapshotService) CaptureDaily(ctx context.Context, userID string, date time.Time) (model.Snapshot, error) {
	day := dateOnly(date)

	if day.Before(dateOnly(time.Now().UTC())) {
		return model.Snapshot{}, fmt.Errorf("%w: %s", apperrors.ErrSnapshotImmutable, day.Format("2006-01-02"))
	}

	return s.capture(ctx, userID, day, false)
}

// CaptureIntraday stores an intraday snapshot at the current live value.
// One intraday row per user per day; later captures overwrite earlier ones.
func (s *SnapshotService) CaptureIntraday(ctx context.Context, userID string) (model.Snapshot, error) {
	return s.capture(ctx, userID, dateOnly(time.Now().UTC()), true)
}

// Backfill creates or replaces an end-of-day snapshot for a historical date
// by ledger replay and cached closes. This is the explicit admin/repair path
// around the immutability guard.
func (s *SnapshotService) Backfill(ctx context.Context, userID string, date time.Time) (model.Snapshot, error) {
	return s.capture(ctx, userID, dateOnly(date), false)
}

func (s *SnapshotService) capture(ctx context.Context, userID string, day time.Time, intraday bool) (model.Snapshot, error) {
	first := s.ledger.FirstTransactionTime(userID)
	if first.IsZero() || day.Before(dateOnly(first)) {
		return model.Snapshot{}, fmt.Errorf("%w: user %s has no transactions on or before %s",
			apperrors.ErrSnapshotBeforeFirstTransaction, userID, day.Format("2006-01-02"))
	}

	asOf := day
	if !day.Before(dateOnly(time.Now().UTC())) {
		// Today's capture prices live holdings.
		asOf = time.Time{}
	}

	val, err := s.valuation.CalculateValue(ctx, userID, asOf)
	if err != nil {
		return model.Snapshot{}, err
	}

	snap := model.Snapshot{
		ID:              uuid.New().String(),
		UserID:          userID,
		Date:            day,
		TakenAt:         time.Now().UTC(),
		Intraday:        intraday,
		StockValue:      val.StockValue,
		CashProceeds:    val.CashProceeds,
		MaxCashDeployed: val.MaxCashDeployed,
		TotalValue:      val.TotalValue,
	}

	if err := s.snapshotRepo.Upsert(ctx, snap); err != nil {
		return model.Snapshot{}, err
	}

	return snap, nil
}

// RunEndOfDay captures today's end-of-day snapshot for every user with ledger
// activity. Users are processed in parallel; one user's failure never blocks
// the rest. Users without transactions yet are counted as skipped.
func (s *SnapshotService) RunEndOfDay(ctx context.Context) (BatchReport, error) {
	return s.runBatch(ctx, func(ctx context.Context, userID string) error {
		_, err := s.CaptureDaily(ctx, userID, time.Now().UTC())
		return err
	})
}

// RunIntraday captures an intraday snapshot for every user with ledger
// activity.
func (s *SnapshotService) RunIntraday(ctx context.Context) (BatchReport, error) {
	return s.runBatch(ctx, func(ctx context.Context, userID string) error {
		_, err := s.CaptureIntraday(ctx, userID)
		return err
	})
}

func (s *SnapshotService) runBatch(ctx context.Context, capture func(ctx context.Context, userID string) error) (BatchReport, error) {
	userIDs, err := s.ledger.ListUserIDs()
	if err != nil {
		return BatchReport{}, err
	}

	var mu sync.Mutex
	report := BatchReport{Total: len(userIDs)}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)

	for _, userID := range userIDs {
		userID := userID
		g.Go(func() error {
			err := capture(ctx, userID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				report.Succeeded++
			case errors.Is(err, apperrors.ErrSnapshotBeforeFirstTransaction):
				report.Skipped++
			default:
				report.Failures = append(report.Failures, BatchFailure{UserID: userID, Err: err})
			}
			return nil
		})
	}

	// Workers never return errors; failures are collected in the report.
	_ = g.Wait()

	return report, nil
}

// PruneIntraday deletes intraday snapshots older than keepDays days.
func (s *SnapshotService) PruneIntraday(ctx context.Context, keepDays int) (int64, error) {
	cutoff := dateOnly(time.Now().UTC()).AddDate(0, 0, -keepDays)
	return s.snapshotRepo.DeleteIntradayBefore(ctx, cutoff)
}
