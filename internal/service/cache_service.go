package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/stockfolio/performance-backend/internal/apperrors"
	"github.com/stockfolio/performance-backend/internal/model"
	"github.com/stockfolio/performance-backend/internal/repository"
)

// CacheService mediates all cached period result reads. Return and chart
// computation is expensive enough that dashboards never compute on the read
// path unless the cached entry is missing or stale; each period class carries
// its own staleness threshold.
type CacheService struct {
	cacheRepo    *repository.CacheRepository
	snapshotRepo *repository.SnapshotRepository
	returns      *ReturnService
	benchmark    *BenchmarkService
	ledger       *LedgerService
}

// NewCacheService creates a new CacheService.
func NewCacheService(
	cacheRepo *repository.CacheRepository,
	snapshotRepo *repository.SnapshotRepository,
	returns *ReturnService,
	benchmark *BenchmarkService,
	ledger *LedgerService,
) *CacheService {
	return &CacheService{
		cacheRepo:    cacheRepo,
		snapshotRepo: snapshotRepo,
		returns:      returns,
		benchmark:    benchmark,
		ledger:       ledger,
	}
}

// GetResult returns the cached result for a user/period, recomputing on a
// miss or when the entry's age has reached the period's staleness threshold.
// A recompute whose persist fails still returns the fresh result; the cache
// write is best effort and the next read retries it.
func (s *CacheService) GetResult(ctx context.Context, userID, periodKey string) (model.CachedPeriodResult, error) {
	period, ok := model.LookupPeriod(periodKey)
	if !ok {
		return model.CachedPeriodResult{}, fmt.Errorf("%w: %q", apperrors.ErrUnknownPeriod, periodKey)
	}

	entry, err := s.cacheRepo.Get(userID, period.Key)
	if err == nil && time.Since(entry.GeneratedAt) < period.Staleness {
		return entry, nil
	}
	if err != nil && !errors.Is(err, apperrors.ErrCacheEntryNotFound) {
		return model.CachedPeriodResult{}, err
	}

	result, err := s.compute(ctx, userID, period)
	if err != nil {
		return model.CachedPeriodResult{}, err
	}

	if err := s.cacheRepo.Upsert(ctx, result); err != nil {
		log.Printf("cache: persist failed for user %s period %s, serving uncached: %v",
			userID, period.Key, err)
	}

	return result, nil
}

// compute assembles one cached entry: portfolio return, benchmark return and
// chart series over the period's window ending today. The all-time window
// starts at the user's first snapshot.
func (s *CacheService) compute(ctx context.Context, userID string, period model.Period) (model.CachedPeriodResult, error) {
	end := dateOnly(time.Now().UTC())

	start, _ := period.Range(end)
	if period.Days == 0 {
		start = s.snapshotRepo.GetEarliestDate(userID)
		if start.IsZero() {
			start = end
		}
	}

	ret, err := s.returns.ComputeReturn(userID, start, end)
	if err != nil {
		return model.CachedPeriodResult{}, err
	}

	benchPct, benchFlags := s.benchmark.ComputeReturn(ctx, start, end)

	// Intraday points only matter at weekly zoom.
	chart, err := s.returns.ChartSeries(userID, start, end, period.Days > 0 && period.Days <= 7)
	if err != nil {
		return model.CachedPeriodResult{}, err
	}

	return model.CachedPeriodResult{
		ID:                 uuid.New().String(),
		UserID:             userID,
		Period:             period.Key,
		PortfolioReturnPct: ret.Percent,
		BenchmarkReturnPct: benchPct,
		ChartPoints:        chart,
		Flags:              append(ret.Flags, benchFlags...),
		GeneratedAt:        time.Now().UTC(),
	}, nil
}

// RegenerateAll recomputes every (user, period) entry and commits all
// successful results in one transaction, so readers switch from the old
// cache generation to the new one atomically. Individual compute failures
// are collected and do not block the rest.
func (s *CacheService) RegenerateAll(ctx context.Context) (BatchReport, error) {
	userIDs, err := s.ledger.ListUserIDs()
	if err != nil {
		return BatchReport{}, err
	}

	periods := model.Periods()

	var mu sync.Mutex
	report := BatchReport{Total: len(userIDs) * len(periods)}
	results := make([]model.CachedPeriodResult, 0, report.Total)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)

	for _, userID := range userIDs {
		for _, period := range periods {
			userID, period := userID, period
			g.Go(func() error {
				result, err := s.compute(gctx, userID, period)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					report.Failures = append(report.Failures, BatchFailure{
						UserID: userID,
						Period: period.Key,
						Err:    err,
					})
					return nil
				}
				results = append(results, result)
				return nil
			})
		}
	}

	_ = g.Wait()

	if len(results) > 0 {
		tx, err := s.cacheRepo.BeginTx(ctx)
		if err != nil {
			return report, err
		}

		for _, result := range results {
			if err := s.cacheRepo.UpsertTx(ctx, tx, result); err != nil {
				_ = tx.Rollback()
				return report, err
			}
		}

		if err := tx.Commit(); err != nil {
			return report, fmt.Errorf("failed to commit cache regeneration: %w", err)
		}
	}

	report.Succeeded = len(results)
	return report, nil
}
