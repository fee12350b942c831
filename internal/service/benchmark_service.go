package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/stockfolio/performance-backend/internal/apperrors"
	"github.com/stockfolio/performance-backend/internal/model"
	"github.com/stockfolio/performance-backend/internal/repository"
)

// BenchmarkService computes the reference index return over a window so user
// results can be shown against the market. The index return is a simple
// price change, not Modified Dietz: an index has no cash flows.
type BenchmarkService struct {
	priceRepo *repository.PriceRepository
	source    PriceSource
	ticker    string
}

// NewBenchmarkService creates a BenchmarkService tracking the given index
// ticker, e.g. "^GSPC".
func NewBenchmarkService(priceRepo *repository.PriceRepository, source PriceSource, ticker string) *BenchmarkService {
	return &BenchmarkService{
		priceRepo: priceRepo,
		source:    source,
		ticker:    ticker,
	}
}

// Ticker returns the index ticker this service tracks.
func (s *BenchmarkService) Ticker() string { return s.ticker }

// ComputeReturn calculates the index's percent change over [start, end].
// The start price is the first close on or after start, the end price the
// last close on or before end; this tolerates weekends and holidays at both
// edges. A window where either endpoint cannot be priced returns 0% with a
// benchmark_gap flag instead of failing the caller's whole report.
func (s *BenchmarkService) ComputeReturn(ctx context.Context, start, end time.Time) (float64, []string) {
	if err := s.ensureHistory(ctx, end); err != nil {
		log.Printf("benchmark: history fetch for %s failed: %v", s.ticker, err)
	}

	startPoint, err := s.priceRepo.GetNearestOnOrAfter(s.ticker, dateOnly(start))
	if err != nil {
		return s.gap(start, end, err)
	}

	endPoint, err := s.priceRepo.GetNearestOnOrBefore(s.ticker, dateOnly(end))
	if err != nil {
		return s.gap(start, end, err)
	}

	if startPoint.Date.After(endPoint.Date) || startPoint.Price <= 0 {
		return s.gap(start, end, apperrors.ErrPriceNotFound)
	}

	return round((endPoint.Price - startPoint.Price) / startPoint.Price * 100), nil
}

func (s *BenchmarkService) gap(start, end time.Time, err error) (float64, []string) {
	log.Printf("benchmark: no usable %s closes for %s..%s: %v",
		s.ticker, start.Format("2006-01-02"), end.Format("2006-01-02"), err)
	return 0, []string{model.FlagBenchmarkGap}
}

// ensureHistory backfills the index close cache when it is empty or does not
// yet reach the window's end. One bulk fetch covers the whole history.
func (s *BenchmarkService) ensureHistory(ctx context.Context, end time.Time) error {
	latest, err := s.priceRepo.GetLatest(s.ticker)
	if err == nil && !latest.Date.Before(dateOnly(end).AddDate(0, 0, -5)) {
		return nil
	}
	if err != nil && !errors.Is(err, apperrors.ErrPriceNotFound) {
		return err
	}

	closes, err := s.source.GetHistoricalPrices(ctx, s.ticker, time.Now().UTC())
	if err != nil {
		return err
	}
	if len(closes) == 0 {
		return apperrors.ErrNoExternalData
	}

	return s.priceRepo.BulkUpsert(ctx, s.ticker, closes)
}
