package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/stockfolio/performance-backend/internal/model"
	"github.com/stockfolio/performance-backend/internal/repository"
)

// ValuationService computes portfolio values. Today's value prices live
// holdings through the resolver chain; historical values replay the ledger to
// the cutoff and price positions from the persisted close cache, fetching
// external history once per missing ticker to backfill it.
type ValuationService struct {
	ledger    *LedgerService
	priceRepo *repository.PriceRepository
	source    PriceSource
}

// NewValuationService creates a new ValuationService.
func NewValuationService(ledger *LedgerService, priceRepo *repository.PriceRepository, source PriceSource) *ValuationService {
	return &ValuationService{
		ledger:    ledger,
		priceRepo: priceRepo,
		source:    source,
	}
}

// CalculateValue values a user's portfolio as of the given date. A zero asOf
// or today's date takes the live path; anything earlier takes the historical
// path. Dates before the user's first transaction value to zero.
func (s *ValuationService) CalculateValue(ctx context.Context, userID string, asOf time.Time) (model.ValuationResult, error) {
	now := time.Now().UTC()
	if asOf.IsZero() || !dateOnly(asOf).Before(dateOnly(now)) {
		return s.calculateCurrentValue(ctx, userID, now)
	}
	return s.calculateHistoricalValue(ctx, userID, asOf)
}

// calculateCurrentValue prices live holdings through the resolver chain:
// live feed, then latest persisted close, then the position's own purchase
// price. A ticker no step can price is excluded from stock value.
func (s *ValuationService) calculateCurrentValue(ctx context.Context, userID string, now time.Time) (model.ValuationResult, error) {
	holdings, err := s.ledger.GetHoldings(userID)
	if err != nil {
		return model.ValuationResult{}, err
	}

	state, err := s.ledger.GetCashState(userID)
	if err != nil {
		return model.ValuationResult{}, err
	}

	byTicker := make(map[string]model.Holding, len(holdings))
	for _, h := range holdings {
		byTicker[h.Ticker] = h
	}

	chain := []PriceResolver{
		livePriceResolver{source: s.source},
		cachedPriceResolver{priceRepo: s.priceRepo},
		purchasePriceResolver{holdings: byTicker},
	}

	result := model.ValuationResult{
		UserID:          userID,
		AsOf:            now,
		CashProceeds:    state.CashProceeds,
		MaxCashDeployed: state.MaxCashDeployed,
	}

	for _, h := range holdings {
		price, resolvedBy, ok := resolvePrice(ctx, chain, h.Ticker)
		if !ok {
			log.Printf("valuation: no usable price for %s, excluding from value", h.Ticker)
			result.ExcludedTickers = append(result.ExcludedTickers, h.Ticker)
			continue
		}
		if resolvedBy != "live" {
			log.Printf("valuation: %s priced via %s resolver", h.Ticker, resolvedBy)
		}
		result.StockValue += h.Quantity * price
	}

	finishValuation(&result)
	return result, nil
}

// calculateHistoricalValue replays the ledger to the end of the asOf day and
// prices the reconstructed positions from persisted closes. Non-trading days
// substitute the nearest earlier close. Tickers with no cached history at all
// trigger one external bulk fetch that backfills the cache.
func (s *ValuationService) calculateHistoricalValue(ctx context.Context, userID string, asOf time.Time) (model.ValuationResult, error) {
	day := dateOnly(asOf)

	first := s.ledger.FirstTransactionTime(userID)
	if first.IsZero() || day.Before(dateOnly(first)) {
		return model.ValuationResult{UserID: userID, AsOf: day}, nil
	}

	cutoff := day.Add(24*time.Hour - time.Second)
	state, holdings, err := s.ledger.StateAsOf(userID, cutoff)
	if err != nil {
		return model.ValuationResult{}, err
	}

	result := model.ValuationResult{
		UserID:          userID,
		AsOf:            day,
		CashProceeds:    state.CashProceeds,
		MaxCashDeployed: state.MaxCashDeployed,
	}

	tickers := make([]string, 0, len(holdings))
	for ticker := range holdings {
		tickers = append(tickers, ticker)
	}

	// One range query covers the common case; per-ticker fallbacks below
	// handle gaps longer than the window.
	batch, err := s.priceRepo.GetRange(tickers, day.AddDate(0, 0, -31), day)
	if err != nil {
		return model.ValuationResult{}, err
	}

	for _, ticker := range tickers {
		h := holdings[ticker]

		price, ok := lastCloseOnOrBefore(batch[ticker], day)
		if !ok {
			price, ok = s.closeFromCache(ctx, ticker, day)
		}
		if !ok || price <= 0 {
			log.Printf("valuation: no close for %s on or before %s, excluding from value",
				ticker, day.Format("2006-01-02"))
			result.ExcludedTickers = append(result.ExcludedTickers, ticker)
			continue
		}

		result.StockValue += h.Quantity * price
	}

	finishValuation(&result)
	return result, nil
}

// finishValuation rounds the sums and flags any excluded positions.
func finishValuation(result *model.ValuationResult) {
	result.StockValue = round(result.StockValue)
	result.TotalValue = round(result.StockValue + result.CashProceeds)
	if len(result.ExcludedTickers) > 0 {
		result.Flags = append(result.Flags, model.FlagUnpricedHoldings)
	}
}

// closeFromCache returns the nearest persisted close on or before day,
// bulk-fetching the ticker's external history first if nothing is cached yet.
func (s *ValuationService) closeFromCache(ctx context.Context, ticker string, day time.Time) (float64, bool) {
	hasAny, err := s.priceRepo.HasAny(ticker)
	if err != nil {
		log.Printf("valuation: price cache lookup failed for %s: %v", ticker, err)
		return 0, false
	}

	if !hasAny {
		if err := s.populateHistory(ctx, ticker); err != nil {
			log.Printf("valuation: history fetch failed for %s: %v", ticker, err)
			return 0, false
		}
	}

	pp, err := s.priceRepo.GetNearestOnOrBefore(ticker, day)
	if err != nil {
		return 0, false
	}
	return pp.Price, true
}

// populateHistory fetches a ticker's full daily close history and persists it.
func (s *ValuationService) populateHistory(ctx context.Context, ticker string) error {
	closes, err := s.source.GetHistoricalPrices(ctx, ticker, time.Now().UTC())
	if err != nil {
		return err
	}
	if len(closes) == 0 {
		return nil
	}
	if err := s.priceRepo.BulkUpsert(ctx, ticker, closes); err != nil {
		return fmt.Errorf("failed to store price history for %s: %w", ticker, err)
	}
	log.Printf("valuation: cached %d closes for %s", len(closes), ticker)
	return nil
}

// resolvePrice walks the resolver chain in order and returns the first usable
// price together with the resolver that produced it.
func resolvePrice(ctx context.Context, chain []PriceResolver, ticker string) (float64, string, bool) {
	for _, r := range chain {
		if price, ok := r.Resolve(ctx, ticker); ok {
			return price, r.Name(), true
		}
	}
	return 0, "", false
}

// lastCloseOnOrBefore picks the latest close at or before day from an
// ascending price slice.
func lastCloseOnOrBefore(points []model.PricePoint, day time.Time) (float64, bool) {
	for i := len(points) - 1; i >= 0; i-- {
		if !points[i].Date.After(day) && points[i].Price > 0 {
			return points[i].Price, true
		}
	}
	return 0, false
}
