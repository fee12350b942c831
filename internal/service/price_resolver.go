package service

import (
	"context"
	"time"

	"github.com/stockfolio/performance-backend/internal/model"
	"github.com/stockfolio/performance-backend/internal/repository"
)

// PriceSource is the external price feed contract. marketdata.Client is the
// production implementation; tests substitute a fake.
type PriceSource interface {
	// GetCurrentPrice returns the latest available close for a ticker.
	GetCurrentPrice(ctx context.Context, ticker string) (float64, error)

	// GetHistoricalPrices returns daily closes up to asOf, keyed by
	// "2006-01-02" date. Implementations return the whole available range
	// so one call can bulk-populate the persisted cache.
	GetHistoricalPrices(ctx context.Context, ticker string, asOf time.Time) (map[string]float64, error)
}

// PriceResolver is one named step of the ordered price lookup chain. A
// resolver either produces a usable (positive) price or passes; it never
// errors, because a failed step just means the chain moves on.
type PriceResolver interface {
	Name() string
	Resolve(ctx context.Context, ticker string) (float64, bool)
}

// livePriceResolver asks the external source for the current price.
type livePriceResolver struct {
	source PriceSource
}

func (r livePriceResolver) Name() string { return "live" }

func (r livePriceResolver) Resolve(ctx context.Context, ticker string) (float64, bool) {
	price, err := r.source.GetCurrentPrice(ctx, ticker)
	if err != nil || price <= 0 {
		return 0, false
	}
	return price, true
}

// cachedPriceResolver falls back to the most recent persisted close.
type cachedPriceResolver struct {
	priceRepo *repository.PriceRepository
}

func (r cachedPriceResolver) Name() string { return "cached" }

func (r cachedPriceResolver) Resolve(ctx context.Context, ticker string) (float64, bool) {
	pp, err := r.priceRepo.GetLatest(ticker)
	if err != nil || pp.Price <= 0 {
		return 0, false
	}
	return pp.Price, true
}

// purchasePriceResolver is the last resort: the position's own weighted
// average purchase price. Holding the position at cost understates movement
// but keeps the total from silently dropping the position.
type purchasePriceResolver struct {
	holdings map[string]model.Holding
}

func (r purchasePriceResolver) Name() string { return "purchase" }

func (r purchasePriceResolver) Resolve(_ context.Context, ticker string) (float64, bool) {
	h, ok := r.holdings[ticker]
	if !ok || h.AvgPurchasePrice <= 0 {
		return 0, false
	}
	return h.AvgPurchasePrice, true
}
