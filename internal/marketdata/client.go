// Package marketdata fetches current and historical closing prices from the
// external chart API. It is the only component that talks to the provider;
// everything else reads through the persisted price cache.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/stockfolio/performance-backend/internal/apperrors"
)

// Client provides methods for fetching price data from the provider's chart
// API. Calls are rate-limited, and concurrent requests for the same symbol
// coalesce into a single upstream call via singleflight.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	limiter    *rate.Limiter
	group      singleflight.Group
}

// NewClient creates a provider client.
//
// Parameters:
//   - baseURL: provider chart API root, e.g. "https://query1.finance.yahoo.com"
//   - apiToken: optional bearer token; empty means unauthenticated access
//   - timeout: per-request time budget; exceeding it surfaces as
//     apperrors.ErrExternalPriceTimeout so callers fall back to cached pricing
//   - requestsPerSecond: provider rate limit honored across all goroutines
func NewClient(baseURL, apiToken string, timeout time.Duration, requestsPerSecond float64) *Client {
	return &Client{
		baseURL:    baseURL,
		apiToken:   apiToken,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// GetCurrentPrice fetches the latest available close for a symbol.
// The provider is queried for the last five trading days and the most recent
// close is returned; returns an error (never a zero price) when no data is
// available.
func (c *Client) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	v, err, _ := c.group.Do("current|"+symbol, func() (any, error) {
		reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=5d", c.baseURL, symbol)

		chart, err := c.queryChart(ctx, symbol, reqURL)
		if err != nil {
			return 0.0, err
		}

		if len(chart.Indicators) == 0 {
			return 0.0, fmt.Errorf("%w: %s", apperrors.ErrNoExternalData, symbol)
		}

		return chart.Indicators[len(chart.Indicators)-1].PriceClose, nil
	})
	if err != nil {
		return 0, err
	}

	return v.(float64), nil
}

// GetHistoricalPrices fetches daily closes for a symbol up to asOf and
// returns them keyed by "2006-01-02" date. The request spans the provider's
// whole available history rather than a single date so one rate-limited call
// populates the persisted cache for every date the symbol will ever need.
//
// Concurrent calls for the same symbol coalesce into one upstream request.
func (c *Client) GetHistoricalPrices(ctx context.Context, symbol string, asOf time.Time) (map[string]float64, error) {
	v, err, _ := c.group.Do("history|"+symbol, func() (any, error) {
		// period1=0 asks for the full listing history.
		reqURL := fmt.Sprintf(
			"%s/v8/finance/chart/%s?interval=1d&period1=0&period2=%d",
			c.baseURL,
			symbol,
			asOf.Unix(),
		)

		chart, err := c.queryChart(ctx, symbol, reqURL)
		if err != nil {
			return nil, err
		}

		prices := make(map[string]float64, len(chart.Indicators))
		for _, ind := range chart.Indicators {
			if ind.PriceClose > 0 {
				prices[ind.Date.Format("2006-01-02")] = ind.PriceClose
			}
		}

		if len(prices) == 0 {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrNoExternalData, symbol)
		}

		return prices, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(map[string]float64), nil
}

// ParseChart converts a raw provider response into a structured price chart.
// Validates that timestamps and closes are present and of matching lengths.
func ParseChart(result Response) (PriceChart, error) {
	if len(result.Chart.Result) == 0 {
		return PriceChart{}, fmt.Errorf("%w: empty result", apperrors.ErrNoExternalData)
	}

	r := result.Chart.Result[0]

	if len(r.Timestamp) == 0 {
		return PriceChart{}, fmt.Errorf("no price data returned")
	}
	if len(r.Indicators.Quote) == 0 || len(r.Indicators.Quote[0].Close) == 0 {
		return PriceChart{}, fmt.Errorf("no close prices returned")
	}
	if len(r.Indicators.Quote[0].Close) != len(r.Timestamp) {
		return PriceChart{}, fmt.Errorf("mismatched data lengths")
	}

	indicators := make([]Indicators, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		indicators[i].Date = time.Unix(ts, 0).UTC().Truncate(24 * time.Hour)
		indicators[i].PriceOpen = r.Indicators.Quote[0].Open[i]
		indicators[i].PriceClose = r.Indicators.Quote[0].Close[i]
		indicators[i].Volume = r.Indicators.Quote[0].Volume[i]
		indicators[i].PriceHigh = r.Indicators.Quote[0].High[i]
		indicators[i].PriceLow = r.Indicators.Quote[0].Low[i]
	}

	return PriceChart{
		Symbol:     r.Meta.Symbol,
		Currency:   r.Meta.Currency,
		Exchange:   r.Meta.ExchangeName,
		LongName:   r.Meta.LongName,
		Indicators: indicators,
	}, nil
}

// queryChart executes one rate-limited HTTP request and parses the response.
// Transport timeouts are classified as apperrors.ErrExternalPriceTimeout so
// the valuation engine can fall back instead of failing.
func (c *Client) queryChart(ctx context.Context, symbol, reqURL string) (PriceChart, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return PriceChart{}, fmt.Errorf("rate limiter interrupted: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return PriceChart{}, err
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return PriceChart{}, fmt.Errorf("%w: %s", apperrors.ErrExternalPriceTimeout, symbol)
		}
		return PriceChart{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return PriceChart{}, err
	}

	var response Response
	if err := json.Unmarshal(data, &response); err != nil {
		return PriceChart{}, err
	}

	if response.Chart.Error != nil {
		return PriceChart{}, fmt.Errorf("provider error for %s: %s", symbol, *response.Chart.Error)
	}

	return ParseChart(response)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Timeout()
}
