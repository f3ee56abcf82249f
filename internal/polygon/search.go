package polygon

import (
	"context"
	"net/url"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/signalist/signalist/pkg/models"
	"github.com/signalist/signalist/pkg/utils"
)

const (
	// MaxSearchResults caps a ticker search.
	MaxSearchResults = 15
	// popularCount is how many popular symbols an empty search returns.
	popularCount = 10
)

// SearchStocks finds tickers matching query. An empty query returns the
// first ten popular symbols, looked up concurrently; a symbol whose lookup
// fails is left out. Results are capped at fifteen and every failure yields
// an empty list.
//
// IsInWatchlist is always false: reconciling it is the caller's job.
//
// Within a context prepared by WithSearchMemo, repeated queries are served
// from the memo and concurrent identical queries share one lookup.
func (c *Client) SearchStocks(ctx context.Context, query string) []models.StockSearchResult {
	trimmed := strings.TrimSpace(query)
	if memo := searchMemoFrom(ctx); memo != nil {
		return memo.do(trimmed, func() []models.StockSearchResult {
			return c.searchStocks(ctx, trimmed)
		})
	}
	return c.searchStocks(ctx, trimmed)
}

func (c *Client) searchStocks(ctx context.Context, query string) []models.StockSearchResult {
	results, _ := searchCap.run(ctx, c.logger, func(ctx context.Context) ([]models.StockSearchResult, error) {
		if c.apiKey == "" {
			return nil, ErrMissingAPIKey
		}

		var tickers []ticker
		if query == "" {
			tickers = c.popularTickers(ctx)
		} else {
			q := url.Values{}
			q.Set("search", query)
			q.Set("active", "true")
			q.Set("market", "stocks")
			q.Set("limit", "15")

			var resp tickerSearchResponse
			if err := c.fetchJSON(ctx, "/v3/reference/tickers", q, searchCap.revalidate, &resp); err != nil {
				return nil, err
			}
			tickers = resp.Results
		}

		out := make([]models.StockSearchResult, 0, min(len(tickers), MaxSearchResults))
		for _, t := range tickers {
			if len(out) == MaxSearchResults {
				break
			}
			if t.Ticker == "" {
				continue
			}
			out = append(out, searchResult(t))
		}
		return out, nil
	}, zap.String("query", query))
	return results
}

// popularTickers fetches details for the leading popular symbols in
// parallel. The result keeps list order and skips failed lookups.
func (c *Client) popularTickers(ctx context.Context) []ticker {
	symbols := utils.PopularSymbols[:min(len(utils.PopularSymbols), popularCount)]
	found := make([]*ticker, len(symbols))

	var g errgroup.Group
	for i, sym := range symbols {
		g.Go(func() error {
			var resp tickerDetailsResponse
			err := c.fetchJSON(ctx, "/v3/reference/tickers/"+symbolPath(sym), nil, detailsCap.revalidate, &resp)
			if err != nil {
				c.logger.Warn("popular symbol lookup failed", zap.String("symbol", sym), zap.Error(err))
				return nil
			}
			if resp.Results != nil {
				found[i] = &resp.Results.ticker
			}
			return nil
		})
	}
	_ = g.Wait()

	tickers := make([]ticker, 0, len(symbols))
	for _, t := range found {
		if t != nil {
			tickers = append(tickers, *t)
		}
	}
	return tickers
}

// --- Per-request memo ---

type searchMemoKey struct{}

type searchMemo struct {
	mu      sync.Mutex
	results map[string][]models.StockSearchResult
	group   singleflight.Group
}

// WithSearchMemo returns a context under which SearchStocks remembers each
// distinct query's results. Attach it once per inbound request.
func WithSearchMemo(ctx context.Context) context.Context {
	return context.WithValue(ctx, searchMemoKey{}, &searchMemo{
		results: make(map[string][]models.StockSearchResult),
	})
}

func searchMemoFrom(ctx context.Context) *searchMemo {
	m, _ := ctx.Value(searchMemoKey{}).(*searchMemo)
	return m
}

// do returns a private copy so callers may set IsInWatchlist freely.
func (m *searchMemo) do(query string, fn func() []models.StockSearchResult) []models.StockSearchResult {
	m.mu.Lock()
	cached, ok := m.results[query]
	m.mu.Unlock()
	if ok {
		return slices.Clone(cached)
	}

	v, _, _ := m.group.Do(query, func() (any, error) {
		m.mu.Lock()
		cached, ok := m.results[query]
		m.mu.Unlock()
		if ok {
			return cached, nil
		}
		res := fn()
		m.mu.Lock()
		m.results[query] = res
		m.mu.Unlock()
		return res, nil
	})
	return slices.Clone(v.([]models.StockSearchResult))
}
