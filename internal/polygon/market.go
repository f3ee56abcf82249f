package polygon

import (
	"context"
	"fmt"
	"net/url"
	"slices"

	"go.uber.org/zap"

	"github.com/signalist/signalist/pkg/models"
	"github.com/signalist/signalist/pkg/utils"
)

// defaultRangeDays is the window used when Aggregates gets no date range.
const defaultRangeDays = 30

// Snapshot returns the latest price for symbol, or nil when the provider
// has no snapshot or the call fails.
func (c *Client) Snapshot(ctx context.Context, symbol string) *models.PriceSnapshot {
	sym := symbolPath(symbol)
	snap, _ := snapshotCap.run(ctx, c.logger, func(ctx context.Context) (*models.PriceSnapshot, error) {
		var resp snapshotResponse
		path := "/v2/snapshot/locale/us/markets/stocks/tickers/" + sym
		if err := c.fetchJSON(ctx, path, nil, snapshotCap.revalidate, &resp); err != nil {
			return nil, err
		}
		return snapshotFrom(resp.Ticker), nil
	}, zap.String("symbol", sym))
	return snap
}

// Aggregates returns one bar per timespan for symbol, oldest first. A nil
// or incomplete rng means the trailing 30 days. Unknown timespans are
// treated as daily. Failures yield an empty slice.
func (c *Client) Aggregates(ctx context.Context, symbol string, timespan models.Timespan, rng *models.DateRange) []models.OHLCBar {
	sym := symbolPath(symbol)
	if !timespan.Valid() {
		timespan = models.TimespanDay
	}

	var from, to string
	if rng != nil && rng.From != "" && rng.To != "" {
		from, to = rng.From, rng.To
	} else {
		from, to = utils.DateRange(defaultRangeDays, c.now())
	}

	bars, _ := aggregatesCap.run(ctx, c.logger, func(ctx context.Context) ([]models.OHLCBar, error) {
		q := url.Values{}
		q.Set("adjusted", "true")
		q.Set("sort", "asc")

		path := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/%s/%s/%s",
			sym, timespan, url.PathEscape(from), url.PathEscape(to))

		var resp aggregatesResponse
		if err := c.fetchJSON(ctx, path, q, aggregatesCap.revalidate, &resp); err != nil {
			return nil, err
		}

		bars := barsFrom(resp.Results)
		slices.SortStableFunc(bars, func(a, b models.OHLCBar) int {
			switch {
			case a.Timestamp < b.Timestamp:
				return -1
			case a.Timestamp > b.Timestamp:
				return 1
			}
			return 0
		})
		return bars, nil
	}, zap.String("symbol", sym), zap.String("timespan", string(timespan)), zap.String("from", from), zap.String("to", to))
	return bars
}

// CompanyDetails returns the reference profile for symbol, or nil when the
// provider has none or the call fails.
func (c *Client) CompanyDetails(ctx context.Context, symbol string) *models.CompanyDetails {
	sym := symbolPath(symbol)
	details, _ := detailsCap.run(ctx, c.logger, func(ctx context.Context) (*models.CompanyDetails, error) {
		var resp tickerDetailsResponse
		if err := c.fetchJSON(ctx, "/v3/reference/tickers/"+sym, nil, detailsCap.revalidate, &resp); err != nil {
			return nil, err
		}
		return detailsFrom(resp.Results), nil
	}, zap.String("symbol", sym))
	return details
}
