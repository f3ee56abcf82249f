package polygon

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/signalist/signalist/pkg/models"
	"github.com/signalist/signalist/pkg/utils"
)

const (
	// MaxNewsArticles is the most articles a news query returns.
	MaxNewsArticles = 6
	// maxNewsSymbols caps the tickers sent in one news query.
	maxNewsSymbols = 5
)

// News returns up to six recent articles about symbols. Symbols are trimmed
// and uppercased and only the first five are queried. When a ticker-scoped
// query comes back empty, general market news is returned instead; a nil or
// empty symbols list asks for general news directly. The fallback looks at
// the raw page only: a scoped page whose articles all fail validation
// yields an empty result without a general re-query.
//
// Every failure, including a missing API key, is logged and reported as
// ErrNewsUnavailable.
func (c *Client) News(ctx context.Context, symbols []string) ([]models.NewsArticle, error) {
	clean := utils.CleanSymbols(symbols)

	return newsCap.run(ctx, c.logger, func(ctx context.Context) ([]models.NewsArticle, error) {
		raw, err := c.fetchNews(ctx, clean)
		if err != nil {
			return nil, err
		}
		if len(raw) == 0 && len(clean) > 0 {
			c.logger.Debug("no ticker news, falling back to general news", zap.Strings("symbols", clean))
			if raw, err = c.fetchNews(ctx, nil); err != nil {
				return nil, err
			}
		}
		return formatArticles(raw, MaxNewsArticles), nil
	}, zap.Strings("symbols", clean))
}

// fetchNews requests one page of provider articles, scoped to symbols when
// any are given.
func (c *Client) fetchNews(ctx context.Context, symbols []string) ([]newsArticle, error) {
	q := url.Values{}
	if len(symbols) > 0 {
		q.Set("ticker", strings.Join(symbols[:min(len(symbols), maxNewsSymbols)], ","))
	}
	q.Set("limit", strconv.Itoa(MaxNewsArticles))

	var resp newsResponse
	if err := c.fetchJSON(ctx, "/v2/reference/news", q, newsCap.revalidate, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}
