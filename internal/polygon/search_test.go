package polygon

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalist/signalist/internal/infra"
	"github.com/signalist/signalist/pkg/models"
	"github.com/signalist/signalist/pkg/utils"
)

func detailsBody(sym, name, exchange string) string {
	return fmt.Sprintf(`{"status":"OK","results":{"ticker":%q,"name":%q,"market":"stocks","locale":"us",
		"primary_exchange":%q,"type":"CS","active":true,"market_cap":1000,"total_employees":5,
		"homepage_url":"https://example.com","list_date":"1980-12-12","description":"d",
		"branding":{"logo_url":"https://logo"}}}`, sym, name, exchange)
}

func TestSearchEmptyQueryReturnsPopular(t *testing.T) {
	fp := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		sym := strings.TrimPrefix(r.URL.Path, "/v3/reference/tickers/")
		if sym == "TSLA" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, detailsBody(sym, sym+" Inc", "XNAS"))
	})
	c := newTestClient(fp)

	got := c.SearchStocks(context.Background(), "   ")

	var want []string
	for _, s := range utils.PopularSymbols[:10] {
		if s != "TSLA" {
			want = append(want, s)
		}
	}
	var syms []string
	for _, r := range got {
		syms = append(syms, r.Symbol)
		assert.False(t, r.IsInWatchlist)
		assert.Equal(t, "XNAS", r.Exchange)
	}
	assert.Equal(t, want, syms, "list order kept, failed lookup skipped")
	assert.EqualValues(t, 10, fp.hits.Load())
}

func TestSearchQuery(t *testing.T) {
	var (
		mu  sync.Mutex
		got map[string]string
	)
	fp := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		got = map[string]string{
			"path":   r.URL.Path,
			"search": r.URL.Query().Get("search"),
			"active": r.URL.Query().Get("active"),
			"market": r.URL.Query().Get("market"),
			"limit":  r.URL.Query().Get("limit"),
		}
		mu.Unlock()

		var rows []string
		rows = append(rows, `{"ticker":"aapl","name":"","active":true}`)
		for i := 0; i < 19; i++ {
			rows = append(rows, fmt.Sprintf(`{"ticker":"T%d","name":"Name %d","primary_exchange":"XNYS","type":"ETF"}`, i, i))
		}
		writeJSON(w, `{"status":"OK","results":[`+strings.Join(rows, ",")+`]}`)
	})
	c := newTestClient(fp)

	results := c.SearchStocks(context.Background(), "  apple ")
	require.Len(t, results, MaxSearchResults)
	assert.Equal(t, models.StockSearchResult{
		Symbol:   "AAPL",
		Name:     "aapl",
		Exchange: "US",
		Type:     "Stock",
	}, results[0])
	assert.Equal(t, "XNYS", results[1].Exchange)
	assert.Equal(t, "ETF", results[1].Type)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/v3/reference/tickers", got["path"])
	assert.Equal(t, "apple", got["search"])
	assert.Equal(t, "true", got["active"])
	assert.Equal(t, "stocks", got["market"])
	assert.Equal(t, "15", got["limit"])
}

func TestSearchFailureIsEmpty(t *testing.T) {
	fp := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	c := newTestClient(fp)

	got := c.SearchStocks(context.Background(), "apple")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSearchMissingAPIKeyIsEmpty(t *testing.T) {
	got := New("").SearchStocks(context.Background(), "")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSearchMemoServesRepeatQueries(t *testing.T) {
	fp := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"status":"OK","results":[{"ticker":"AAPL","name":"Apple"}]}`)
	})
	c := newTestClient(fp)
	ctx := WithSearchMemo(context.Background())

	first := c.SearchStocks(ctx, "apple")
	require.Len(t, first, 1)
	first[0].IsInWatchlist = true

	c.cache = infra.NewCache[[]byte]()
	second := c.SearchStocks(ctx, " apple")
	require.Len(t, second, 1)
	assert.False(t, second[0].IsInWatchlist, "memo hands out copies")
	assert.EqualValues(t, 1, fp.hits.Load())

	// A fresh request context does not see the old memo.
	c.cache = infra.NewCache[[]byte]()
	c.SearchStocks(WithSearchMemo(context.Background()), "apple")
	assert.EqualValues(t, 2, fp.hits.Load())
}

func TestSearchMemoCollapsesConcurrentQueries(t *testing.T) {
	fp := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		writeJSON(w, `{"status":"OK","results":[{"ticker":"MSFT","name":"Microsoft"}]}`)
	})
	c := newTestClient(fp)
	ctx := WithSearchMemo(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := c.SearchStocks(ctx, "micro")
			assert.Len(t, res, 1)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, fp.hits.Load())
}
