package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/signalist/signalist/pkg/models"
	"github.com/signalist/signalist/pkg/utils"
)

// handleNews serves GET /api/v1/news?symbols=AAPL,MSFT. Without symbols it
// returns general market news.
func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	symbols := utils.SplitSymbols(r.URL.Query().Get("symbols"))

	articles, err := s.market.News(r.Context(), symbols)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: articles})
}

// handleSearch serves GET /api/v1/search?q=apple. An empty query returns
// popular stocks.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	results := s.market.SearchStocks(r.Context(), r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    s.markWatchlisted(r.Context(), results),
	})
}

// markWatchlisted sets IsInWatchlist on a copy of results. A store error
// leaves every flag false.
func (s *Server) markWatchlisted(ctx context.Context, results []models.StockSearchResult) []models.StockSearchResult {
	out := make([]models.StockSearchResult, len(results))
	copy(out, results)
	if len(out) == 0 {
		return out
	}

	symbols, err := s.watchlist.Symbols(ctx)
	if err != nil {
		s.logger.Warn("reading watchlist for search results", zap.Error(err))
		return out
	}
	saved := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		saved[sym] = struct{}{}
	}
	for i := range out {
		_, out[i].IsInWatchlist = saved[utils.NormalizeSymbol(out[i].Symbol)]
	}
	return out
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	symbol, ok := symbolParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: s.market.Snapshot(r.Context(), symbol)})
}

func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	symbol, ok := symbolParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: s.market.CompanyDetails(r.Context(), symbol)})
}

// handleAggregates serves GET /api/v1/stocks/{symbol}/aggregates with
// optional timespan, from and to. from and to must be given together.
func (s *Server) handleAggregates(w http.ResponseWriter, r *http.Request) {
	symbol, ok := symbolParam(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	timespan := models.ParseTimespan(q.Get("timespan"))

	var rng *models.DateRange
	from, to := q.Get("from"), q.Get("to")
	if from != "" || to != "" {
		if !utils.ValidDate(from) || !utils.ValidDate(to) {
			writeError(w, http.StatusBadRequest, "from and to must both be dates in YYYY-MM-DD form")
			return
		}
		if from > to {
			writeError(w, http.StatusBadRequest, "from must not be after to")
			return
		}
		rng = &models.DateRange{From: from, To: to}
	}

	bars := s.market.Aggregates(r.Context(), symbol, timespan, rng)
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: bars})
}

// symbolParam reads and validates the {symbol} path parameter.
func symbolParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	symbol := utils.NormalizeSymbol(chi.URLParam(r, "symbol"))
	if !utils.IsValidSymbol(symbol) {
		writeError(w, http.StatusBadRequest, "invalid symbol")
		return "", false
	}
	return symbol, true
}
