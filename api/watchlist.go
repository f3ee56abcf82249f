package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/signalist/signalist/pkg/utils"
)

// AddWatchlistRequest is the body of POST /api/v1/watchlist. Company
// defaults to the symbol.
type AddWatchlistRequest struct {
	Symbol  string `json:"symbol" validate:"required,max=16"`
	Company string `json:"company" validate:"max=200"`
}

// WatchlistChange reports the outcome of an add or remove.
type WatchlistChange struct {
	Symbol  string `json:"symbol"`
	Changed bool   `json:"changed"`
}

// WatchlistStatus answers whether one symbol is saved.
type WatchlistStatus struct {
	Symbol        string `json:"symbol"`
	IsInWatchlist bool   `json:"isInWatchlist"`
}

func (s *Server) handleListWatchlist(w http.ResponseWriter, r *http.Request) {
	items, err := s.watchlist.List(r.Context())
	if err != nil {
		s.logger.Error("listing watchlist", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read watchlist")
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: items})
}

// handleAddWatchlist returns 201 when the symbol was added and 200 when it
// was already present.
func (s *Server) handleAddWatchlist(w http.ResponseWriter, r *http.Request) {
	var req AddWatchlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	symbol := utils.NormalizeSymbol(req.Symbol)
	if !utils.IsValidSymbol(symbol) {
		writeError(w, http.StatusBadRequest, "invalid symbol")
		return
	}
	company := req.Company
	if company == "" {
		company = symbol
	}

	added, err := s.watchlist.Add(r.Context(), symbol, company)
	if err != nil {
		s.logger.Error("adding to watchlist", zap.String("symbol", symbol), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update watchlist")
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	writeJSON(w, status, APIResponse{Success: true, Data: WatchlistChange{Symbol: symbol, Changed: added}})
}

func (s *Server) handleGetWatchlistItem(w http.ResponseWriter, r *http.Request) {
	symbol, ok := symbolParam(w, r)
	if !ok {
		return
	}
	in, err := s.watchlist.Contains(r.Context(), symbol)
	if err != nil {
		s.logger.Error("checking watchlist", zap.String("symbol", symbol), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read watchlist")
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: WatchlistStatus{Symbol: symbol, IsInWatchlist: in}})
}

// handleRemoveWatchlist returns 404 when the symbol was not saved.
func (s *Server) handleRemoveWatchlist(w http.ResponseWriter, r *http.Request) {
	symbol, ok := symbolParam(w, r)
	if !ok {
		return
	}
	removed, err := s.watchlist.Remove(r.Context(), symbol)
	if err != nil {
		s.logger.Error("removing from watchlist", zap.String("symbol", symbol), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update watchlist")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "symbol not in watchlist")
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: WatchlistChange{Symbol: symbol, Changed: true}})
}
