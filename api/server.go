// Package api provides the HTTP REST API server for Signalist.
//
// It exposes market-data lookups, the watchlist, the news digest trigger
// and a WebSocket feed of watchlist changes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/signalist/signalist/internal/config"
	"github.com/signalist/signalist/internal/watchlist"
	"github.com/signalist/signalist/pkg/models"
	"github.com/signalist/signalist/pkg/utils"
)

// MarketData is the query surface of the market-data layer.
type MarketData interface {
	News(ctx context.Context, symbols []string) ([]models.NewsArticle, error)
	SearchStocks(ctx context.Context, query string) []models.StockSearchResult
	Snapshot(ctx context.Context, symbol string) *models.PriceSnapshot
	Aggregates(ctx context.Context, symbol string, timespan models.Timespan, rng *models.DateRange) []models.OHLCBar
	CompanyDetails(ctx context.Context, symbol string) *models.CompanyDetails
}

// DigestRunner is the subset of digest.Job the API needs.
type DigestRunner interface {
	Start(ctx context.Context) bool
	Running() bool
	Last() (models.DigestResult, bool)
}

// Deps holds the components the server is built from. Digest may be nil.
type Deps struct {
	Market    MarketData
	Watchlist watchlist.Store
	Digest    DigestRunner
	Logger    *zap.Logger
	Version   string
}

// Server is the HTTP API server.
type Server struct {
	router    chi.Router
	cfg       *config.Config
	market    MarketData
	watchlist watchlist.Store
	digest    DigestRunner
	wsHub     *WSHub
	logger    *zap.Logger
	validate  *validator.Validate
	version   string
}

// NewServer creates a configured API server with all routes and middleware.
// Watchlist changes made through the server are pushed to WebSocket clients.
func NewServer(cfg *config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	hub := NewWSHub(logger)
	srv := &Server{
		cfg:       cfg,
		market:    deps.Market,
		watchlist: watchlist.Observed(deps.Watchlist, hub.Publish),
		digest:    deps.Digest,
		wsHub:     hub,
		logger:    logger,
		validate:  newValidator(),
		version:   version,
	}
	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WSHub {
	return s.wsHub
}

// ListenAndServe starts the HTTP server and shuts it down gracefully when
// ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.wsHub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server listening", zap.String("addr", addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// corsOptions allows credentials only for an explicit origin list. With no
// origins configured any origin may call the API without credentials.
func corsOptions(origins []string) cors.Options {
	opts := cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if len(origins) == 0 {
		opts.AllowedOrigins = []string{"*"}
		opts.AllowCredentials = false
	}
	return opts
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(corsOptions(s.cfg.API.CORSOrigins)))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authMiddleware(s.cfg.Auth, s.logger))
		r.Use(searchMemo)

		r.Get("/health", s.handleHealth)

		// WebSocket is not wrapped in the timeout below.
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Get("/news", s.handleNews)
			r.Get("/search", s.handleSearch)

			r.Route("/stocks/{symbol}", func(r chi.Router) {
				r.Get("/snapshot", s.handleSnapshot)
				r.Get("/aggregates", s.handleAggregates)
				r.Get("/details", s.handleDetails)
			})

			r.Get("/watchlist", s.handleListWatchlist)
			r.Post("/watchlist", s.handleAddWatchlist)
			r.Get("/watchlist/{symbol}", s.handleGetWatchlistItem)
			r.Delete("/watchlist/{symbol}", s.handleRemoveWatchlist)

			r.Get("/config/keys", s.handleConfigKeys)
		})
	})

	// The job trigger lives outside /api/v1, where schedulers expect it.
	r.Get("/api/jobs/daily-news-summary", s.handleDigestTrigger)
	r.Post("/api/jobs/daily-news-summary", s.handleDigestTrigger)
	r.Put("/api/jobs/daily-news-summary", s.handleDigestTrigger)

	return r
}

// ============================================================
// Request / Response Types
// ============================================================

// APIResponse is the standard JSON envelope for API responses. Error is a
// string, or a list of FieldError for validation failures.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Error   interface{} `json:"error,omitempty"`
}

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// HealthInfo is returned by /health.
type HealthInfo struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	MarketStatus  string `json:"market_status"`
	TimeET        string `json:"time_et"`
	DigestEnabled bool   `json:"digest_enabled"`
	WSClients     int    `json:"ws_clients"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: HealthInfo{
			Status:        "ok",
			Version:       s.version,
			MarketStatus:  utils.MarketStatus(),
			TimeET:        time.Now().In(utils.Eastern).Format(time.RFC3339),
			DigestEnabled: s.digestEnabled(),
			WSClients:     s.wsHub.ClientCount(),
		},
	})
}

func (s *Server) handleConfigKeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    config.CheckAPIKeys(s.cfg),
	})
}

// ============================================================
// Helpers
// ============================================================

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}

// writeValidationError maps validator errors to per-field messages.
func writeValidationError(w http.ResponseWriter, err error) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	fields := make([]FieldError, 0, len(ve))
	for _, fe := range ve {
		fields = append(fields, FieldError{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
		})
	}
	writeJSON(w, http.StatusBadRequest, APIResponse{Success: false, Error: fields})
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	default:
		return fe.Error()
	}
}
