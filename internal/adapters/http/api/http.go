// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/arryn/arryn/internal/adapters/source"
	service "github.com/arryn/arryn/internal/app"
	"github.com/arryn/arryn/internal/domain/ingest"
	"github.com/arryn/arryn/internal/domain/model"
	"github.com/arryn/arryn/internal/domain/stats"
	"github.com/arryn/arryn/pkg/logger"
	"github.com/arryn/arryn/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	// Ingest queues a payload of scraped documents. Returns
	// service.ErrBackpressure when the queue is full.
	Ingest(ctx context.Context, body []byte) (service.IngestResult, error)

	ListDocuments(ctx context.Context, limit int) ([]model.Document, error)
	Document(ctx context.Context, id string) (model.Document, error)
	Details(ctx context.Context, id string) (service.DocumentDetails, error)
	AllDetails(ctx context.Context, limit int) ([]service.DocumentDetails, error)

	Brands(ctx context.Context, category string) ([]model.Facet, error)
	Categories(ctx context.Context) ([]model.Facet, error)
	OffersByCategory(ctx context.Context, category string, limit int) ([]model.Offer, error)
	BestPrices(ctx context.Context, category string, f service.BestPriceFilter, limit int) ([]model.PricedOffer, error)

	PriceComparison(ctx context.Context, query string) (stats.PriceComparison, error)
	RankOffers(ctx context.Context, category string, limit int) ([]model.ScoredOffer, error)
	TrendingOffers(ctx context.Context, days, limit int) ([]model.TrendGroup, error)
	StoreReport(ctx context.Context, category string, days int) (service.StoreReport, error)
	PriceReport(ctx context.Context, category string, days int) (service.PriceReport, error)
}

// StoreNotifier is implemented by dependencies that write ingested documents
// asynchronously. fn runs after each write.
type StoreNotifier interface {
	OnStored(fn func())
}

// Server wires HTTP routes for the offers API.
type Server struct {
	deps  Dependencies
	stats StatsProvider

	defaultLimit int
	maxLimit     int
	trendingDays int
	reportDays   int
	maxBodyBytes int64

	limiter    *rateLimiter
	trustProxy bool
	cache      *responseCache
	slow       time.Duration
	logger     logger.Logger
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:         deps,
		stats:        statsProvider,
		defaultLimit: 20,
		maxLimit:     100,
		trendingDays: 7,
		reportDays:   30,
		maxBodyBytes: 16 << 20,
		slow:         time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("http")
	}
	if s.limiter != nil {
		s.limiter.trustProxy = s.trustProxy
	}
	if n, ok := deps.(StoreNotifier); ok && s.cache != nil {
		n.OnStored(s.cache.Purge)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.handleStats, "stats"))

	mux.HandleFunc("POST /api/archivos", s.route("ingest", false, s.handleIngest))
	mux.HandleFunc("GET /api/archivos", s.route("documents", true, s.handleListDocuments))
	mux.HandleFunc("GET /api/archivos/detalles", s.route("all_details", true, s.handleAllDetails))
	mux.HandleFunc("GET /api/archivos/{id}", s.route("document", true, s.handleDocument))
	mux.HandleFunc("GET /api/archivos/{id}/detalles", s.route("details", true, s.handleDetails))

	mux.HandleFunc("GET /api/brands", s.route("brands", true, s.handleBrands))
	mux.HandleFunc("GET /api/categories", s.route("categories", true, s.handleCategories))
	mux.HandleFunc("GET /api/offers/{category}", s.route("offers", true, s.handleOffers))
	mux.HandleFunc("GET /api/best-prices/{category}", s.route("best_prices", true, s.handleBestPrices))

	mux.HandleFunc("GET /api/price-comparison", s.route("price_comparison", true, s.handlePriceComparison))
	mux.HandleFunc("GET /api/ranked-offers", s.route("ranked_offers", true, s.handleRankedOffers))
	mux.HandleFunc("GET /api/trending-offers", s.route("trending_offers", true, s.handleTrendingOffers))
	mux.HandleFunc("GET /api/reports/stores", s.route("store_report", true, s.handleStoreReport))
	mux.HandleFunc("GET /api/reports/prices/{category}", s.route("price_report", true, s.handlePriceReport))
}

// route stacks the middleware every API endpoint shares. Cacheable routes
// are served from the response cache when it is enabled.
func (s *Server) route(endpoint string, cacheable bool, h http.HandlerFunc) http.HandlerFunc {
	if cacheable && s.cache != nil {
		h = s.cache.middleware(h)
	}
	if s.limiter != nil {
		h = s.limiter.middleware(h)
	}
	h = LoggingMiddleware(s.logger, s.slow, h)
	return MetricsMiddleware(h, endpoint)
}

type errorResponse struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

// writeJSON encodes v before the status is sent so an unencodable value
// becomes a 500 instead of a truncated 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		logger.Get().Named("http").Error(context.Background(), "response encoding failed", logger.Error(err))
		buf.Reset()
		status = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(errorResponse{
			Code:    "internal_error",
			Message: http.StatusText(status),
		})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func writeRetry(w http.ResponseWriter, code string, retryAfter time.Duration, err error) {
	secs := int(math.Ceil(retryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeJSON(w, http.StatusTooManyRequests, errorResponse{
		Code:       code,
		Message:    err.Error(),
		RetryAfter: secs,
	})
}

// backpressureRetry is the hint sent with 429 when the ingest queue is full.
const backpressureRetry = time.Second

// classify maps service and domain errors to a status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrLimitExceeded):
		return http.StatusBadRequest, "limit_exceeded"
	case errors.Is(err, service.ErrBadRequest), errors.Is(err, ErrBadRequest),
		errors.Is(err, ingest.ErrEmptyPayload), errors.Is(err, ingest.ErrMalformed):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, "payload_too_large"
	case errors.Is(err, stats.ErrNoData):
		return http.StatusNotFound, "no_data"
	case errors.Is(err, source.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeServiceError renders err. Internal errors are logged and their
// details kept out of the response.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := classify(err)
	metrics.RecordHTTPError(op, code)
	switch status {
	case http.StatusTooManyRequests:
		writeRetry(w, code, backpressureRetry, err)
	case http.StatusInternalServerError:
		s.logger.Error(r.Context(), "request failed", logger.String("op", op), logger.Error(err))
		writeError(w, status, code, nil)
	default:
		writeError(w, status, code, err)
	}
}

// orEmpty keeps empty results encoded as [] rather than null.
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
