// Package http serves the household ledger JSON API and the SSE
// subscription feed.
package http

import (
	"net/http"
	"time"

	"casaspese/internal/cache"
	"casaspese/internal/config"
	"casaspese/internal/core"
	applog "casaspese/internal/log"
	"casaspese/internal/metrics"
	"casaspese/internal/middleware/ratelimit"
	"casaspese/internal/middleware/security"
	"casaspese/internal/middleware/trace"
	"casaspese/internal/services"
)

const cacheMaxEntries = 256

type Server struct {
	svc     *services.LedgerService
	limiter *ratelimit.Limiter
	logger  *applog.Logger

	// Chart and insight responses are memoized per household and
	// invalidated when the household records a new expense.
	chartCache   *cache.Cache[[]core.TimeBucket]
	insightCache *cache.Cache[services.InsightReport]

	mux *http.ServeMux
}

func NewServer(svc *services.LedgerService, cfg *config.Config, logger *applog.Logger) *Server {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	s := &Server{
		svc:          svc,
		limiter:      ratelimit.NewLimiter(cfg.RateLimitPerMinute),
		logger:       logger.WithComponent("http"),
		chartCache:   cache.New[[]core.TimeBucket](cacheMaxEntries, ttl),
		insightCache: cache.New[services.InsightReport](cacheMaxEntries, ttl),
		mux:          http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/households", s.handleCreateHousehold)
	s.mux.HandleFunc("POST /api/households/join", s.handleJoinHousehold)
	s.mux.HandleFunc("GET /api/households/{id}", s.handleGetHousehold)
	s.mux.HandleFunc("GET /api/households/{id}/expenses", s.handleListExpenses)
	s.mux.HandleFunc("POST /api/households/{id}/expenses", s.handleCreateExpense)
	s.mux.HandleFunc("GET /api/households/{id}/chart", s.handleChart)
	s.mux.HandleFunc("GET /api/households/{id}/insights", s.handleInsights)
	s.mux.HandleFunc("GET /api/households/{id}/suggest", s.handleSuggest)
	s.mux.HandleFunc("GET /api/households/{id}/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/currencies", s.handleCurrencies)
	s.mux.HandleFunc("GET /api/categories", s.handleCategories)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", metrics.Handler())
}

// Handler wires the middleware chain around the mux.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = s.limiter.Middleware(h)
	h = metrics.Middleware(h)
	h = applog.RequestMiddleware(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = trace.Middleware(h)
	return h
}

// Close stops background goroutines owned by the server.
func (s *Server) Close() {
	s.limiter.Stop()
}

func (s *Server) invalidateHousehold(householdID string) {
	s.chartCache.DeletePrefix(householdID + "/")
	s.insightCache.DeletePrefix(householdID + "/")
}
