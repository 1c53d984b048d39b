package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"cuotas/internal/cache"
	"cuotas/internal/core"
	"cuotas/internal/log"
	"cuotas/internal/services"
	"cuotas/internal/storage"

	"golang.org/x/sync/singleflight"
)

// PurchaseAPI is the purchase side used by the handlers.
type PurchaseAPI interface {
	AddBatch(ctx context.Context, candidates []core.Candidate, referenceDate core.Date) (storage.BatchResult, error)
	AddManual(ctx context.Context, c core.Candidate, date core.Date) (storage.BatchResult, error)
	Update(ctx context.Context, id int64, u core.PurchaseUpdate) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]core.Purchase, error)
	Plan(ctx context.Context, id int64) (core.Purchase, []core.InstallmentRow, error)
	OnChange(fn services.ChangeListener)
}

// ReportAPI computes liquidations and the future debt series.
type ReportAPI interface {
	MonthlyReport(ctx context.Context, month core.YearMonth) (core.Report, error)
	FutureSeries(ctx context.Context, from core.YearMonth) ([]core.MonthTotal, error)
}

// StatementAPI extracts candidates from statement images.
type StatementAPI interface {
	Enabled() bool
	Extract(ctx context.Context, image []byte, mimeType string) ([]core.Candidate, error)
}

// Options configures NewServer. Zero values select the defaults.
type Options struct {
	Logger          *log.Logger
	CacheSize       int
	CacheTTL        time.Duration
	CleanupInterval time.Duration
	// Now returns the current time; used for default dates and months.
	Now func() time.Time
}

type Server struct {
	http.Server

	purchases  PurchaseAPI
	reports    ReportAPI
	statements StatementAPI
	logger     *log.Logger

	reportCache *cache.LRUCache[core.YearMonth, core.Report]
	cacheGen    atomic.Uint64
	loads       singleflight.Group
	caches      *cache.Manager

	rateLimiter *rateLimiter
	secMetrics  *securityMetrics

	started      time.Time
	now          func() time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and the report cache, returning a ready-to-run
// server. Every committed purchase change invalidates the cached months.
func NewServer(addr string, purchases PurchaseAPI, reports ReportAPI, statements StatementAPI, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 48
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = 10 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		purchases:   purchases,
		reports:     reports,
		statements:  statements,
		logger:      opts.Logger.WithComponent(log.ComponentHTTP),
		reportCache: cache.NewLRUCache[core.YearMonth, core.Report](opts.CacheSize, opts.CacheTTL),
		caches:      cache.NewManager(),
		rateLimiter: newRateLimiter(),
		secMetrics:  &securityMetrics{},
		started:     time.Now(),
		now:         opts.Now,
	}

	s.caches.Register(s.reportCache)
	s.caches.StartCleanup(context.Background(), opts.CleanupInterval)
	purchases.OnChange(s.invalidateMonths)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/purchases", s.handleListPurchases)
	mux.HandleFunc("POST /api/purchases", s.handleCreatePurchase)
	mux.HandleFunc("POST /api/purchases/batch", s.handleAddBatch)
	mux.HandleFunc("PUT /api/purchases/{id}", s.handleUpdatePurchase)
	mux.HandleFunc("DELETE /api/purchases/{id}", s.handleDeletePurchase)
	mux.HandleFunc("GET /api/purchases/{id}/plan", s.handlePlan)

	mux.HandleFunc("GET /api/reports/monthly", s.handleMonthlyReport)
	mux.HandleFunc("GET /api/reports/monthly/export", s.handleExportReport)
	mux.HandleFunc("GET /api/reports/future", s.handleFutureSeries)

	mux.HandleFunc("POST /api/statements/extract", s.handleExtractStatement)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           log.Middleware(opts.Logger)(s.withSecurity(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// invalidateMonths drops the cached reports of months. An empty list purges
// the whole cache.
func (s *Server) invalidateMonths(months []core.YearMonth) {
	s.cacheGen.Add(1)
	if len(months) == 0 {
		s.reportCache.Purge()
		return
	}
	for _, m := range months {
		s.reportCache.Delete(m)
	}
	s.logger.Debug("Report cache invalidated", "months", len(months))
}

// monthlyReport serves month from the cache, coalescing concurrent loads.
// A load that overlaps an invalidation is returned but not cached.
func (s *Server) monthlyReport(ctx context.Context, month core.YearMonth) (core.Report, error) {
	if r, ok := s.reportCache.Get(month); ok {
		log.FromContext(ctx).DebugContext(ctx, "Report cache hit", log.FieldMonth, month.String())
		return r, nil
	}

	// Waiters share the load, so it must outlive the first caller's request.
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := s.loads.Do(month.String(), func() (any, error) {
		gen := s.cacheGen.Load()
		r, err := s.reports.MonthlyReport(loadCtx, month)
		if err != nil {
			return core.Report{}, err
		}
		if s.cacheGen.Load() == gen {
			s.reportCache.Set(month, r)
		}
		return r, nil
	})
	if err != nil {
		return core.Report{}, err
	}
	return v.(core.Report), nil
}

// Shutdown stops background cleanup and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
