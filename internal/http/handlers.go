package http

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"
)

// handleHealth is the liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks that the store answers and reports cache and security
// counters.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{}

	if _, err := s.purchases.List(ctx); err != nil {
		checks["store"] = "failed: " + err.Error()
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	if s.statements != nil && s.statements.Enabled() {
		checks["extraction"] = "enabled"
	} else {
		checks["extraction"] = "disabled"
	}

	stats := s.reportCache.Stats()
	checks["report_cache"] = map[string]any{
		"size":   stats.Size,
		"hits":   stats.Hits,
		"misses": stats.Misses,
	}
	checks["security"] = map[string]any{
		"rate_limit_hits":     atomic.LoadInt64(&s.secMetrics.rateLimitHits),
		"suspicious_requests": atomic.LoadInt64(&s.secMetrics.suspiciousRequests),
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": status,
		"checks": checks,
	})
}
