// Package http serves the JSON report and ingest API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	applog "finawise/internal/log"
	"finawise/internal/services"
)

type Server struct {
	http.Server
	reports     *services.ReportService
	ingest      *services.IngestService
	rateLimiter *rateLimiter

	// Report responses are cached as encoded JSON keyed by path+query.
	// Any write purges the whole cache; reports are cheap to recompute.
	reportCache *lruCache[[]byte]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, reports *services.ReportService, ingest *services.IngestService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		reports:          reports,
		ingest:           ingest,
		rateLimiter:      newRateLimiter(),
		reportCache:      newLRUCache[[]byte](200, 1*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	// Start periodic cache cleanup
	go s.startCacheCleanup()

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/api/reports/overview", s.withMiddleware(s.handleOverview))
	mux.HandleFunc("/api/reports/monthly", s.withMiddleware(s.handleMonthlyTrend))
	mux.HandleFunc("/api/reports/categories", s.withMiddleware(s.handleCategoryBreakdown))
	mux.HandleFunc("/api/reports/subcategories", s.withMiddleware(s.handleSubCategoryBreakdown))
	mux.HandleFunc("/api/reports/communes", s.withMiddleware(s.handleCommuneBreakdown))
	mux.HandleFunc("/api/reports/regions", s.withMiddleware(s.handleRegionBreakdown))
	mux.HandleFunc("/api/reports/health", s.withMiddleware(s.handleHealthDistribution))
	mux.HandleFunc("/api/reports/ages", s.withMiddleware(s.handleAgeDistribution))

	mux.HandleFunc("/api/transactions", s.withMiddleware(s.handleCreateTransaction))
	mux.HandleFunc("/api/users", s.withMiddleware(s.handleUpsertUser))

	return s
}

// withMiddleware adds security headers, rate limiting, and request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := r.Context()

		startFields := applog.NewFields().
			WithComponent(applog.ComponentHTTP).
			WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery)
		startFields[applog.FieldRequestID] = requestID
		startFields[applog.FieldClientIP] = clientIP
		slog.InfoContext(ctx, "Request started", startFields.ToSlice()...)

		// Apply rate limiting to writes only
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		endFields := applog.NewFields().
			WithComponent(applog.ComponentHTTP).
			WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery).
			WithHTTPResponse(rw.statusCode, duration.Milliseconds(), rw.statusCode < 400)
		endFields[applog.FieldRequestID] = requestID
		endFields[applog.FieldClientIP] = clientIP
		slog.InfoContext(ctx, "Request completed", endFields.ToSlice()...)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// startCacheCleanup runs periodic cleanup for the report cache.
func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cleaned := s.reportCache.CleanExpired(); cleaned > 0 {
				slog.Debug("Cache cleanup completed", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
