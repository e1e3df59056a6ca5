// Package http exposes the ledger over a JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"khata/internal/cache"
	"khata/internal/services"
)

type Server struct {
	http.Server
	ledger      *services.LedgerService
	rateLimiter *rateLimiter
	cacheMgr    *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
// The cache manager's cleanup loop is started here and stopped on Shutdown.
func NewServer(addr string, ledger *services.LedgerService, cacheMgr *cache.Manager, ratePerMinute int) *Server {
	router := mux.NewRouter()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: router,
		},
		ledger:      ledger,
		rateLimiter: newRateLimiter(ratePerMinute),
		cacheMgr:    cacheMgr,
	}

	if s.cacheMgr != nil {
		s.cacheMgr.StartCleanup(10 * time.Minute)
	}

	router.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	router.HandleFunc("/accounts", s.withSecurityHeaders(s.handleCreateAccount)).Methods(http.MethodPost)
	router.HandleFunc("/accounts", s.withSecurityHeaders(s.handleListAccounts)).Methods(http.MethodGet)
	router.HandleFunc("/accounts/{id}", s.withSecurityHeaders(s.handleGetAccount)).Methods(http.MethodGet)
	router.HandleFunc("/accounts/{id}/summary", s.withSecurityHeaders(s.handleAccountSummary)).Methods(http.MethodGet)
	router.HandleFunc("/accounts/{id}/statement.csv", s.withSecurityHeaders(s.handleAccountStatementCSV)).Methods(http.MethodGet)
	router.HandleFunc("/accounts/{id}/obligations", s.withSecurityHeaders(s.handleCreateObligation)).Methods(http.MethodPost)

	router.HandleFunc("/obligations/{id}", s.withSecurityHeaders(s.handleGetObligation)).Methods(http.MethodGet)
	router.HandleFunc("/obligations/{id}", s.withSecurityHeaders(s.handleUpdateObligation)).Methods(http.MethodPatch)
	router.HandleFunc("/obligations/{id}/transactions", s.withSecurityHeaders(s.handleRecordTransaction)).Methods(http.MethodPost)
	router.HandleFunc("/obligations/{id}/transactions", s.withSecurityHeaders(s.handleListTransactions)).Methods(http.MethodGet)

	router.HandleFunc("/cheques", s.withSecurityHeaders(s.handleCreateCheque)).Methods(http.MethodPost)
	router.HandleFunc("/cheques", s.withSecurityHeaders(s.handleListCheques)).Methods(http.MethodGet)
	router.HandleFunc("/cheques/{id}/clear", s.withSecurityHeaders(s.handleClearCheque)).Methods(http.MethodPost)
	router.HandleFunc("/cheques/{id}/bounce", s.withSecurityHeaders(s.handleBounceCheque)).Methods(http.MethodPost)

	router.HandleFunc("/expenses", s.withSecurityHeaders(s.handleAddExpense)).Methods(http.MethodPost)
	router.HandleFunc("/expenses", s.withSecurityHeaders(s.handleListExpenses)).Methods(http.MethodGet)
	router.HandleFunc("/expenses/overview", s.withSecurityHeaders(s.handleExpenseOverview)).Methods(http.MethodGet)

	return s
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.cacheMgr != nil {
			s.cacheMgr.Stop()
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, request IDs and
// request logging.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		// Rate limit writes only; reads are cheap and cache-backed.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
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
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// Ready once storage answers; an empty ledger is still ready.
	if _, err := s.ledger.ListAccounts(r.Context(), ""); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
