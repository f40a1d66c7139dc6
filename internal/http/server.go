package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"caixinha/internal/cache"
	applog "caixinha/internal/log"
	"caixinha/internal/services"
	"caixinha/internal/tables"
	appweb "caixinha/web"
)

// Server hosts the public dashboard and the admin surface.
type Server struct {
	http.Server
	templates   *template.Template
	svc         *services.TreasuryService
	editor      tables.RawEditor
	adminSecret string
	rateLimiter *rateLimiter
	secMetrics  *securityMetrics

	// Dashboard view data cached between writes.
	summaryCache *cache.LRUCache[dashboardView]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
// editor may be nil when the backend has no raw table editing support.
func NewServer(addr string, svc *services.TreasuryService, editor tables.RawEditor, adminSecret string) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		svc:          svc,
		editor:       editor,
		adminSecret:  adminSecret,
		rateLimiter:  newRateLimiter(),
		secMetrics:   &securityMetrics{},
		summaryCache: newSummaryCache(),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	if adminSecret == "" {
		slog.Warn("ADMIN_SECRET not set, admin routes are disabled")
	}

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	// Public surface
	mux.HandleFunc("/", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("/requests", s.withSecurityHeaders(s.handleSubmitRequest))

	// UI partials
	mux.HandleFunc("/ui/summary", s.withSecurityHeaders(s.handleSummaryPartial))
	mux.HandleFunc("/ui/debtors", s.withSecurityHeaders(s.handleDebtorsPartial))
	mux.HandleFunc("/ui/requests", s.withSecurityHeaders(s.handleRequestsPartial))

	// Admin surface
	mux.HandleFunc("/admin/login", s.withSecurityHeaders(s.handleAdminLogin))
	mux.HandleFunc("/admin/logout", s.withSecurityHeaders(s.handleAdminLogout))
	mux.HandleFunc("/admin", s.withSecurityHeaders(s.withAdmin(s.handleAdminIndex)))
	mux.HandleFunc("/admin/entries", s.withSecurityHeaders(s.withAdmin(s.handleRecordEntry)))
	mux.HandleFunc("/admin/debtors", s.withSecurityHeaders(s.withAdmin(s.handleAddDebtor)))
	mux.HandleFunc("/admin/settle", s.withSecurityHeaders(s.withAdmin(s.handleSettle)))
	mux.HandleFunc("/admin/requests/status", s.withSecurityHeaders(s.withAdmin(s.handleSetRequestStatus)))
	mux.HandleFunc("/admin/tables", s.withSecurityHeaders(s.withAdmin(s.handleTables)))
	mux.HandleFunc("/admin/import/ledger", s.withSecurityHeaders(s.withAdmin(s.handleImportLedger)))
	mux.HandleFunc("/admin/import/debtors", s.withSecurityHeaders(s.withAdmin(s.handleImportDebtors)))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request logging to responses
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		if detectSuspiciousRequest(r, s.secMetrics) {
			slog.WarnContext(ctx, "Suspicious request pattern",
				"request_id", requestID,
				"client_ip", clientIP,
				"url", r.URL.String())
		}

		// Rate limit mutating requests only
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP, s.secMetrics) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(int(writeWindow.Seconds())))
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com 'unsafe-eval'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		applog.LogHTTPEnd(ctx, applog.FromContext(ctx), r, rw.statusCode, duration.Milliseconds(), clientIP)
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

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("templates not loaded"))
		return
	}
	if _, err := s.svc.Ledger(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("store unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
