package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"finboard/internal/auth"
	applog "finboard/internal/log"
	"finboard/internal/middleware/ratelimit"
	"finboard/internal/middleware/security"
	"finboard/internal/middleware/trace"
	"finboard/internal/services"
)

// Options configures a Server.
type Options struct {
	Addr              string
	Verifier          *auth.Verifier
	Logger            *applog.Logger
	RateLimitPerMin   int
	RequestTimeout    time.Duration
	TrustedProxyCIDRs []string
	// Now overrides the clock used for default date windows.
	Now func() time.Time
}

type Server struct {
	http.Server
	ledger   *services.LedgerService
	limiter  *ratelimit.Limiter
	detector *security.Detector
	now      func() time.Time
}

func NewServer(opts Options, ledger *services.LedgerService) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	s := &Server{
		ledger:   ledger,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMin}),
		detector: security.NewDetector(),
		now:      opts.Now,
	}
	for _, cidr := range opts.TrustedProxyCIDRs {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			opts.Logger.Warn("Ignoring trusted proxy", applog.FieldError, err)
		}
	}

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(opts),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(applog.Middleware(opts.Logger.WithComponent(applog.ComponentHTTP)))
	r.Use(trace.NewMiddleware(s.detector.ExtractClientIP).Middleware)
	r.Use(middleware.Recoverer)
	r.Use(s.detector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusNotFound, "not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(opts.Verifier, unauthorized))
		r.Use(s.limiter.Middleware(s.limitKey, ratelimit.Mutating, func(w http.ResponseWriter, r *http.Request) {
			ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
		}))
		r.Use(middleware.Timeout(opts.RequestTimeout))

		r.Route("/accounts", func(r chi.Router) {
			h := accountHandlers(s.ledger)
			r.Get("/", h.handleList)
			r.Post("/", h.handleCreate)
			r.Post("/bulk-delete", h.handleBulkDelete)
			r.Get("/{id}", h.handleGet)
			r.Patch("/{id}", h.handleUpdate)
			r.Delete("/{id}", h.handleDelete)
		})
		r.Route("/categories", func(r chi.Router) {
			h := categoryHandlers(s.ledger)
			r.Get("/", h.handleList)
			r.Post("/", h.handleCreate)
			r.Post("/bulk-delete", h.handleBulkDelete)
			r.Get("/{id}", h.handleGet)
			r.Patch("/{id}", h.handleUpdate)
			r.Delete("/{id}", h.handleDelete)
		})
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleListTransactions)
			r.Post("/", s.handleCreateTransaction)
			r.Get("/export", s.handleExportTransactions)
			r.Post("/bulk-create", s.handleBulkCreateTransactions)
			r.Post("/bulk-delete", s.handleBulkDeleteTransactions)
			r.Get("/{id}", s.handleGetTransaction)
			r.Patch("/{id}", s.handleUpdateTransaction)
			r.Delete("/{id}", s.handleDeleteTransaction)
		})
		r.Get("/summary", s.handleSummary)
	})
	return r
}

// limitKey limits per user; the client IP is the fallback for safety.
func (s *Server) limitKey(r *http.Request) string {
	if userID, err := auth.UserID(r.Context()); err == nil {
		return "user:" + userID
	}
	return "ip:" + s.detector.ExtractClientIP(r)
}

// Shutdown stops accepting requests and the rate limiter's housekeeping.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse(map[string]string{"status": "ok"}).Write(w)
}

// handleReady reports ready only while the database answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.ledger.Ping(ctx); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
		ErrorResponse(http.StatusServiceUnavailable, "database unavailable").Write(w)
		return
	}
	NewJSONResponse(map[string]string{"status": "ready"}).Write(w)
}
