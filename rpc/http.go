package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tonkeeper/tongo/ton"
	"golang.org/x/time/rate"

	"tonaffiliate/core/ledger"
	"tonaffiliate/observability"
)

const (
	maxRequestBytes   = 1 << 20 // 1 MiB
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
	submitRate        = rate.Limit(5)
	submitBurst       = 10
)

const (
	codeInvalidParams = -32602
	codeNotFound      = -32004
	codeServerError   = -32000
	codeRejected      = -32010
	codeRateLimited   = -32020
)

// Server exposes the ledger over HTTP: read-only getters for the marketplace
// and its campaigns, and a submit endpoint for wallet messages.
type Server struct {
	ledger      *ledger.Ledger
	marketplace ton.AccountID
	logger      *slog.Logger

	// submitMu serializes submit and run so each response carries only the
	// receipts its own message caused.
	submitMu sync.Mutex

	limiterMu   sync.Mutex
	limiters    map[string]*rate.Limiter
	submitLimit rate.Limit
	submitBurst int
}

func NewServer(l *ledger.Ledger, marketplace ton.AccountID, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		ledger:      l,
		marketplace: marketplace,
		logger:      logger,
		limiters:    make(map[string]*rate.Limiter),
		submitLimit: submitRate,
		submitBurst: submitBurst,
	}
}

// SetSubmitRate overrides the per-source submit rate. Existing limiters are
// discarded.
func (s *Server) SetSubmitRate(limit rate.Limit, burst int) {
	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()
	s.submitLimit = limit
	s.submitBurst = burst
	s.limiters = make(map[string]*rate.Limiter)
}

// allowSubmit applies the token bucket of the request source.
func (s *Server) allowSubmit(r *http.Request) bool {
	source := clientSource(r)
	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()
	limiter, ok := s.limiters[source]
	if !ok {
		limiter = rate.NewLimiter(s.submitLimit, s.submitBurst)
		s.limiters[source] = limiter
	}
	return limiter.Allow()
}

func clientSource(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(observe)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/marketplace", s.handleMarketplace)
		r.Post("/messages", s.handleSubmit)
		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/derive", s.handleDerive)
			r.Route("/{address}", func(r chi.Router) {
				r.Get("/", s.handleCampaign)
				r.Get("/balance", s.handleCampaignBalance)
				r.Get("/stopped", s.handleCampaignStopped)
				r.Get("/owner", s.handleCampaignOwner)
				r.Get("/affiliates", s.handleAffiliates)
				r.Get("/affiliates/{id}", s.handleAffiliate)
			})
		})
	})
	return r
}

// Serve listens on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("rpc listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// observe records every request under its route pattern.
func observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		observability.ModuleMetrics().Observe(r.Method+" "+route, status, time.Since(start))
	})
}

func writeError(w http.ResponseWriter, status int, code int, message string) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResult{Error: ErrorBody{Code: code, Message: message}})
}

func writeResult(w http.ResponseWriter, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}
