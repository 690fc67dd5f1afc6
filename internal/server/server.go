package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"piggyvault-indexer/internal/storage"
)

// Options configures the HTTP query surface.
type Options struct {
	Host string
	Port int
}

// Server exposes the ingested projection over HTTP: liveness probes plus
// read-only query endpoints for banks, deposits, withdrawal requests and
// completed withdrawals.
type Server struct {
	store  storage.QueryStore
	http   *http.Server
	logger zerolog.Logger
}

// New builds the server and its route table.
func New(opts Options, store storage.QueryStore, logger zerolog.Logger) *Server {
	s := &Server{
		store:  store,
		logger: logger.With().Str("component", "server").Logger(),
	}

	s.http = &http.Server{
		Addr:              net.JoinHostPort(opts.Host, fmt.Sprintf("%d", opts.Port)),
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/live", s.handleLive)

	r.Route("/api", func(r chi.Router) {
		r.Route("/banks", func(r chi.Router) {
			r.Get("/{bankID}", s.handleGetBank)
			r.Get("/{bankID}/deposits", s.handleListDeposits)
		})

		r.Route("/withdrawal-requests", func(r chi.Router) {
			r.Get("/stats", s.handleRequestStats)
			r.Get("/bank/{bankID}", s.handleListRequestsByBank)
			r.Get("/requester/{requester}", s.handleListRequestsByRequester)
			r.Get("/status/{status}", s.handleListRequestsByStatus)
			r.Get("/{requestID}", s.handleGetRequest)
		})

		r.Route("/withdrawals", func(r chi.Router) {
			r.Get("/stats", s.handleCompletionStats)
			r.Get("/bank/{bankID}", s.handleListCompletionsByBank)
			r.Get("/withdrawer/{withdrawer}", s.handleListCompletionsByWithdrawer)
			r.Get("/{requestID}", s.handleGetCompletion)
		})
	})

	return r
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.http.Addr).Msg("http server listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler exposes the route table, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}
