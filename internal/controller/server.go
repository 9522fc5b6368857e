// Package controller contains the controller-specific logic for the HTTP API.
package controller

import (
	"context"
	"net/http"
	"time"

	"farmgate/internal/controller/handlers"
	"farmgate/internal/controller/middleware"
)

// Options carries the optional pieces of the server wiring.
type Options struct {
	// APIKeyHash guards the API when non-empty.
	APIKeyHash string

	// RateLimit is requests per second per client; 0 disables limiting.
	RateLimit      float64
	RateLimitBurst int

	// Metrics is mounted at /metrics when non-nil.
	Metrics http.Handler
}

// Server is the HTTP server for the controller API.
type Server struct {
	httpServer *http.Server
}

// New creates a new controller server.
func New(addr string, h *handlers.Handlers, opts Options) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}

	// Protected apis
	protect := func(hf http.HandlerFunc) http.Handler {
		var wrapped http.Handler = hf
		wrapped = middleware.RateLimit(opts.RateLimit, opts.RateLimitBurst)(wrapped)
		if opts.APIKeyHash != "" {
			wrapped = middleware.RequireAPIKey(opts.APIKeyHash)(wrapped)
		}
		return middleware.RequestID(wrapped)
	}

	mux.Handle("POST /runs", protect(h.StartRun))
	mux.Handle("GET /runs/{id}", protect(h.GetRun))
	mux.Handle("GET /runs/{id}/report", protect(h.GetReport))
	mux.Handle("GET /history", protect(h.ListHistory))
	mux.Handle("POST /history/reconcile", protect(h.ReconcileHistory))

	return &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: mux,
			// Triggering a run blocks through three upload-and-poll
			// cycles; the write timeout has to outlast the poll budgets.
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 15 * time.Minute,
		},
	}
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
