// Package server exposes the lineage graph over HTTP. All endpoints live
// under /api/v1 and speak JSON.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/lens-io/lens/internal/graph"
	"github.com/lens-io/lens/pkg/core"
)

// Server is the lineage API server.
type Server struct {
	store     core.GraphStore
	traverser *graph.Traverser
	addr      string
	logger    *slog.Logger
}

// Config holds configuration for the API server.
type Config struct {
	Store  core.GraphStore
	Addr   string
	Logger *slog.Logger
}

// New creates the API server. The traversal engine is constructed here so
// handlers and tests share a single instance.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		store:     cfg.Store,
		traverser: graph.NewTraverser(cfg.Store, logger),
		addr:      cfg.Addr,
		logger:    logger,
	}
}

// Routes builds the HTTP handler. Exposed separately from Serve so tests can
// drive it with httptest.
func (s *Server) Routes() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		s.requestLogger,
	)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/nodes", func(r chi.Router) {
			r.Post("/", s.handleCreateNode)
			r.Get("/", s.handleListNodes)
			r.Get("/{id}", s.handleGetNode)
			r.Patch("/{id}", s.handleUpdateNode)
			r.Delete("/{id}", s.handleDeleteNode)
		})

		r.Route("/edges", func(r chi.Router) {
			r.Post("/", s.handleCreateEdge)
			r.Get("/{id}", s.handleGetEdge)
			r.Post("/{id}/close", s.handleCloseEdge)
			r.Post("/{id}/columns", s.handleCreateColumnLineage)
			r.Get("/{id}/columns", s.handleGetColumnLineage)
		})

		r.Route("/runs", func(r chi.Router) {
			r.Post("/", s.handleCreateRun)
			r.Get("/{runID}", s.handleGetRun)
			r.Patch("/{runID}", s.handleUpdateRun)
		})

		r.Get("/lineage/{id}", s.handleLineage)
	})

	return r
}

// Serve starts the API server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting lineage API", slog.String("addr", s.addr))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Routes(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down API server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// requestLogger is a slog-backed replacement for middleware.Logger so API
// access logs share the process log format.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
