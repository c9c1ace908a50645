// Package server provides the JSON HTTP API for reference lookups and search.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/sworddrill/internal/config"
	"github.com/hyperjump/sworddrill/internal/keyword"
	"github.com/hyperjump/sworddrill/internal/search"
	"github.com/hyperjump/sworddrill/internal/storage"
)

// Server is the HTTP server for the sworddrill API.
type Server struct {
	engine  *search.Engine
	storage storage.Storage
	index   keyword.VerseIndex
	config  *config.Config
	logger  *zap.Logger
	pool    *ants.Pool
	server  *http.Server
}

// NewServer creates a server with the given dependencies. Engine calls run on
// a worker pool of cfg.Server.PoolSize goroutines; Stop releases it.
func NewServer(
	engine *search.Engine,
	store storage.Storage,
	index keyword.VerseIndex,
	cfg *config.Config,
	logger *zap.Logger,
) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := ants.NewPool(cfg.Server.PoolSize,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(p interface{}) {
			logger.Error("worker panic", zap.Any("panic", p))
		}))
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	return &Server{
		engine:  engine,
		storage: store,
		index:   index,
		config:  cfg,
		logger:  logger,
		pool:    pool,
	}, nil
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.config.Server.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/search", s.handleSearch)
		r.Get("/books", s.handleBooks)
		r.Get("/books/{book}", s.handleBook)
		r.Get("/{reference}", s.handleReference)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, http.StatusNotFound, "not found")
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Server.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr), zap.Int("pool_size", s.pool.Cap()))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server and releases the worker pool.
func (s *Server) Stop(ctx context.Context) error {
	defer s.pool.Release()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

var (
	// errPoolClosed is returned when a request arrives after Stop.
	errPoolClosed = errors.New("server is shutting down")
	// errPoolBusy is returned when every worker is taken; requests are not queued.
	errPoolBusy = errors.New("server is busy")
)

// dispatch runs fn on the worker pool and waits for its result or for ctx
// to end, whichever comes first.
func dispatch[T any](ctx context.Context, pool *ants.Pool, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	var zero T
	ch := make(chan result, 1)
	err := pool.Submit(func() {
		v, err := fn(ctx)
		ch <- result{v, err}
	})
	switch {
	case errors.Is(err, ants.ErrPoolClosed):
		return zero, errPoolClosed
	case errors.Is(err, ants.ErrPoolOverload):
		return zero, errPoolBusy
	}
	if err != nil {
		return zero, err
	}
	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
