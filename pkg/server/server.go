package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/elonfeng/signalradar/internal/scheduler"
	"github.com/elonfeng/signalradar/internal/store"
	"github.com/elonfeng/signalradar/pkg/source"
	"github.com/elonfeng/signalradar/pkg/trend"
)

const maxLimit = 1000

// SignalReader reads the latest published run.
type SignalReader interface {
	LatestRun(ctx context.Context) (*store.Run, error)
	ListSignals(ctx context.Context, opts store.SignalListOpts) ([]trend.Signal, error)
}

// Options configures the HTTP server.
type Options struct {
	Port    int
	SiteDir string // served at / when set
	Version string
	Debug   bool
	Timeout time.Duration
}

// Server provides the HTTP API and serves the static site.
type Server struct {
	reader  SignalReader
	builder scheduler.BuildRunner
	opts    Options

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
}

// New creates a new HTTP server. builder may be nil, in which case POST /api/v1/build is not registered.
func New(reader SignalReader, builder scheduler.BuildRunner, opts Options) *Server {
	if opts.Port == 0 {
		opts.Port = 8080
	}
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Minute
	}
	s := &Server{
		reader:  reader,
		builder: builder,
		opts:    opts,
		router:  routegroup.New(http.NewServeMux()),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler { return s.router }

// Run starts the HTTP server and shuts it down when ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.opts.Port)
	lgr.Printf("[INFO] signalradar server listening on %s", addr)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.opts.Timeout,
	}
	s.lock.Unlock()

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			return // listener already gone
		}
		lgr.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.lock.Lock()
		defer s.lock.Unlock()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			lgr.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("signalradar", "elonfeng", s.opts.Version))
	s.router.Use(rest.Ping)
	if s.opts.Debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}
	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.SizeLimit(64 * 1024))
}

func (s *Server) setupRoutes() {
	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /signals", s.handleSignals)
		r.HandleFunc("GET /run", s.handleRun)
		if s.builder != nil {
			r.HandleFunc("POST /build", s.handleBuild)
		}
	})

	if s.opts.SiteDir != "" {
		s.router.Handle("GET /", http.FileServer(http.Dir(s.opts.SiteDir)))
	}
}

// GET /api/v1/signals?category=&status=&limit=
func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := store.SignalListOpts{Category: source.Category(q.Get("category"))}

	if status := q.Get("status"); status != "" {
		tier := trend.Tier(status)
		if !tier.Valid() {
			rest.SendErrorJSON(w, r, lgr.Default(), http.StatusBadRequest,
				fmt.Errorf("unknown status %q", status), "status must be emerging, bubbling or mainstream")
			return
		}
		opts.Tier = tier
	}

	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			rest.SendErrorJSON(w, r, lgr.Default(), http.StatusBadRequest, fmt.Errorf("bad limit %q", limit), "limit must be a non-negative integer")
			return
		}
		opts.Limit = min(n, maxLimit)
	}

	signals, err := s.reader.ListSignals(r.Context(), opts)
	if err != nil {
		rest.SendErrorJSON(w, r, lgr.Default(), http.StatusInternalServerError, err, "can't list signals")
		return
	}
	rest.RenderJSON(w, rest.JSON{"data": signals, "count": len(signals)})
}

// GET /api/v1/run
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.reader.LatestRun(r.Context())
	if errors.Is(err, store.ErrNoRun) {
		rest.SendErrorJSON(w, r, lgr.Default(), http.StatusNotFound, err, "no run yet")
		return
	}
	if err != nil {
		rest.SendErrorJSON(w, r, lgr.Default(), http.StatusInternalServerError, err, "can't load run")
		return
	}
	rest.RenderJSON(w, run)
}

// POST /api/v1/build runs the pipeline synchronously.
func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	res, err := s.builder.Build(r.Context())
	if errors.Is(err, scheduler.ErrBuildRunning) {
		rest.SendErrorJSON(w, r, lgr.Default(), http.StatusConflict, err, "build already running")
		return
	}
	if err != nil {
		rest.SendErrorJSON(w, r, lgr.Default(), http.StatusInternalServerError, err, "build failed")
		return
	}
	rest.RenderJSON(w, res)
}
