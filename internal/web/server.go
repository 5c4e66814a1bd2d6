// Package web serves the list and detail pages as HTML.
//
// Every GET of a page route mounts a new page instance and keeps it in a
// bounded registry; forms post actions back to that instance and are
// answered with a redirect to it. Instances that fall out of the registry
// are unmounted.
package web

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/comigor/convoview/internal/lifecycle"
	"github.com/comigor/convoview/internal/logger"
	"github.com/comigor/convoview/internal/view"
)

// Options configures a Server.
type Options struct {
	Service  view.Service
	Analyzer view.Analyzer
	Reporter lifecycle.Reporter
	Clock    view.Clock
	// SaveSuccessTTL is how long the save banner stays up.
	SaveSuccessTTL time.Duration
	// RenderWait is how long a GET waits for the fetch before rendering
	// the loading indicator instead.
	RenderWait time.Duration
	MaxPages   int
	Metrics    *Metrics
}

// Server renders the viewer.
type Server struct {
	deps       view.Deps
	renderWait time.Duration
	successTTL time.Duration
	templates  map[string]*template.Template
	pages      *registry
	metrics    *Metrics
}

// New builds a Server.
func New(opts Options) (*Server, error) {
	if opts.Service == nil {
		return nil, errors.New("web: service is required")
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 256
	}
	if opts.SaveSuccessTTL <= 0 {
		opts.SaveSuccessTTL = lifecycle.DefaultSuccessTTL
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}

	tmpls, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	pages, err := newRegistry(opts.MaxPages, opts.Metrics)
	if err != nil {
		return nil, err
	}

	s := &Server{
		renderWait: opts.RenderWait,
		successTTL: opts.SaveSuccessTTL,
		templates:  tmpls,
		pages:      pages,
		metrics:    opts.Metrics,
	}
	s.deps = view.Deps{
		Service:        opts.Service,
		Confirmer:      view.ConfirmFunc(formConfirmed),
		Reporter:       opts.Reporter,
		Clock:          opts.Clock,
		SaveSuccessTTL: opts.SaveSuccessTTL,
		Analyzer:       opts.Analyzer,
		OnSettle:       opts.Metrics.settled,
	}
	return s, nil
}

// Handler returns the routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.handle(mux, "GET /{$}", s.handleList)
	s.handle(mux, "GET /conversations/{id}", s.handleDetail)
	s.handle(mux, "GET /pages/{page}", s.handlePage)
	s.handle(mux, "POST /pages/{page}/delete", s.handleDelete)
	s.handle(mux, "POST /pages/{page}/save", s.handleSave)
	s.handle(mux, "POST /pages/{page}/analyze", s.handleAnalyze)

	s.handle(mux, "GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS())))

	return LoggingMiddleware(mux)
}

// handle registers h under pattern and records its metrics by pattern, so
// ids never end up in label values.
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		h(rec, r)
		s.metrics.observe(r.Method, pattern, rec.status, time.Since(start))
	}))
}

// Close unmounts every page instance.
func (s *Server) Close() {
	s.pages.purge()
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L.Info("starting server", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.L.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}
