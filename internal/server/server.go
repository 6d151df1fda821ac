// Package server exposes the analysis pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dshills/contractpilot/internal/analysis"
	"github.com/dshills/contractpilot/internal/anonymize"
	"github.com/dshills/contractpilot/internal/contracttype"
	"github.com/dshills/contractpilot/internal/document"
	"github.com/dshills/contractpilot/internal/lawref"
	"github.com/dshills/contractpilot/internal/llm"
)

// Version is reported by the health endpoint.
var Version = "0.1.0"

// Analyzer runs a full contract analysis. *analysis.Analyzer satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, text string, override contracttype.Type) (*analysis.Result, error)
}

// Options configures the HTTP layer.
type Options struct {
	AllowedOrigins []string
	MaxUploadBytes int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// Server holds the router and its dependencies.
type Server struct {
	analyzer Analyzer
	laws     *lawref.Store
	engine   *anonymize.Engine
	provider *llm.Info
	logger   *slog.Logger
	opts     Options
	router   chi.Router
}

// New wires the routes. provider may be nil when no model is configured.
func New(opts Options, a Analyzer, laws *lawref.Store, engine *anonymize.Engine, provider *llm.Info, logger *slog.Logger) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = document.MaxFileSize
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if engine == nil {
		engine = anonymize.Default
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		analyzer: a,
		laws:     laws,
		engine:   engine,
		provider: provider,
		logger:   logger,
		opts:     opts,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleRoot)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/provider", s.handleProvider)
		r.Post("/analyze", s.handleAnalyzeFile)
		r.Post("/analyze/text", s.handleAnalyzeText)
		r.Post("/anonymize", s.handleAnonymize)
		r.Post("/restore", s.handleRestore)
		r.Post("/classify", s.handleClassify)
		r.Post("/segment", s.handleSegment)
		r.Get("/checklist/{type}", s.handleChecklist)
	})
	return r
}

// requestLogger logs one line per request through slog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
