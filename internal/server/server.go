// Package server exposes the review engine over HTTP for the coaching UI.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/dshills/codecoach/internal/metrics"
	"github.com/dshills/codecoach/internal/review"
	"github.com/dshills/codecoach/internal/thread"
)

// ClientHeader identifies a browser tab or client. Review submissions
// sharing a value supersede each other.
const ClientHeader = "X-Client-ID"

const maxBodyBytes = 1 << 20

// Server provides the HTTP API.
type Server struct {
	router         chi.Router
	engine         *review.Engine
	threads        thread.Store
	metrics        *metrics.Recorder
	logger         *slog.Logger
	allowedOrigins []string
	timeout        time.Duration
	conversation   review.ConversationOptions

	mu       sync.Mutex
	sessions map[string]*clientSession
}

// clientSession is a Session plus the number of requests using it. The
// entry is dropped when the last request finishes.
type clientSession struct {
	sess   *review.Session
	active int
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMetrics records request metrics and serves them on /metrics.
func WithMetrics(r *metrics.Recorder) Option {
	return func(s *Server) { s.metrics = r }
}

// WithThreads sets the thread store. Without one, threads live in memory.
func WithThreads(store thread.Store) Option {
	return func(s *Server) { s.threads = store }
}

// WithAllowedOrigins sets the CORS origins.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.allowedOrigins = origins }
}

// WithTimeout bounds each request. Reviews fan out to several classifier
// calls, so this should be generous.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// WithConversation sets the follow-up conversation parameters.
func WithConversation(o review.ConversationOptions) Option {
	return func(s *Server) { s.conversation = o }
}

// New creates a server running reviews on engine.
func New(engine *review.Engine, opts ...Option) *Server {
	s := &Server{
		engine:   engine,
		logger:   slog.Default(),
		timeout:  5 * time.Minute,
		sessions: make(map[string]*clientSession),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.threads == nil {
		s.threads = thread.NewMemoryStore()
	}
	s.router = s.setupRouter()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))
	r.Use(s.loggingMiddleware)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With", ClientHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})
	r.Use(corsHandler.Handler)

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/reviews", s.handleReview)
		r.Post("/lines", s.handleLines)
		r.Route("/threads", func(r chi.Router) {
			r.Post("/", s.handleCreateThread)
			r.Route("/{threadID}", func(r chi.Router) {
				r.Get("/", s.handleGetThread)
				r.Post("/messages", s.handleThreadMessage)
			})
		})
	})

	return r
}

// loggingMiddleware logs HTTP requests and feeds request metrics.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			if s.metrics != nil {
				s.metrics.ObserveHTTP(r.Method, route, ww.Status(), time.Since(start))
			}
			s.logger.Info("http request",
				"method", r.Method,
				"route", route,
				"status", ww.Status(),
				"duration", time.Since(start),
				"bytes", ww.BytesWritten(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("starting API server", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}
	if s.engine != nil && s.engine.Classifier != nil {
		body["provider"] = s.engine.Classifier.Name()
		body["model"] = s.engine.Classifier.Model()
	}
	respondJSON(w, http.StatusOK, body)
}

// session returns the Session for a client key, creating it on first use.
// acquireSession returns the session for key and marks it in use. Callers
// must pair it with releaseSession.
func (s *Server) acquireSession(key string) *review.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.sessions[key]
	if !ok {
		cs = &clientSession{sess: review.NewSession(s.engine)}
		s.sessions[key] = cs
	}
	cs.active++
	return cs.sess
}

func (s *Server) releaseSession(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.sessions[key]
	if !ok {
		return
	}
	cs.active--
	if cs.active <= 0 {
		delete(s.sessions, key)
	}
}

func (s *Server) sessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// decodeBody reads a size-limited JSON body into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
