// Package api provides HTTP REST API handlers for the conclave
// deliberation engine.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/conclave-ai/conclave/internal/events"
	"github.com/conclave-ai/conclave/internal/service"
)

// Server provides HTTP REST API endpoints for councils and launches.
type Server struct {
	router   chi.Router
	launcher *service.Launcher
	eventBus *events.EventBus
	logger   *slog.Logger
	noCORS   bool
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithoutCORS disables the permissive CORS middleware.
func WithoutCORS() ServerOption {
	return func(s *Server) {
		s.noCORS = true
	}
}

// NewServer creates a new API server.
func NewServer(launcher *service.Launcher, eventBus *events.EventBus, opts ...ServerOption) *Server {
	s := &Server{
		launcher: launcher,
		eventBus: eventBus,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.router = s.setupRouter()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRouter configures Chi router with all routes and middleware.
func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(s.loggingMiddleware)

	if !s.noCORS {
		corsHandler := cors.New(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
			AllowCredentials: false,
			MaxAge:           300,
		})
		r.Use(corsHandler.Handler)
	}

	// Health check
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/councils", func(r chi.Router) {
			r.Get("/", s.handleListCouncils)
			r.Post("/", s.handleCreateCouncil)

			r.Route("/{councilID}", func(r chi.Router) {
				r.Get("/", s.handleGetCouncil)
				r.Put("/", s.handleUpdateCouncil)
				r.Delete("/", s.handleDeleteCouncil)
			})
		})

		r.Route("/launches", func(r chi.Router) {
			r.Get("/", s.handleListLaunches)
			r.Post("/", s.handleCreateLaunch)

			r.Route("/{launchID}", func(r chi.Router) {
				r.Get("/", s.handleGetLaunch)
				r.Post("/abort", s.handleAbortLaunch)
				r.Post("/review", s.handleReviewLaunch)
				r.Post("/synthesize", s.handleSynthesizeLaunch)
				r.Post("/chat", s.handleChat)
				r.Get("/chat", s.handleListChat)
				r.Get("/discussion", s.handleListDiscussion)
				r.Get("/logs", s.handleListLogs)
			})
		})

		// SSE endpoint for real-time updates
		r.Get("/events", s.handleSSE)
	})

	return r
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"bytes", ww.BytesWritten(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

// respondError sends a JSON error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondDomainError maps a domain error onto an HTTP status.
func (s *Server) respondDomainError(w http.ResponseWriter, err error) {
	status, ok := httpStatusForDomainError(err)
	if !ok {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	respondError(w, status, err.Error())
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("starting API server", "addr", addr)
	return srv.ListenAndServe()
}
