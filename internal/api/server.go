package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mark3labs/mcp-go/server"
	"github.com/oscillatelabsllc/nflpicker/internal/notebook"
	"github.com/oscillatelabsllc/nflpicker/internal/session"
	"github.com/oscillatelabsllc/nflpicker/internal/storage"
	"github.com/rs/zerolog"
)

// Pinger is implemented by storage backends that hold a live connection
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server implements the HTTP API for driving sessions and inspecting notebooks
type Server struct {
	env       *session.Environment
	notebooks *notebook.Store
	blobs     storage.BlobStore
	log       zerolog.Logger
	router    *chi.Mux
	server    *http.Server
	sseServer *server.SSEServer
	mcpServer *server.MCPServer
}

// NewServer creates a new HTTP API server
func NewServer(env *session.Environment, notebooks *notebook.Store, blobs storage.BlobStore, port string, log zerolog.Logger) *Server {
	s := &Server{
		env:       env,
		notebooks: notebooks,
		blobs:     blobs,
		log:       log.With().Str("component", "api").Logger(),
	}

	s.setupRouter()
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// setupRouter configures all HTTP routes
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// No global timeout; SSE connections stay open
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/openapi.json", s.handleOpenAPISpec)

	// MCP SSE is mounted by AddMCPServer

	r.Route("/api/v1", func(r chi.Router) {
		// Searches run up to the adapter timeout, well under this
		r.Use(middleware.Timeout(60 * time.Second))

		r.Post("/sessions", s.handleStartSession)
		r.Get("/session", s.handleGetSession)
		r.Post("/session/search", s.handleSessionSearch)
		r.Post("/session/picks", s.handleSubmitPicks)

		r.Route("/notebooks/{identity}", func(r chi.Router) {
			r.Get("/", s.handleReadNotebook)
			r.Post("/", s.handleWriteNotebook)
			r.Get("/search", s.handleSearchNotebook)
			r.Get("/stats", s.handleNotebookStats)
		})
	})

	s.router = r
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve starts the HTTP server and blocks until it stops
func (s *Server) Serve() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	if s.sseServer != nil {
		if err := s.sseServer.Shutdown(ctx); err != nil {
			s.log.Warn().Err(err).Msg("Failed to stop SSE server")
		}
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

// handleHealth returns 200 OK if server is running
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	successResponse(w, map[string]string{"status": "healthy"})
}

// handleReady checks that the storage backend answers
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var err error
	if p, ok := s.blobs.(Pinger); ok {
		err = p.Ping(ctx)
	} else {
		_, err = s.blobs.Exists(ctx, "health/probe.json")
	}

	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}

	successResponse(w, map[string]string{"status": "ready"})
}

// errorResponse writes a JSON error response
func errorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// successResponse writes a JSON success response
func successResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(data)
}

// AddMCPServer adds MCP SSE transport to the HTTP server
func (s *Server) AddMCPServer(mcpServer *server.MCPServer) {
	s.mcpServer = mcpServer

	s.sseServer = server.NewSSEServer(
		mcpServer,
		server.WithBasePath("/mcp"),
		server.WithSSEEndpoint("/sse"),
		server.WithMessageEndpoint("/message"),
		server.WithKeepAlive(true),
		server.WithKeepAliveInterval(15*time.Second),
	)

	// The SSE server routes /sse and /message itself
	s.router.Mount("/mcp", s.sseServer)

	s.log.Info().
		Str("sse", "/mcp/sse").
		Str("message", "/mcp/message").
		Dur("keep_alive", 15*time.Second).
		Msg("MCP SSE transport mounted")
}
