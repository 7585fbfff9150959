package webui

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"spooktrunt/codex"
	"spooktrunt/logging"
	"spooktrunt/metrics"

	"go.uber.org/zap"
)

// Server is the studio's HTTP server. It wires together:
//   - StaticAssetHandler for the embedded front-end
//   - StudioAPI for the JSON endpoints
//   - SnapshotHub for WebSocket snapshot push
//   - LoggingMiddleware for request logging and HTTP metrics
//
// Methods:
//   - NewServer() creates a configured server instance
//   - Start() / Serve() begin accepting connections
//   - Shutdown() gracefully shuts down the server
type Server struct {
	httpServer    *http.Server
	mux           *http.ServeMux
	config        ServerConfig
	logger        *logging.Logger
	loggingMw     *LoggingMiddleware
	api           *StudioAPI
	hub           *SnapshotHub
	staticHandler *StaticAssetHandler
	recorder      *metrics.Recorder
	sessions      *SessionStore
}

// ServerConfig configures the Server.
type ServerConfig struct {
	// Port to listen on (default: 3000)
	Port int

	// Host to bind to (default: "localhost")
	Host string

	// ReadTimeout for HTTP requests (default: 30s)
	ReadTimeout time.Duration

	// WriteTimeout for HTTP responses (default: 30s)
	WriteTimeout time.Duration

	// IdleTimeout for keep-alive connections (default: 120s)
	IdleTimeout time.Duration

	// ShutdownTimeout for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration

	// API limits for uploads and request bodies
	API APIConfig

	// StaticConfig for static asset handler
	StaticConfig StaticAssetConfig

	// Hub configures WebSocket keep-alives
	Hub HubConfig

	// LogSkipPaths are paths logged at debug level only
	LogSkipPaths []string
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:            3000,
		Host:            "localhost",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		API:             DefaultAPIConfig(),
		StaticConfig:    DefaultStaticAssetConfig(),
		Hub:             DefaultHubConfig(),
		LogSkipPaths:    []string{"/health", "/metrics", "/api/state"},
	}
}

// NewServer creates a Server serving the studios in sessions. recorder may
// be nil, in which case /metrics is not registered and /health reports from
// a private store.
func NewServer(
	config ServerConfig,
	sessions *SessionStore,
	lore *codex.Codex,
	recorder *metrics.Recorder,
	logger *logging.Logger,
) (*Server, error) {
	if sessions == nil {
		return nil, errors.New("webui: session store is required")
	}
	if lore == nil {
		return nil, errors.New("webui: codex is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("webui")
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = DefaultServerConfig().ShutdownTimeout
	}

	var store *metrics.Store
	var observer HTTPObserver
	if recorder != nil {
		store = recorder.Store()
		observer = recorder
	} else {
		store = metrics.NewStore(metrics.DefaultStoreConfig(), time.Now())
	}

	s := &Server{
		mux:           http.NewServeMux(),
		config:        config,
		logger:        logger,
		staticHandler: NewStaticAssetHandler(config.StaticConfig),
		loggingMw: NewLoggingMiddleware(logger, LoggingMiddlewareConfig{
			SkipPaths: config.LogSkipPaths,
			Observer:  observer,
		}),
		api:      NewStudioAPI(sessions, lore, store, config.API, logger),
		hub:      NewSnapshotHub(sessions, config.Hub, logger),
		recorder: recorder,
		sessions: sessions,
	}
	s.setupRoutes()

	addr := net.JoinHostPort(config.Host, strconv.Itoa(config.Port))
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	logger.Info("server created", zap.String("addr", addr))
	return s, nil
}

// setupRoutes configures all the HTTP routes.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/studio", http.StatusTemporaryRedirect)
	})
	s.mux.HandleFunc("GET /studio", s.handleStudio)
	s.staticHandler.RegisterRoutes(s.mux)

	s.mux.HandleFunc("GET /health", s.api.handleHealth)
	if s.recorder != nil {
		s.mux.Handle("GET /metrics", s.recorder.Handler())
	}

	s.api.RegisterRoutes(s.mux)
	s.mux.HandleFunc("GET /ws", s.hub.HandleConnection)
}

// handleStudio serves the page and makes sure the browser has a session
// before its first API call.
func (s *Server) handleStudio(w http.ResponseWriter, r *http.Request) {
	s.sessions.Resolve(w, r)
	s.staticHandler.ServeIndex(w, r)
}

// Handler returns the mux wrapped with middleware.
func (s *Server) Handler() http.Handler {
	return s.loggingMw.Handler(s.mux)
}

// Start listens on the configured address and blocks until the server is
// shut down.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("webui: listen %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("studio listening", zap.String("url", "http://"+ln.Addr().String()+"/studio"))
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("webui: serve: %w", err)
	}
	return nil
}

// Shutdown disconnects WebSocket clients and drains HTTP requests. It
// matches core.ShutdownFunc.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	// Hijacked connections are not tracked by http.Server.
	s.hub.Close()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("webui: shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *SnapshotHub {
	return s.hub
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
