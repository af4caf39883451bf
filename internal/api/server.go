package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/sensord/internal/capability"
	"github.com/nerrad567/sensord/internal/infrastructure/config"
	"github.com/nerrad567/sensord/internal/infrastructure/logging"
	"github.com/nerrad567/sensord/internal/location"
	"github.com/nerrad567/sensord/internal/scan"
	"github.com/nerrad567/sensord/internal/stream"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   *config.Config
	Logger   *logging.Logger
	Source   capability.Source
	Registry *stream.Registry
	Location *location.Streamer
	Scans    *scan.Coordinator
	Version  string
}

// Server is the WebSocket streaming server for sensord.
//
// It owns the HTTP listener, the routes, and the set of open streaming
// connections. The server is created with New() and started with Start().
type Server struct {
	cfg      config.ServerConfig
	wsCfg    config.WebSocketConfig
	logger   *logging.Logger
	source   capability.Source
	registry *stream.Registry
	location *location.Streamer
	scans    *scan.Coordinator
	version  string

	server   *http.Server
	listener net.Listener

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Source == nil {
		return nil, fmt.Errorf("capability source is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("subscription registry is required")
	}
	if deps.Location == nil {
		return nil, fmt.Errorf("location streamer is required")
	}

	return &Server{
		cfg:      deps.Config.Server,
		wsCfg:    deps.Config.WebSocket,
		logger:   deps.Logger,
		source:   deps.Source,
		registry: deps.Registry,
		location: deps.Location,
		scans:    deps.Scans,
		version:  deps.Version,
		clients:  make(map[*wsClient]struct{}),
	}, nil
}

// Start binds the listener and begins serving connections.
//
// The bind is performed synchronously so a port conflict fails startup
// immediately rather than being reported as running.
func (s *Server) Start(_ context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding listener on %s: %w", addr, err)
	}
	s.listener = listener

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	s.logger.Info("server listening", "address", listener.Addr().String())

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address. Empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close shuts the server down: every open connection is detached and
// closed first, then the scan timers are stopped, then the listener is
// released — in that order, so no orphaned hardware subscription survives
// shutdown.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("server shutting down")
	s.disconnectAll(CloseServerStopped, "server stopped")

	if s.scans != nil {
		s.scans.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// DisconnectClients terminates every open streaming connection on host
// operator action. The listener stays up; new connections are accepted
// immediately afterwards.
func (s *Server) DisconnectClients(reason string) {
	s.disconnectAll(CloseHostAction, reason)
}

// disconnectAll detaches and closes every open connection with the given
// close code.
func (s *Server) disconnectAll(code int, reason string) {
	s.mu.Lock()
	clients := make([]*wsClient, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		c.shutdown(code, reason)
	}
	if len(clients) > 0 {
		s.logger.Info("connections closed", "count", len(clients), "code", code)
	}
}

// ClientCount returns the number of open streaming connections.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// HealthCheck verifies the server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("server not started")
	}
	return nil
}
