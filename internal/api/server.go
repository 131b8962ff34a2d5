package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/carrier-core/internal/carrier"
	"github.com/nerrad567/carrier-core/internal/event"
	"github.com/nerrad567/carrier-core/internal/infrastructure/config"
	"github.com/nerrad567/carrier-core/internal/infrastructure/database"
	"github.com/nerrad567/carrier-core/internal/infrastructure/logging"
	"github.com/nerrad567/carrier-core/internal/infrastructure/mqtt"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Journal lists recorded deliveries.
type Journal interface {
	Recent(ctx context.Context, kind event.Kind, limit int) ([]event.JournalEntry, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Registry *carrier.Registry
	Journal  Journal      // optional
	MQTT     *mqtt.Client // optional, reported in metrics
	DB       *database.DB // optional, reported in metrics
	Version  string
}

// Server is the HTTP API server for carrierd.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	logger    *logging.Logger
	registry  *carrier.Registry
	journal   Journal
	mqtt      *mqtt.Client
	db        *database.DB
	version   string
	startTime time.Time
	server    *http.Server
	listener  net.Listener
	hub       *Hub
	cancel    context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The hub exists from New on, so it can be registered as a dispatcher
// observer before the server starts.
//
// Parameters:
//   - deps: Required dependencies (logger, registry)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("carrier registry is required")
	}

	hub := NewHub(deps.WS, deps.Logger)
	hub.SetStatusSource(deps.Registry.Dispatcher().Status)

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		registry:  deps.Registry,
		journal:   deps.Journal,
		mqtt:      deps.MQTT,
		db:        deps.DB,
		version:   deps.Version,
		startTime: time.Now(),
		hub:       hub,
	}, nil
}

// Hub returns the WebSocket hub. It implements event.Observer.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start binds the listener and serves in a background goroutine.
//
// Parameters:
//   - ctx: Parent context for the hub (not used for listener lifetime)
//
// Returns:
//   - error: If the listener cannot be bound (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port)),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.ReadTimeout(),
		WriteTimeout:      s.cfg.WriteTimeout(),
		IdleTimeout:       s.cfg.IdleTimeout(),
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("listening on %s: %w", s.server.Addr, err)
	}
	s.listener = ln
	s.logger.Info("API server listening", "address", ln.Addr().String(), "tls", s.cfg.TLS.Enabled)

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			err = s.server.ServeTLS(ln, s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.server.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
