package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/aquarium-core/internal/bus"
	"github.com/nerrad567/aquarium-core/internal/history"
	"github.com/nerrad567/aquarium-core/internal/infrastructure/config"
	"github.com/nerrad567/aquarium-core/internal/infrastructure/logging"
	"github.com/nerrad567/aquarium-core/internal/infrastructure/metrics"
	"github.com/nerrad567/aquarium-core/internal/protocol"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// DeviceSource reports the last known status of each device.
type DeviceSource interface {
	Devices() map[protocol.Device]protocol.DeviceStatus
}

// HistoryReader queries the event log.
type HistoryReader interface {
	Query(ctx context.Context, topic string, limit int) ([]history.Entry, error)
}

// HealthChecker is implemented by every infrastructure client.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// DBStatser exposes connection pool statistics.
type DBStatser interface {
	Stats() sql.DBStats
}

// Deps holds the dependencies of the API server.
type Deps struct {
	Config  config.APIConfig
	WS      config.WebSocketConfig
	Logger  *logging.Logger
	Bus     bus.Bus
	Devices DeviceSource
	History HistoryReader
	Metrics *metrics.Registry
	DB      DBStatser
	// Checks are reported by the health endpoint, keyed by component.
	Checks  map[string]HealthChecker
	Version string
}

// Server is the HTTP API server.
//
// It is created with New and started with Start.
type Server struct {
	cfg       config.APIConfig
	logger    *logging.Logger
	bus       bus.Bus
	devices   DeviceSource
	history   HistoryReader
	metrics   *metrics.Registry
	db        DBStatser
	checks    map[string]HealthChecker
	version   string
	startTime time.Time

	server   *http.Server
	listener net.Listener
	hub      *Hub
	cancel   context.CancelFunc
}

// New creates an API server. It is not listening until Start is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, errors.New("logger is required")
	}

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		bus:       deps.Bus,
		devices:   deps.Devices,
		history:   deps.History,
		metrics:   deps.Metrics,
		db:        deps.DB,
		checks:    deps.Checks,
		version:   deps.Version,
		startTime: time.Now(),
		hub:       NewHub(deps.WS, deps.Logger),
	}, nil
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start subscribes the hub to the bus and begins listening.
//
// The listener is bound before Start returns, so a port conflict is
// reported here rather than logged from the background goroutine.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)

	if s.bus != nil {
		if err := s.hub.Attach(s.bus); err != nil {
			s.cancel()
			return fmt.Errorf("subscribing websocket hub: %w", err)
		}
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("listening on %s: %w", s.server.Addr, err)
	}
	s.listener = ln

	s.logger.Info("API server starting", "address", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the server, waiting up to 10 seconds for
// in-flight requests.
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

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return errors.New("api server not started")
	}
	return nil
}
