package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/cotbridge/internal/audit"
	"github.com/nerrad567/cotbridge/internal/control"
	"github.com/nerrad567/cotbridge/internal/infrastructure/config"
	"github.com/nerrad567/cotbridge/internal/infrastructure/logging"
	"github.com/nerrad567/cotbridge/internal/listener"
	"github.com/nerrad567/cotbridge/internal/symbol"
)

// shutdownGrace bounds how long Close waits for in-flight requests.
const shutdownGrace = 10 * time.Second

// ListenerRegistry is the listener registry surface the API drives.
type ListenerRegistry interface {
	control.Registry
	Info(port int) (listener.Info, bool)
	Snapshot() []listener.Info
}

// HealthChecker is implemented by infrastructure clients reported on
// /api/v1/health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds what the API server needs. Logger and Registry are required.
type Deps struct {
	Config     config.APIConfig
	WS         config.WebSocketConfig
	Logger     *logging.Logger
	Registry   ListenerRegistry
	Symbolizer *symbol.Symbolizer
	AuditRepo  audit.Repository    // nil answers /audit with 503
	Gatherer   prometheus.Gatherer // nil serves the default registry
	Checks     map[string]HealthChecker
	Indent     int
	Version    string
}

// Server serves the listener control plane, symbol lookup, the audit trail
// and the websocket stream.
type Server struct {
	cfg        config.APIConfig
	wsCfg      config.WebSocketConfig
	logger     *logging.Logger
	registry   ListenerRegistry
	symbolizer *symbol.Symbolizer
	auditRepo  audit.Repository
	gatherer   prometheus.Gatherer
	checks     map[string]HealthChecker
	indent     int
	version    string
	startTime  time.Time
	hub        *Hub

	srv  *http.Server
	stop context.CancelFunc
}

// New builds a server. Nothing listens until Start.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, errors.New("api: logger is required")
	}
	if deps.Registry == nil {
		return nil, errors.New("api: listener registry is required")
	}

	s := &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		logger:     deps.Logger,
		registry:   deps.Registry,
		symbolizer: deps.Symbolizer,
		auditRepo:  deps.AuditRepo,
		gatherer:   deps.Gatherer,
		checks:     deps.Checks,
		indent:     deps.Indent,
		version:    deps.Version,
		startTime:  time.Now(),
		hub:        NewHub(deps.Logger),
	}
	if s.symbolizer == nil {
		s.symbolizer = symbol.New(nil)
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	return s, nil
}

// Hub returns the stream hub. Enriched events and listener transitions are
// fed into it by the caller.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start binds the API address and serves in the background. A bind failure
// is returned rather than logged.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding %s: %w", addr, err)
	}

	var hubCtx context.Context
	hubCtx, s.stop = context.WithCancel(ctx)
	go s.hub.Run(hubCtx)

	s.srv = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.Timeouts.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.Timeouts.ReadTimeout(),
		WriteTimeout:      s.cfg.Timeouts.WriteTimeout(),
		IdleTimeout:       s.cfg.Timeouts.IdleTimeout(),
	}

	tls := s.cfg.TLS
	s.logger.Info("API server listening", "address", ln.Addr().String(), "tls", tls.Enabled)
	go func() {
		var serveErr error
		if tls.Enabled {
			serveErr = s.srv.ServeTLS(ln, tls.CertFile, tls.KeyFile)
		} else {
			serveErr = s.srv.Serve(ln)
		}
		if !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("API server stopped", "error", serveErr)
		}
	}()
	return nil
}

// Close disconnects stream clients and shuts the HTTP server down, waiting
// up to shutdownGrace for in-flight requests.
func (s *Server) Close() error {
	if s.srv == nil {
		return nil
	}
	s.stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck reports an error until Start has succeeded.
func (s *Server) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.srv == nil {
		return errors.New("api server not started")
	}
	return nil
}
