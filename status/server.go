package status

import (
	"context"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/tailpipe/component"
	"github.com/kbukum/tailpipe/config"
	"github.com/kbukum/tailpipe/errors"
	"github.com/kbukum/tailpipe/logger"
	"github.com/kbukum/tailpipe/pipeline"
)

const shutdownTimeout = 5 * time.Second

var (
	_ component.Component   = (*Server)(nil)
	_ component.Describable = (*Server)(nil)
)

// Pipeline is what the status API reads from and injects faults into.
// *tailer.Service implements it.
type Pipeline interface {
	Stats() pipeline.Stats
	Routes() []config.RouteConfig
	InjectFault(ctx context.Context, route string, err error) error
}

// HealthChecker returns health for every registered component.
type HealthChecker func(ctx context.Context) []component.Health

// Server is the status HTTP server, run as a component.
type Server struct {
	cfg        Config
	service    string
	pipeline   Pipeline
	health     HealthChecker
	engine     *gin.Engine
	httpServer *http.Server
	log        *logger.Logger
	started    time.Time

	mu   sync.Mutex
	addr net.Addr
}

// New builds the server and its routes. Call cfg.ApplyDefaults first if
// needed. health may be nil.
func New(cfg Config, service string, p Pipeline, health HealthChecker, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Get("status")
	}
	// Stdout may carry pipeline output.
	if log.Zerolog().GetLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
		gin.DefaultWriter = os.Stderr
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:      cfg,
		service:  service,
		pipeline: p,
		health:   health,
		engine:   gin.New(),
		log:      log,
		started:  time.Now(),
	}
	s.engine.Use(recovery(log), requestID(), requestLogger(log))
	s.routes()

	h2s := &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          120 * time.Second,
	}
	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      h2c.NewHandler(s.engine, h2s),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) routes() {
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/alive", s.handleAlive)
	s.engine.GET("/info", s.handleInfo)
	s.engine.GET("/stats", s.handleStats)
	s.engine.GET("/routes", s.handleRoutes)
	if s.cfg.AllowFaults {
		s.engine.POST("/routes/:name/fault", s.handleFault)
	}
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Name() string { return "status-server" }

// Start binds the port and serves in a goroutine. It returns once the
// listener is bound.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return errors.IOFailure("status", err).WithDetail("addr", s.httpServer.Addr)
	}
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error("status server error", logger.ErrorFields("serve", err))
		}
	}()
	s.log.Info("status server listening", logger.Fields("addr", ln.Addr().String()))
	return nil
}

// Stop shuts the server down, waiting at most five seconds for requests in
// flight.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.Timeout("status server shutdown").WithCause(err)
	}
	return nil
}

func (s *Server) Health(ctx context.Context) component.Health {
	if s.Addr() == "" {
		return component.Health{Name: s.Name(), Status: component.StatusUnhealthy, Message: "not listening"}
	}
	return component.Health{Name: s.Name(), Status: component.StatusHealthy, Message: s.Addr()}
}

func (s *Server) Describe() component.Description {
	details := s.cfg.Addr()
	if s.cfg.AllowFaults {
		details += " faults=on"
	}
	return component.Description{Name: "Status API", Type: "http", Details: details}
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr == nil {
		return ""
	}
	return s.addr.String()
}
