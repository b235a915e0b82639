package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	mw "github.com/merak-travel/merak/internal/api/middleware"
	"github.com/merak-travel/merak/internal/chatkit"
	"github.com/merak-travel/merak/internal/conf"
	"github.com/merak-travel/merak/internal/errors"
	"github.com/merak-travel/merak/internal/httpserver"
	"github.com/merak-travel/merak/internal/logger"
	"github.com/merak-travel/merak/internal/observability"
	"github.com/merak-travel/merak/internal/web"
)

// Server is the main HTTP server for Merak.
// It manages the Echo framework instance, middleware, and all HTTP routes.
type Server struct {
	echo   *echo.Echo
	config *Config
	log    logger.Logger

	// Dependencies
	renderer *web.Renderer
	chatKit  *chatkit.Server
	metrics  *observability.Metrics

	// Lifecycle management
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.Mutex
	listener  net.Listener
	serveDone chan struct{}
	startTime time.Time
}

var _ httpserver.Server = (*Server)(nil)

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		s.log = l
	}
}

// WithChatKit enables the /chatkit endpoint backed by srv.
func WithChatKit(srv *chatkit.Server) ServerOption {
	return func(s *Server) {
		s.chatKit = srv
	}
}

// WithMetrics sets the observability metrics for the server.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithRenderer overrides the page renderer.
func WithRenderer(r *web.Renderer) ServerOption {
	return func(s *Server) {
		s.renderer = r
	}
}

// New creates a new HTTP server with the given settings and options.
func New(settings *conf.Settings, opts ...ServerOption) (*Server, error) {
	return NewWithConfig(ConfigFromSettings(settings), opts...)
}

// NewWithConfig creates a server from an explicit Config.
func NewWithConfig(config *Config, opts ...ServerOption) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.New(fmt.Errorf("invalid server configuration: %w", err)).
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:    config,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.log == nil {
		s.log = GetLogger()
	}
	if s.renderer == nil {
		renderer, err := web.NewRenderer()
		if err != nil {
			cancel()
			return nil, err
		}
		s.renderer = renderer
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Debug = config.Debug
	s.echo.Renderer = s.renderer
	// Forwarding headers are client controlled; rate limiting and logs use the peer address
	s.echo.IPExtractor = echo.ExtractIPDirect()

	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	s.setupMiddleware()
	s.setupRoutes()

	s.log.Info("HTTP server initialized",
		logger.String("address", config.Address()),
		logger.Bool("chatkit", s.chatKit != nil),
		logger.Bool("metrics", s.metricsEnabled()))

	return s, nil
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	// Recovery middleware - should be first
	s.echo.Use(echomw.Recover())
	s.echo.Use(mw.NewRequestID())

	s.echo.Use(mw.NewRequestLoggerWithSkipper(s.log.Module("http"), func(c echo.Context) bool {
		// scrapes and probes would drown out real traffic
		return c.Path() == s.config.MetricsPath || c.Path() == PathHealth
	}))

	if s.metrics != nil {
		s.echo.Use(mw.NewMetrics(s.metrics.HTTP))
	}

	securityConfig := mw.DefaultSecurityConfig()
	securityConfig.AllowedOrigins = s.config.AllowedOrigins
	s.echo.Use(mw.NewCORS(securityConfig))
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))
	s.echo.Use(mw.NewSecureHeaders(securityConfig))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.echo.GET(PathHealth, s.healthCheck)
	s.echo.GET(PathHome, s.serveHome)
	registerStatic(s.echo)

	if s.chatKit != nil {
		limiter := mw.NewRateLimiter(mw.RateLimitConfig{
			Rate:  s.config.ChatKitRate,
			Burst: s.config.ChatKitBurst,
			OnDeny: func(path string) {
				if s.metrics != nil {
					s.metrics.HTTP.RecordRateLimited(path)
				}
			},
		})
		s.echo.POST(PathChatKit, s.handleChatKit, limiter)
	}

	if s.metricsEnabled() {
		s.echo.GET(s.config.MetricsPath, echo.WrapHandler(s.metrics.Handler()))
	}
}

func (s *Server) metricsEnabled() bool {
	return s.metrics != nil && s.config.MetricsEnabled
}

// healthCheck handles the server health check endpoint.
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Start binds the listen address and serves requests in a background goroutine.
// Bind failures are returned; later serve errors are logged.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return errors.Newf("server already started").
			Component("api").
			Category(errors.CategoryConflict).
			Build()
	}

	ln, err := net.Listen("tcp", s.config.Address())
	if err != nil {
		return errors.New(err).
			Component("api").
			Category(errors.CategoryNetwork).
			Context("address", s.config.Address()).
			Build()
	}
	s.listener = ln
	s.echo.Listener = ln
	s.serveDone = make(chan struct{})

	go func() {
		defer close(s.serveDone)
		if err := s.echo.Start(ln.Addr().String()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("server error", logger.Error(err))
		}
	}()

	s.log.Info("HTTP server started", logger.String("address", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Address()
}

// Shutdown gracefully stops the server, cancelling in-flight streams.
func (s *Server) Shutdown() error {
	// Cancel context to end open SSE streams
	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		s.log.Error("error during server shutdown", logger.Error(err))
		return errors.New(fmt.Errorf("shutdown error: %w", err)).
			Component("api").
			Category(errors.CategoryNetwork).
			Build()
	}

	s.mu.Lock()
	done := s.serveDone
	s.mu.Unlock()
	if done != nil {
		<-done
	}

	s.log.Info("server shutdown complete", logger.Duration("uptime", time.Since(s.startTime)))
	return nil
}

// Echo returns the underlying Echo instance.
// This is useful for testing or advanced configuration.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
