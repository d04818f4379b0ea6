package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	api "github.com/openautomata/windrive/internal/api/http"
	"github.com/openautomata/windrive/internal/api/middleware"
	"github.com/openautomata/windrive/internal/domain/activation"
	"github.com/openautomata/windrive/internal/domain/catalog"
	"github.com/openautomata/windrive/internal/domain/element"
	"github.com/openautomata/windrive/internal/domain/session"
	"github.com/openautomata/windrive/internal/driver"
	"github.com/openautomata/windrive/internal/driver/sim"
	"github.com/openautomata/windrive/internal/infrastructure/config"
	"github.com/openautomata/windrive/internal/infrastructure/logging"
	"github.com/openautomata/windrive/internal/infrastructure/monitoring"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	httpSrv  *http.Server
	registry *session.Registry
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	// Initialize logger
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("Initializing windrive server",
		zap.String("port", cfg.Server.Port),
		zap.String("driver", cfg.Driver.Backend),
	)

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()

	// Initialize the automation driver
	drv, err := newDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}
	logger.Info("Driver initialized", zap.String("backend", cfg.Driver.Backend))

	// Domain wiring: registry -> coordinator -> resolver -> activation
	sessionLog := logger.Named("session").Logger
	registry := session.NewRegistry(sessionLog)
	coordinator := session.NewCoordinator(registry, drv, sessionLog).
		WithObserver(metrics.RecordRefresh)
	resolver := element.NewResolver(registry, coordinator, drv, logger.Named("resolve").Logger).
		WithObserver(metrics.RecordResolution)
	engine := activation.NewEngine(registry, coordinator, resolver, drv, drv,
		activation.Settings{}, logger.Named("activate").Logger)

	// Application catalog
	cat := catalog.New(logger.Named("catalog").Logger)
	if err := cat.Load(cfg.Catalog.Dir); err != nil {
		logger.Warn("Failed to load app catalog", zap.Error(err))
	}
	if cfg.Catalog.SeedDefaults {
		cat.SeedDefaults()
	}

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	// Create handlers and register routes
	handlers := api.NewHandlers(registry, coordinator, resolver, engine, cat, drv, metrics,
		api.SessionDefaults{
			Timeout:     cfg.Session.DefaultTimeout,
			AutoRecover: cfg.Session.AutoRecover,
		}, logger.Logger)
	handlers.Register(router)

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	logger.Info("Server initialized successfully")

	return &Server{
		router:   router,
		registry: registry,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

// newDriver selects the automation backend.
func newDriver(cfg config.DriverConfig) (driver.Driver, error) {
	switch cfg.Backend {
	case "sim":
		var opts []sim.Option
		if cfg.CollectDelay > 0 {
			opts = append(opts, sim.WithCollectDelay(cfg.CollectDelay))
		}
		return sim.New(opts...), nil
	default:
		return nil, fmt.Errorf("unknown driver backend %q", cfg.Backend)
	}
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			return err
		}
	}
	_ = s.logger.Sync()
	return nil
}
