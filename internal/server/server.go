package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/flashfile/internal/api/http"
	"github.com/GriffinCanCode/flashfile/internal/api/middleware"
	"github.com/GriffinCanCode/flashfile/internal/infrastructure/config"
	"github.com/GriffinCanCode/flashfile/internal/infrastructure/monitoring"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	*Stack
	router  *gin.Engine
	handler http.Handler
	config  *config.Config
	http    *http.Server
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	stack, err := NewStack(cfg, opts...)
	if err != nil {
		return nil, err
	}
	logger := stack.Logger

	logger.Info("Initializing flashfile server",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
		zap.String("backend", cfg.Volume.Backend),
	)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(monitoring.Middleware(stack.Metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
			zap.Bool("per_client", cfg.RateLimit.PerClient),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		if cfg.RateLimit.PerClient {
			router.Use(middleware.RateLimit(rl))
		} else {
			router.Use(middleware.GlobalRateLimit(rl))
		}
	}

	handlers := apihttp.NewHandlers(stack.Runtime, stack.Metrics, logger.Named("http")).
		WithGuard(stack.Guard)
	handlers.Register(router)
	router.GET("/metrics", gin.WrapH(stack.Metrics.Handler()))

	var handler http.Handler = router
	if cfg.Server.Compress {
		handler = compress(router)
	}

	logger.Info("Server initialized successfully")

	return &Server{
		Stack:   stack,
		router:  router,
		handler: handler,
		config:  cfg,
		http: &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// compress gzips responses for clients that accept it. Websocket upgrades
// bypass the wrapper since they need the raw connection.
func compress(next http.Handler) http.Handler {
	gz := gzhttp.GzipHandler(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Upgrade") != "" {
			next.ServeHTTP(w, r)
			return
		}
		gz.ServeHTTP(w, r)
	})
}

// Handler exposes the full handler chain, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run starts the HTTP server and blocks until it stops
func (s *Server) Run() error {
	s.Logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.Logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	if err := s.http.Shutdown(ctx); err != nil {
		s.Logger.Error("Failed to stop HTTP server", zap.Error(err))
		errs = append(errs, err)
	}
	if err := s.Stack.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close file: %w", err))
	}
	return errors.Join(errs...)
}
