package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatbridge/config"
	"chatbridge/internal/handler"
	"chatbridge/internal/metrics"
	"chatbridge/internal/middleware"
	"chatbridge/internal/services"
	"chatbridge/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Auth   *handler.AuthHandler
	User   *handler.UserHandler
	Chat   *handler.ChatHandler
	Health *handler.HealthHandler
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(middleware.Recovery(l))

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

// SetupRoutes registers every endpoint. limiter may be nil, in which case no
// rate limiting is applied.
func (s *Server) SetupRoutes(handlers *Handlers, authService *services.AuthService, m *metrics.Registry, limiter middleware.RateLimiter) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.MetricsMiddleware(m))
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", handlers.Health.Ping)
	s.engine.GET("/health", handlers.Health.Health)
	s.engine.GET("/metrics", gin.WrapH(m.Handler()))

	var authLimit, chatLimit []gin.HandlerFunc
	if limiter != nil {
		authLimit = append(authLimit, middleware.AuthRateLimitMiddleware(limiter, m))
		chatLimit = append(chatLimit, middleware.ChatRateLimitMiddleware(limiter, m))
	}

	api := s.engine.Group("/api")
	{
		api.POST("/register", append(authLimit, handlers.Auth.Register)...)
		api.POST("/login", append(authLimit, handlers.Auth.Login)...)
	}

	protected := api.Group("", middleware.AuthMiddleware(authService))
	{
		protected.GET("/users", handlers.User.List)
		protected.POST("/chatbot", append(chatLimit, handlers.Chat.Chat)...)
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for up to 5 seconds.
func (s *Server) Start() error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("Starting the server on %s...", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		s.logger.Errorf("Error in starting the server: %s", err)
		return err
	case <-quit:
	}

	s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Errorf("Error in the graceful shutdown of the server: %s", err)
		return err
	}

	s.logger.Infof("Server stopped gracefully")
	return nil
}
