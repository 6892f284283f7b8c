// Package api exposes the analysis service over HTTP with gin.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/safetycheck/safetycheck/internal/config"
	"github.com/safetycheck/safetycheck/internal/logger"
	"github.com/safetycheck/safetycheck/internal/metrics"
)

// Server wraps the HTTP server and its routes.
type Server struct {
	httpServer *http.Server
	logger     logger.Logger
}

// NewServer builds the router and the HTTP server.
func NewServer(cfg config.ServerConfig, handler *Handler, log logger.Logger) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(RequestID(), RequestLogger(log), Recovery(log))

	router.GET("/health", handler.Health)

	api := router.Group("/api")
	{
		api.POST("/analyze", handler.Analyze)
		api.POST("/analyze/upload", handler.AnalyzeUpload)
		api.DELETE("/cache", handler.ClearCache)
		api.GET("/stats", handler.Stats)
		api.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Address(),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		logger: log,
	}
}

// Start blocks serving requests until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", logger.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
