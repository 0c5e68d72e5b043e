// Package server serves the report directory over HTTP so a run's output can
// be previewed before it is published.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ryosukesatoh/paint-news/internal/logger"
)

// Server is the preview HTTP server.
type Server struct {
	addr   string
	dir    string
	router *gin.Engine
	server *http.Server
	log    logger.Logger
}

// New builds the router for dir. Nothing listens until Start.
func New(addr, dir string, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.NoRoute(gin.WrapH(http.FileServer(http.Dir(dir))))

	return &Server{
		addr:   addr,
		dir:    dir,
		router: router,
		server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving HTTP in the background. Call Shutdown to stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("server: failed to listen on %s: %w", s.addr, err)
	}
	s.log.Info("Preview server listening",
		logger.String("addr", ln.Addr().String()),
		logger.String("dir", s.dir),
	)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Preview server stopped", logger.Error(err))
		}
	}()
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	s.log.Info("Preview server stopped")
	return nil
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("duration", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			log.Error("HTTP request with errors", append(fields, logger.String("errors", c.Errors.String()))...)
			return
		}
		log.Debug("HTTP request", fields...)
	}
}
