// Package server exposes the local process table as the JSON API the
// dashboard polls.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Dicklesworthstone/procpulse/internal/model"
)

const shutdownTimeout = 5 * time.Second

// Source streams samples. sampler.Sampler implements it.
type Source interface {
	Stream(ctx context.Context) <-chan model.Sample
}

// Server serves the most recent sample.
type Server struct {
	addr   string
	logger *slog.Logger
	router *gin.Engine

	mu     sync.RWMutex
	latest model.Sample
}

// New builds a Server listening on addr. Access logs go to accessLog.
func New(addr string, logger *slog.Logger, accessLog io.Writer) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if accessLog == nil {
		accessLog = io.Discard
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{addr: addr, logger: logger}

	router := gin.New()
	router.Use(gin.LoggerWithWriter(accessLog), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	router.GET("/processes", s.handleProcesses)
	router.GET("/system-resources", s.handleResources)
	router.GET("/healthz", s.handleHealth)

	s.router = router
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Update replaces the sample being served.
func (s *Server) Update(samp model.Sample) {
	s.mu.Lock()
	s.latest = samp
	s.mu.Unlock()
}

func (s *Server) snapshot() (model.Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.latest.Ready()
}

func (s *Server) handleProcesses(c *gin.Context) {
	samp, ok := s.snapshot()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no sample collected yet"})
		return
	}
	c.JSON(http.StatusOK, samp.Processes)
}

func (s *Server) handleResources(c *gin.Context) {
	samp, ok := s.snapshot()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no sample collected yet"})
		return
	}
	c.JSON(http.StatusOK, samp.Resources)
}

func (s *Server) handleHealth(c *gin.Context) {
	samp, ok := s.snapshot()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"sampled_at": samp.Timestamp.UTC().Format(time.RFC3339),
		"processes":  len(samp.Processes),
	})
}

// Run feeds samples from src into the server and serves HTTP until ctx is
// done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, src Source) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		for samp := range src.Stream(ctx) {
			s.Update(samp)
		}
	}()

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("process API listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down process API")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
