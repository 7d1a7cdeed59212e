// Package server - HTTP control surface for a running mask pipeline.
package server

import (
	"bytes"
	"context"
	"image/png"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-bgseg/config"
	"github.com/nvr-ai/go-bgseg/errs"
	"github.com/nvr-ai/go-bgseg/images"
	"github.com/nvr-ai/go-bgseg/models"
	"github.com/nvr-ai/go-bgseg/models/model"
	"github.com/nvr-ai/go-bgseg/profiler"
)

// Pipeline is the part of filter.Session the server drives.
type Pipeline interface {
	ID() string
	Settings() config.Settings
	Apply(next config.Settings) error
	Mask() gocv.Mat
	Model() model.Name
}

// Options configures the server.
type Options struct {
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	// Profiler serves GET /api/profile when set.
	Profiler *profiler.Profiler
	// Logger defaults to zap.L().
	Logger *zap.Logger
}

// Server exposes settings, the current mask and runtime statistics.
type Server struct {
	pipeline Pipeline
	opts     Options
	logger   *zap.Logger
	router   *gin.Engine
}

// New creates the server and registers its routes.
//
// Arguments:
//   - p: The pipeline to control.
//   - opts: Optional handlers and logger.
//
// Returns:
//   - *Server: The server. Use Handler for tests or Run to listen.
func New(p Pipeline, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = zap.L()
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{pipeline: p, opts: opts, logger: log, router: r}

	r.GET("/api/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "session": p.ID()})
	})
	r.GET("/api/models", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": models.Names(), "loaded": p.Model()})
	})
	r.GET("/api/settings", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": p.Settings()})
	})
	r.PUT("/api/settings", s.putSettings)
	r.GET("/api/mask.png", s.mask)
	if opts.Profiler != nil {
		r.GET("/api/profile", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"data": opts.Profiler.Report()})
		})
	}
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// putSettings overlays the JSON body on the current settings and applies the result.
func (s *Server) putSettings(c *gin.Context) {
	next := s.pipeline.Settings()
	if err := c.ShouldBindJSON(&next); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.pipeline.Apply(next); err != nil {
		status := http.StatusInternalServerError
		if errs.Is(err, errs.KindConfiguration) {
			status = http.StatusBadRequest
		}
		s.logger.Warn("settings rejected", zap.Error(err))
		c.JSON(status, gin.H{"error": err.Error(), "kind": errs.KindOf(err).String()})
		return
	}
	s.logger.Info("settings applied", zap.String("model", next.Model))
	c.JSON(http.StatusOK, gin.H{"data": s.pipeline.Settings()})
}

func (s *Server) mask(c *gin.Context) {
	mask := s.pipeline.Mask()
	defer mask.Close()
	if mask.Empty() {
		c.JSON(http.StatusNotFound, gin.H{"error": "no mask published yet"})
		return
	}
	gray, err := images.GrayImage(mask)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// Run listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		done <- srv.Shutdown(shutdown)
	}()

	s.logger.Info("control server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	return <-done
}
