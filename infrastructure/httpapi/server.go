// Package httpapi serves the consolidation engine over HTTP with gin.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-concord/internal/application"
	"github.com/ahrav/go-concord/internal/config"
)

// Config defines server dependencies.
type Config struct {
	HTTP         config.HTTPConfig
	Consolidator *application.Consolidator

	// Logger receives the request log. Nil uses the logrus standard logger.
	Logger logrus.FieldLogger

	// Gatherer backs /metrics. Nil uses the default Prometheus registry.
	Gatherer prometheus.Gatherer
}

// Server wires HTTP handlers to a Consolidator.
type Server struct {
	cfg          config.HTTPConfig
	consolidator *application.Consolidator
	logger       logrus.FieldLogger
	gatherer     prometheus.Gatherer
	limiter      *rate.Limiter
}

// NewServer constructs the API server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Consolidator == nil {
		return nil, errors.New("consolidator required")
	}
	if cfg.HTTP.MaxBodyBytes <= 0 {
		return nil, fmt.Errorf("max body bytes must be positive, got %d", cfg.HTTP.MaxBodyBytes)
	}

	s := &Server{
		cfg:          cfg.HTTP,
		consolidator: cfg.Consolidator,
		logger:       cfg.Logger,
		gatherer:     cfg.Gatherer,
	}
	if s.logger == nil {
		s.logger = logrus.StandardLogger()
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if cfg.HTTP.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.HTTP.RateLimit), cfg.HTTP.Burst)
	}
	return s, nil
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))

	corsCfg := cors.DefaultConfig()
	if len(s.cfg.AllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.cfg.AllowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	v1 := r.Group("/v1", rateLimit(s.limiter), bodyLimit(s.cfg.MaxBodyBytes))
	{
		v1.POST("/consolidations", s.handleConsolidate)
		v1.POST("/validations", s.handleValidate)
	}
	return r
}

// ListenAndServe serves on cfg.Addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.cfg.Addr).Info("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "graph": s.consolidator.Graph().ID()})
}

func (s *Server) handleConsolidate(c *gin.Context) {
	var sub application.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		s.renderError(c, fmt.Errorf("%w: %w", errMalformedRequest, err))
		return
	}
	in, err := sub.ToInput()
	if err != nil {
		s.renderError(c, err)
		return
	}

	result, err := s.consolidator.Consolidate(c.Request.Context(), in)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleValidate(c *gin.Context) {
	var sub application.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		s.renderError(c, fmt.Errorf("%w: %w", errMalformedRequest, err))
		return
	}
	in, err := sub.ToInput()
	if err != nil {
		s.renderError(c, err)
		return
	}
	if err := s.consolidator.Check(c.Request.Context(), in); err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":           true,
		"criteria":        len(in.Criteria),
		"decision_makers": in.DecisionMakerCount(),
	})
}

func (s *Server) renderError(c *gin.Context, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	c.AbortWithStatusJSON(status, body)
}
