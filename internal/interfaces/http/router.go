// Package http wires the gin router and server for the fit API.
package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/forgeff/internal/application/fitjob"
	"github.com/turtacn/forgeff/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/forgeff/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/forgeff/internal/interfaces/http/handlers"
)

// RouterOptions collects the router dependencies. Metrics may be nil.
type RouterOptions struct {
	Service fitjob.Service
	Metrics *prometheus.Metrics
	Logger  logging.Logger
	Version string
	Ready   func() bool
}

// NewRouter builds the API routes.
func NewRouter(opts RouterOptions) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	if opts.Logger != nil {
		r.Use(requestLogger(opts.Logger))
	}
	if opts.Metrics != nil {
		r.Use(requestMetrics(opts.Metrics))
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	health := handlers.NewHealthHandler(opts.Version, opts.Ready)
	r.GET("/healthz", health.Live)
	r.GET("/readyz", health.Ready)

	fit := handlers.NewFitHandler(opts.Service, opts.Logger)
	v1 := r.Group("/api/v1")
	{
		v1.POST("/fits", fit.Submit)
		v1.GET("/fits", fit.List)
		v1.GET("/fits/:id", fit.Get)
		v1.GET("/labels", fit.Labels)
	}
	return r
}

func requestLogger(log logging.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			logging.String("method", c.Request.Method),
			logging.String("path", c.FullPath()),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("elapsed", time.Since(start)))
	}
}

func requestMetrics(m *prometheus.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(c.Request.Method, path, statusLabel(c.Writer.Status())).Inc()
		m.HTTPDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func statusLabel(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
