// Package http exposes the run status server: health checks, pipeline progress and
// prometheus metrics.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/turtacn/keggminer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/keggminer/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/keggminer/internal/interfaces/http/handlers"
	"github.com/turtacn/keggminer/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers mounted by NewRouter. Nil handlers are
// not mounted.
type RouterConfig struct {
	Mode string

	HealthHandler   *handlers.HealthHandler
	ProgressHandler *handlers.ProgressHandler

	Logger           logging.Logger
	LoggingConfig    *middleware.LoggingConfig
	MetricsCollector prometheus.MetricsCollector
}

// NewRouter builds the gin engine.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	logCfg := middleware.DefaultLoggingConfig()
	if cfg.LoggingConfig != nil {
		logCfg = *cfg.LoggingConfig
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogging(cfg.Logger, logCfg))

	if h := cfg.HealthHandler; h != nil {
		r.GET("/healthz", h.Liveness)
		r.GET("/readyz", h.Readiness)
	}
	if h := cfg.ProgressHandler; h != nil {
		r.GET("/progress", h.Get)
	}
	if cfg.MetricsCollector != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsCollector.Handler()))
	}
	return r
}
