// Package router wires the HTTP middleware chain and routes onto a gin engine.
package router

import (
	"github.com/vidsum/orchestrator/internal/config"
	"github.com/vidsum/orchestrator/internal/interfaces/http/handler"
	"github.com/vidsum/orchestrator/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router builds the gin engine for cmd/api-gateway.
type Router struct {
	engine *gin.Engine
	cfg    *config.Config

	healthHandler    *handler.HealthHandler
	summarizeHandler *handler.SummarizeHandler
	feedbackHandler  *handler.FeedbackHandler
}

// RouterHandlers collects the handlers the router dispatches to.
type RouterHandlers struct {
	Health    *handler.HealthHandler
	Summarize *handler.SummarizeHandler
	Feedback  *handler.FeedbackHandler
}

// New builds a Router bound to cfg and handlers.
func New(cfg *config.Config, handlers *RouterHandlers) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine:           gin.New(),
		cfg:              cfg,
		healthHandler:    handlers.Health,
		summarizeHandler: handlers.Summarize,
		feedbackHandler:  handlers.Feedback,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine returns the underlying gin engine.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	r.engine.Use(middleware.RequestID())

	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}
}

func (r *Router) setupRoutes() {
	r.engine.GET("/health", r.healthHandler.Health)
	r.engine.GET("/ready", r.healthHandler.Ready)
	r.engine.GET("/live", r.healthHandler.Live)

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.cfg.Observability.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	RegisterRoutes(r.engine, r.summarizeHandler, r.feedbackHandler)
}
