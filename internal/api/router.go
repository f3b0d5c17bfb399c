// Package api exposes the brain's operator surface: live status,
// capture history, profile deployment, and the WebSocket event stream.
package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/skycam/internal/api/ws"
	"github.com/your-org/skycam/internal/auth"
	"github.com/your-org/skycam/internal/config"
	"github.com/your-org/skycam/internal/edgeclient"
	"github.com/your-org/skycam/internal/orchestrator"
	"github.com/your-org/skycam/internal/schedule"
	"github.com/your-org/skycam/internal/storage"
)

type RouterConfig struct {
	APIKey       string
	Config       *config.Config
	Evaluator    *schedule.Evaluator
	Orchestrator *orchestrator.Orchestrator
	Store        *storage.PostgresStore
	Edge         *edgeclient.Client
	Hub          *ws.Hub
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	h := NewHandler(cfg.Config, cfg.Evaluator, cfg.Orchestrator, cfg.Store, cfg.Edge)

	// System endpoints (no auth)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	v1.GET("/status", h.Status)
	v1.GET("/schedules", h.Schedules)
	v1.GET("/schedules/:name/window", h.ScheduleWindow)
	v1.GET("/captures", h.RecentCaptures)
	v1.GET("/captures/group/:id", h.BracketGroup)

	v1.GET("/profiles", h.ListProfiles)
	v1.POST("/profiles/:id/deploy", h.DeployProfile)
	v1.GET("/edge/profile", h.EdgeProfile)
	v1.DELETE("/edge/profile", h.ClearEdgeProfile)

	if cfg.Hub != nil {
		v1.GET("/ws", cfg.Hub.HandleWS)
	}

	return r
}
