// Package api exposes the edge device over HTTP: metering, capture,
// and the resident-profile lifecycle.
package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/skycam/internal/api"
	"github.com/your-org/skycam/internal/auth"
	"github.com/your-org/skycam/internal/camera"
	"github.com/your-org/skycam/internal/edge"
)

type RouterConfig struct {
	APIKey   string
	Camera   camera.Camera
	Executor *edge.Executor
	Deploy   *edge.DeploymentManager
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(api.LoggingMiddleware())
	r.Use(cors.Default())

	h := NewHandler(cfg.Camera, cfg.Executor, cfg.Deploy)

	// System endpoints (no auth)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	v1.GET("/meter", h.Meter)
	v1.POST("/capture", h.Capture)
	v1.PUT("/profile", h.DeployProfile)
	v1.GET("/profile", h.QueryProfile)
	v1.DELETE("/profile", h.ClearProfile)

	return r
}
