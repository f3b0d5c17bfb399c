package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/skycam/internal/camera"
	"github.com/your-org/skycam/internal/edge"
	"github.com/your-org/skycam/pkg/dto"
)

type Handler struct {
	cam      camera.Camera
	executor *edge.Executor
	deploy   *edge.DeploymentManager
}

func NewHandler(cam camera.Camera, executor *edge.Executor, deploy *edge.DeploymentManager) *Handler {
	return &Handler{cam: cam, executor: executor, deploy: deploy}
}

func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Readyz(c *gin.Context) {
	if !h.cam.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": dto.StatusNotReady,
			"mode":   h.deploy.State().Mode.String(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"mode":   h.deploy.State().Mode.String(),
	})
}

// Meter handles a body-less meter request.
func (h *Handler) Meter(c *gin.Context) {
	reading, err := h.executor.Meter(c.Request.Context())
	if err != nil {
		status, code := classify(err)
		c.JSON(code, dto.MeterResponse{Status: status, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.MeterResponse{
		Status:               dto.StatusSuccess,
		BrightnessLux:        reading.Lux,
		RawGain:              reading.RawGain,
		RawExposureTime:      reading.RawExposureUs,
		SuggestedSensitivity: reading.SuggestedSensitivity,
		SuggestedShutter:     reading.SuggestedShutter,
	})
}

// Capture handles all three request shapes.
func (h *Handler) Capture(c *gin.Context) {
	var req dto.CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.CaptureResponse{Status: dto.StatusError, Message: err.Error()})
		return
	}

	exposures, duration, err := h.executor.ExecuteCapture(c.Request.Context(), req)
	if err != nil {
		status, code := classify(err)
		c.JSON(code, dto.CaptureResponse{
			Status:     status,
			FilePaths:  paths(exposures),
			DurationMs: duration.Milliseconds(),
			Message:    err.Error(),
		})
		return
	}

	applied := make([]dto.AppliedSetting, 0, len(exposures))
	for _, e := range exposures {
		applied = append(applied, dto.AppliedSetting{
			Sensitivity:      e.Settings.Sensitivity,
			Shutter:          e.Settings.Shutter,
			ExposureBias:     e.Settings.ExposureBias,
			WhiteBalanceMode: string(e.Settings.WhiteBalanceMode),
			WhiteBalanceTemp: e.Settings.WhiteBalanceTemp,
			BracketIndex:     e.Index,
			FilePath:         e.FilePath,
		})
	}

	c.JSON(http.StatusOK, dto.CaptureResponse{
		Status:     dto.StatusSuccess,
		FilePaths:  paths(exposures),
		Applied:    applied,
		DurationMs: duration.Milliseconds(),
	})
}

func (h *Handler) DeployProfile(c *gin.Context) {
	var req dto.ProfileDeployRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile := edge.ProfileFromDeployRequest(req)
	refreshed, err := h.deploy.Deploy(profile, req.Schedules)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "deployed",
		"profile_id": profile.ID,
		"version":    profile.Version,
		"refreshed":  refreshed,
	})
}

func (h *Handler) QueryProfile(c *gin.Context) {
	state := h.deploy.State()
	if state.Mode != edge.ModeDeployedProfile {
		c.JSON(http.StatusOK, dto.ProfileQueryResponse{Status: dto.ProfileStatusNoProfile})
		return
	}
	p := state.Profile
	c.JSON(http.StatusOK, dto.ProfileQueryResponse{
		Status:     dto.ProfileStatusDeployed,
		ProfileID:  p.ID,
		Version:    p.Version,
		DeployedAt: p.DeployedAt,
		AgeSeconds: int64(time.Since(p.DeployedAt).Seconds()),
		Schedules:  state.Schedules,
	})
}

func (h *Handler) ClearProfile(c *gin.Context) {
	if err := h.deploy.Clear(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared", "mode": edge.ModeLiveOrchestration.String()})
}

// classify maps executor errors onto wire statuses and HTTP codes per
// the failure taxonomy: not-ready is distinct from a timeout, request
// errors are rejected before hardware, profile state errors reject
// immediately.
func classify(err error) (string, int) {
	switch {
	case errors.Is(err, camera.ErrNotReady):
		return dto.StatusNotReady, http.StatusServiceUnavailable
	case errors.Is(err, camera.ErrInvalidSettings), errors.Is(err, edge.ErrUnknownSchedule):
		return dto.StatusError, http.StatusBadRequest
	case errors.Is(err, edge.ErrNoProfile), errors.Is(err, edge.ErrProfileMismatch):
		return dto.StatusError, http.StatusConflict
	default:
		return dto.StatusError, http.StatusInternalServerError
	}
}

func paths(exposures []edge.Exposure) []string {
	out := make([]string, 0, len(exposures))
	for _, e := range exposures {
		out = append(out, e.FilePath)
	}
	return out
}
