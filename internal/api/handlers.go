package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/skycam/internal/config"
	"github.com/your-org/skycam/internal/edgeclient"
	"github.com/your-org/skycam/internal/orchestrator"
	"github.com/your-org/skycam/internal/schedule"
	"github.com/your-org/skycam/internal/storage"
)

type Handler struct {
	cfg       *config.Config
	evaluator *schedule.Evaluator
	orch      *orchestrator.Orchestrator
	store     *storage.PostgresStore
	edge      *edgeclient.Client
}

func NewHandler(
	cfg *config.Config,
	evaluator *schedule.Evaluator,
	orch *orchestrator.Orchestrator,
	store *storage.PostgresStore,
	edge *edgeclient.Client,
) *Handler {
	return &Handler{cfg: cfg, evaluator: evaluator, orch: orch, store: store, edge: edge}
}

func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Readyz(c *gin.Context) {
	if h.store != nil {
		if err := h.store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Status summarises the control loop: edge health, active schedules,
// and the current local time as the loop sees it.
func (h *Handler) Status(c *gin.Context) {
	now := time.Now()
	active := h.evaluator.ActiveAt(now)

	names := make([]gin.H, 0, len(active))
	for _, a := range active {
		names = append(names, gin.H{
			"name":              a.Definition.Name,
			"profile_id":        a.Definition.ProfileID,
			"window_start":      a.Window.Start,
			"window_end":        a.Window.End,
			"anchor_offset_min": a.AnchorOffsetMin,
		})
	}

	resp := gin.H{
		"time":             now,
		"active_schedules": names,
	}
	if h.orch != nil {
		resp["edge_healthy"] = h.orch.Health().Healthy()
		resp["consecutive_failures"] = h.orch.Health().ConsecutiveFailures()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Schedules(c *gin.Context) {
	defs := h.evaluator.Definitions()
	out := make([]gin.H, 0, len(defs))
	for _, d := range defs {
		out = append(out, gin.H{
			"name":       d.Name,
			"kind":       d.Kind,
			"profile_id": d.ProfileID,
			"disabled":   d.Disabled,
		})
	}
	c.JSON(http.StatusOK, gin.H{"schedules": out})
}

// ScheduleWindow resolves a schedule's window for a given day
// (?date=YYYY-MM-DD, default today).
func (h *Handler) ScheduleWindow(c *gin.Context) {
	def, ok := h.evaluator.Lookup(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown schedule"})
		return
	}

	day := time.Now()
	if ds := c.Query("date"); ds != "" {
		parsed, err := time.Parse("2006-01-02", ds)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		day = parsed
	}

	w, err := h.evaluator.ResolveWindow(def, day)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"schedule": def.Name,
		"start":    w.Start,
		"end":      w.End,
		"anchor":   w.Anchor,
	})
}

func (h *Handler) RecentCaptures(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "capture store not configured"})
		return
	}

	limit := 50
	if ls := c.Query("limit"); ls != "" {
		n, err := strconv.Atoi(ls)
		if err != nil || n < 1 || n > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be 1-500"})
			return
		}
		limit = n
	}

	results, err := h.store.RecentResults(c.Request.Context(), c.Query("schedule"), limit)
	if err != nil {
		slog.Error("query recent captures failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"captures": results, "count": len(results)})
}

func (h *Handler) BracketGroup(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "capture store not configured"})
		return
	}

	group, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return
	}

	results, err := h.store.BracketGroup(c.Request.Context(), group)
	if err != nil {
		slog.Error("query bracket group failed", "group", group, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"group": group, "captures": results})
}

func (h *Handler) ListProfiles(c *gin.Context) {
	out := make([]gin.H, 0, len(h.cfg.Profiles))
	for _, p := range h.cfg.Profiles {
		out = append(out, gin.H{
			"id":        p.ID,
			"version":   p.Version,
			"schedules": h.cfg.SchedulesForProfile(p.ID),
		})
	}
	c.JSON(http.StatusOK, gin.H{"profiles": out})
}

// DeployProfile pushes a configured profile to the edge device so it
// can keep capturing through network partitions.
func (h *Handler) DeployProfile(c *gin.Context) {
	if h.edge == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "edge client not configured"})
		return
	}

	id := c.Param("id")
	profile, ok := h.cfg.Profile(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown profile"})
		return
	}

	req := edgeclient.BuildDeployRequest(profile, h.cfg.SchedulesForProfile(id))
	if err := h.edge.DeployProfile(c.Request.Context(), req); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, edgeclient.ErrRejected) {
			status = http.StatusConflict
		}
		slog.Error("profile deployment failed", "profile", id, "error", err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	slog.Info("profile deployed to edge", "profile", id, "version", profile.Version)
	c.JSON(http.StatusOK, gin.H{"status": "deployed", "profile": id, "version": profile.Version})
}

func (h *Handler) EdgeProfile(c *gin.Context) {
	if h.edge == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "edge client not configured"})
		return
	}

	resp, err := h.edge.QueryProfile(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ClearEdgeProfile(c *gin.Context) {
	if h.edge == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "edge client not configured"})
		return
	}

	if err := h.edge.ClearProfile(c.Request.Context()); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, edgeclient.ErrRejected) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}
