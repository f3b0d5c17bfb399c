// Package orchestrator is the brain's control loop: every tick it
// evaluates the schedules, meters the scene through the edge, computes
// settings, and dispatches capture commands. No failure in a tick ever
// stops the loop; failed work is simply tried again next tick.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/skycam/internal/config"
	"github.com/your-org/skycam/internal/exposure"
	"github.com/your-org/skycam/internal/models"
	"github.com/your-org/skycam/internal/observability"
	"github.com/your-org/skycam/internal/schedule"
	"github.com/your-org/skycam/pkg/dto"
)

// EdgeCaller is the slice of the edge client the loop needs.
type EdgeCaller interface {
	Meter(ctx context.Context) (dto.MeterResponse, error)
	Capture(ctx context.Context, req dto.CaptureRequest) (dto.CaptureResponse, error)
}

// ResultRecorder hands completed captures to the storage collaborator.
type ResultRecorder interface {
	RecordResult(ctx context.Context, r *models.CaptureResult) error
}

// FusionEnqueuer hands completed brackets to the fusion pipeline.
type FusionEnqueuer interface {
	PublishFusionJob(ctx context.Context, profileID string, job interface{}) error
}

// EventBroadcaster pushes live events to dashboard clients.
type EventBroadcaster interface {
	BroadcastEvent(event *dto.WSEvent)
}

// Orchestrator drives one edge device. All collaborators are injected
// so Tick is testable with fakes; the loop itself owns no goroutines
// beyond Run's ticker.
type Orchestrator struct {
	cfg       config.BrainConfig
	evaluator *schedule.Evaluator
	profiles  map[string]*models.CaptureProfile

	client   EdgeCaller
	recorder ResultRecorder
	fusion   FusionEnqueuer
	events   EventBroadcaster
	health   *Health

	lastCapture map[string]time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

func New(
	cfg config.BrainConfig,
	evaluator *schedule.Evaluator,
	profiles []*models.CaptureProfile,
	client EdgeCaller,
	recorder ResultRecorder,
	fusion FusionEnqueuer,
	events EventBroadcaster,
) *Orchestrator {
	byID := make(map[string]*models.CaptureProfile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}
	return &Orchestrator{
		cfg:         cfg,
		evaluator:   evaluator,
		profiles:    byID,
		client:      client,
		recorder:    recorder,
		fusion:      fusion,
		events:      events,
		health:      NewHealth(cfg.FailureThreshold),
		lastCapture: make(map[string]time.Time),
		now:         time.Now,
		sleep:       time.Sleep,
	}
}

// Health exposes the edge health tracker (read by the status API).
func (o *Orchestrator) Health() *Health {
	return o.health
}

// Run ticks until the context ends.
func (o *Orchestrator) Run(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.Tick())
	defer ticker.Stop()

	slog.Info("orchestrator started", "tick", o.cfg.Tick().String())
	o.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("orchestrator stopped")
			return
		case <-ticker.C:
			o.Tick(ctx)
		}
	}
}

// Tick runs one orchestration pass: evaluate the active set, then for
// each due schedule meter, compute, dispatch, and record. Work across
// schedules is a sequential burst with a settle delay between distinct
// settings, since one physical sensor cannot reconfigure instantly.
func (o *Orchestrator) Tick(ctx context.Context) {
	start := o.now()
	defer func() {
		observability.TickDuration.Observe(time.Since(start).Seconds())
	}()

	active := o.evaluator.ActiveAt(start)
	observability.ActiveSchedules.Set(float64(len(active)))

	dispatched := 0
	for _, act := range active {
		name := act.Definition.Name
		if last, ok := o.lastCapture[name]; ok && start.Sub(last) < act.Definition.Interval() {
			continue
		}

		profile, ok := o.profiles[act.Definition.ProfileID]
		if !ok {
			slog.Warn("schedule references unknown profile",
				"schedule", name, "profile", act.Definition.ProfileID)
			continue
		}

		if dispatched > 0 {
			// Let the camera settle before the next distinct settings.
			o.sleep(o.cfg.SettleDelay())
		}

		o.captureOne(ctx, act, profile)
		dispatched++
	}
}

// captureOne runs the metering, computing, dispatching chain
// for a single schedule. Any failure returns to Idle; the next tick
// retries from scratch.
func (o *Orchestrator) captureOne(ctx context.Context, act schedule.Active, profile *models.CaptureProfile) {
	name := act.Definition.Name

	// Metering
	meter, err := o.client.Meter(ctx)
	if err != nil {
		observability.MeterFailures.Inc()
		o.recordFailure(name, "meter", err)
		return
	}

	// Computing
	settings, err := exposure.Compute(profile, exposure.Input{
		ScheduleName:    name,
		Phase:           act.Definition.Phase(),
		AnchorOffsetMin: act.AnchorOffsetMin,
		Lux:             meter.BrightnessLux,
	})
	if err != nil {
		slog.Error("exposure computation failed", "schedule", name, "error", err)
		observability.CapturesTotal.WithLabelValues(name, "compute_error").Inc()
		return
	}

	// Dispatching
	req := dto.CaptureRequest{
		Sensitivity:      settings.Sensitivity,
		Shutter:          settings.Shutter,
		ExposureBias:     settings.ExposureBias,
		WhiteBalanceMode: string(settings.WhiteBalanceMode),
		WhiteBalanceTemp: settings.WhiteBalanceTemp,
		MeteringMode:     string(settings.MeteringMode),
		BracketCount:     settings.BracketCount,
		BracketOffsets:   settings.BracketOffsets,
		ProfileTag:       profile.ID,
	}

	resp, err := o.client.Capture(ctx, req)
	if err != nil {
		o.recordFailure(name, "capture", err)
		return
	}

	// Done
	if flipped := o.health.RecordSuccess(); flipped {
		slog.Info("edge recovered")
		o.broadcastHealth(true)
	}
	o.lastCapture[name] = o.now()
	observability.CapturesTotal.WithLabelValues(name, "success").Inc()

	o.recordResults(ctx, name, profile, settings, resp)
}

// recordResults persists per-exposure results, enqueues fusion for a
// completed bracket, and broadcasts the capture event.
func (o *Orchestrator) recordResults(
	ctx context.Context,
	scheduleName string,
	profile *models.CaptureProfile,
	settings models.CaptureSettings,
	resp dto.CaptureResponse,
) {
	group := uuid.New()
	now := o.now()

	sourceIDs := make([]uuid.UUID, 0, len(resp.FilePaths))
	for i, path := range resp.FilePaths {
		result := &models.CaptureResult{
			ID:           uuid.New(),
			ScheduleName: scheduleName,
			ProfileID:    profile.ID,
			FilePath:     path,
			Settings:     appliedOrComputed(settings, resp.Applied, i),
			Duration:     time.Duration(resp.DurationMs) * time.Millisecond,
			Success:      true,
			BracketGroup: group,
			BracketIndex: i,
			CapturedAt:   now,
		}
		sourceIDs = append(sourceIDs, result.ID)
		if o.recorder != nil {
			if err := o.recorder.RecordResult(ctx, result); err != nil {
				slog.Warn("record capture result failed", "schedule", scheduleName, "error", err)
			}
		}
	}

	if len(resp.FilePaths) > 1 && o.fusion != nil {
		job := dto.FusionJob{
			JobID:          uuid.New(),
			BracketGroup:   group,
			ScheduleName:   scheduleName,
			ProfileID:      profile.ID,
			SourcePaths:    resp.FilePaths,
			SourceIDs:      sourceIDs,
			BracketOffsets: settings.BracketOffsets,
			CapturedAt:     now,
		}
		if err := o.fusion.PublishFusionJob(ctx, profile.ID, job); err != nil {
			slog.Warn("enqueue fusion job failed", "schedule", scheduleName, "error", err)
		}
	}

	if o.events != nil {
		path := ""
		if len(resp.FilePaths) > 0 {
			path = resp.FilePaths[0]
		}
		o.events.BroadcastEvent(&dto.WSEvent{
			Type:         "capture",
			ScheduleName: scheduleName,
			ProfileID:    profile.ID,
			FilePath:     path,
			Success:      true,
			Timestamp:    now,
		})
	}
}

func (o *Orchestrator) recordFailure(scheduleName, stage string, err error) {
	flipped := o.health.RecordFailure()
	observability.CapturesTotal.WithLabelValues(scheduleName, stage+"_failed").Inc()
	slog.Warn("tick stage failed, skipping until next tick",
		"schedule", scheduleName, "stage", stage,
		"consecutive_failures", o.health.ConsecutiveFailures(), "error", err)
	if flipped {
		slog.Error("edge marked unhealthy; capture attempts continue",
			"threshold", o.cfg.FailureThreshold)
		o.broadcastHealth(false)
	}
}

func (o *Orchestrator) broadcastHealth(healthy bool) {
	if o.events == nil {
		return
	}
	o.events.BroadcastEvent(&dto.WSEvent{
		Type:      "edge_health",
		Healthy:   healthy,
		Success:   healthy,
		Timestamp: o.now(),
	})
}

// appliedOrComputed prefers the settings the edge reports it actually
// applied, falling back to the computed record.
func appliedOrComputed(computed models.CaptureSettings, applied []dto.AppliedSetting, i int) models.CaptureSettings {
	if i >= len(applied) {
		return computed
	}
	a := applied[i]
	out := computed
	out.Sensitivity = a.Sensitivity
	out.Shutter = a.Shutter
	out.ExposureBias = a.ExposureBias
	out.WhiteBalanceMode = models.WhiteBalanceMode(a.WhiteBalanceMode)
	out.WhiteBalanceTemp = a.WhiteBalanceTemp
	return out
}
