package edge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/skycam/internal/camera"
	"github.com/your-org/skycam/internal/exposure"
	"github.com/your-org/skycam/internal/models"
	"github.com/your-org/skycam/internal/schedule"
	"github.com/your-org/skycam/pkg/dto"
)

// ErrUnknownSchedule is returned for a deployed-profile request naming a
// schedule the edge's configuration does not know.
var ErrUnknownSchedule = errors.New("unknown schedule")

// Exposure is one applied exposure from a capture command.
type Exposure struct {
	Settings models.CaptureSettings
	FilePath string
	Index    int
}

// Executor runs capture and meter commands against the sensor. In
// deployed-profile mode it resolves settings itself, with the same
// calculator the brain uses.
type Executor struct {
	cam       camera.Camera
	deploy    *DeploymentManager
	evaluator *schedule.Evaluator
	store     *StateStore
	outputDir string
	now       func() time.Time
}

func NewExecutor(cam camera.Camera, deploy *DeploymentManager, evaluator *schedule.Evaluator, store *StateStore, outputDir string) *Executor {
	return &Executor{
		cam:       cam,
		deploy:    deploy,
		evaluator: evaluator,
		store:     store,
		outputDir: outputDir,
		now:       time.Now,
	}
}

// Meter reads the scene through the sensor.
func (e *Executor) Meter(ctx context.Context) (models.MeterReading, error) {
	return e.cam.Meter(ctx)
}

// State exposes the deployment manager's operational state.
func (e *Executor) State() OperationalState {
	return e.deploy.State()
}

// ExecuteCapture resolves, validates, and applies one capture command,
// returning the ordered list of exposures taken. Validation happens
// before any hardware call; out-of-range values are request errors,
// never clamped.
func (e *Executor) ExecuteCapture(ctx context.Context, req dto.CaptureRequest) ([]Exposure, time.Duration, error) {
	if !e.cam.Ready() {
		return nil, 0, camera.ErrNotReady
	}

	var (
		settings  models.CaptureSettings
		schedName string
		err       error
	)
	if req.UseDeployedProfile {
		schedName = req.ScheduleName
		settings, err = e.resolveFromProfile(ctx, req)
	} else {
		settings = SettingsFromRequest(req)
		if settings.WhiteBalanceMode == "" {
			settings.WhiteBalanceMode = models.WBAuto
		}
	}
	if err != nil {
		return nil, 0, err
	}

	members, err := exposure.ExpandBracket(settings, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", camera.ErrInvalidSettings, err)
	}
	if err := e.cam.Constraints().ValidateBracket(members); err != nil {
		return nil, 0, err
	}

	profileDir := settings.ProfileTag
	if profileDir == "" {
		profileDir = "adhoc"
	}
	if err := os.MkdirAll(filepath.Join(e.outputDir, profileDir), 0o755); err != nil {
		return nil, 0, fmt.Errorf("create output dir: %w", err)
	}

	start := e.now()
	base := models.CaptureBaseName(schedName, start)
	group := uuid.New()

	exposures := make([]Exposure, 0, len(members))
	for i, m := range members {
		path := models.SinglePath(e.outputDir, profileDir, base)
		if len(members) > 1 {
			path = models.BracketMemberPath(e.outputDir, profileDir, base, i)
		}
		if err := e.cam.Capture(ctx, m, path); err != nil {
			e.journal(models.CaptureResult{
				ID: uuid.New(), ScheduleName: schedName, ProfileID: settings.ProfileTag,
				FilePath: path, Settings: m, Success: false, Message: err.Error(),
				BracketGroup: group, BracketIndex: i, CapturedAt: e.now(),
			})
			return exposures, e.now().Sub(start), fmt.Errorf("exposure %d/%d: %w", i+1, len(members), err)
		}
		exposures = append(exposures, Exposure{Settings: m, FilePath: path, Index: i})
		e.journal(models.CaptureResult{
			ID: uuid.New(), ScheduleName: schedName, ProfileID: settings.ProfileTag,
			FilePath: path, Settings: m, Success: true,
			BracketGroup: group, BracketIndex: i, CapturedAt: e.now(),
		})
	}

	return exposures, e.now().Sub(start), nil
}

// resolveFromProfile meters locally and runs the shared calculator
// against the resident profile.
func (e *Executor) resolveFromProfile(ctx context.Context, req dto.CaptureRequest) (models.CaptureSettings, error) {
	resident, err := e.deploy.Resident()
	if err != nil {
		return models.CaptureSettings{}, err
	}
	if req.ProfileID != "" && req.ProfileID != resident.ID {
		return models.CaptureSettings{}, fmt.Errorf("%w: requested %s, resident %s",
			ErrProfileMismatch, req.ProfileID, resident.ID)
	}

	def, ok := e.evaluator.Lookup(req.ScheduleName)
	if !ok {
		return models.CaptureSettings{}, fmt.Errorf("%w: %s", ErrUnknownSchedule, req.ScheduleName)
	}

	reading, err := e.cam.Meter(ctx)
	if err != nil {
		return models.CaptureSettings{}, fmt.Errorf("local metering: %w", err)
	}

	now := e.now()
	offsetMin := 0.0
	if w, werr := e.evaluator.ResolveWindow(def, now); werr == nil {
		offsetMin = now.Sub(w.Anchor).Minutes()
	} else {
		slog.Warn("anchor offset unavailable, using 0", "schedule", def.Name, "error", werr)
	}

	settings, err := exposure.Compute(resident, exposure.Input{
		ScheduleName:    def.Name,
		Phase:           def.Phase(),
		AnchorOffsetMin: offsetMin,
		Lux:             reading.Lux,
	})
	if err != nil {
		return models.CaptureSettings{}, fmt.Errorf("resolve settings from profile %s: %w", resident.ID, err)
	}

	if req.Override != nil {
		settings = DeltaFromOverride(req.Override).Apply(settings)
	}
	return settings, nil
}

func (e *Executor) journal(res models.CaptureResult) {
	if e.store == nil {
		return
	}
	if err := e.store.LogCapture(res); err != nil {
		slog.Warn("capture journal write failed", "error", err)
	}
}
