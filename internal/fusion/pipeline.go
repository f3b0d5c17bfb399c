package fusion

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/skycam/internal/config"
	"github.com/your-org/skycam/internal/models"
	"github.com/your-org/skycam/internal/observability"
	"github.com/your-org/skycam/pkg/dto"
)

// Recorder is the slice of the capture-result store the pipeline needs.
type Recorder interface {
	RecordResult(ctx context.Context, r *models.CaptureResult) error
	LinkFused(ctx context.Context, bracketGroup, fusedID uuid.UUID) error
}

// Archiver uploads a finished fused image to object storage.
type Archiver interface {
	ArchiveFile(ctx context.Context, profileID, filePath string) (string, error)
}

// EventPublisher announces fusion completion.
type EventPublisher interface {
	PublishCaptureEvent(ctx context.Context, scheduleName string, event interface{}) error
}

// Pipeline turns bracket jobs into fused results. It runs in the fuser,
// asynchronously from the capture loop, and shares no state with it.
type Pipeline struct {
	cfg      config.FusionConfig
	recorder Recorder
	archiver Archiver
	events   EventPublisher
}

func NewPipeline(cfg config.FusionConfig, recorder Recorder, archiver Archiver, events EventPublisher) *Pipeline {
	return &Pipeline{cfg: cfg, recorder: recorder, archiver: archiver, events: events}
}

// sidecar is the metadata file written next to a fused image, linking
// it to its sources by path and id.
type sidecar struct {
	FusedPath    string      `json:"fused_path"`
	BracketGroup uuid.UUID   `json:"bracket_group"`
	SourcePaths  []string    `json:"source_paths"`
	SourceIDs    []uuid.UUID `json:"source_ids"`
	Fallback     bool        `json:"fallback,omitempty"`
	FusedAt      time.Time   `json:"fused_at"`
}

// ProcessJob validates the bracket, fuses it (with bounded retries),
// records the fused result with back-references, and retires or retains
// the sources per configuration.
//
// A missing or corrupt source aborts the job with sources intact so
// the queue redelivers it. Merge failure past the retry bound degrades to
// keeping the single best-exposed source under the fused name, so the
// timestamp slot is never lost.
func (p *Pipeline) ProcessJob(ctx context.Context, job dto.FusionJob) error {
	start := time.Now()

	if len(job.SourcePaths) < 2 {
		return fmt.Errorf("job %s: bracket of %d cannot be fused", job.JobID, len(job.SourcePaths))
	}

	sources, err := loadSources(job.SourcePaths)
	if err != nil {
		return fmt.Errorf("job %s: %w", job.JobID, err)
	}

	fusedPath := models.FusedPathFromMember(job.SourcePaths[0])
	fallback := false

	var fused image.Image
	for attempt := 1; ; attempt++ {
		fused, err = Fuse(sources)
		if err == nil {
			break
		}
		if attempt >= p.cfg.RetryLimit {
			slog.Error("fusion gave up, keeping best exposure",
				"job", job.JobID, "attempts", attempt, "error", err)
			observability.FusionFallbacks.Inc()
			fused = bestExposed(sources)
			fallback = true
			break
		}
		observability.FusionRetries.Inc()
		slog.Warn("fusion attempt failed, retrying", "job", job.JobID, "attempt", attempt, "error", err)
	}

	if err := writeJPEG(fusedPath, fused); err != nil {
		return fmt.Errorf("job %s: %w", job.JobID, err)
	}

	if err := p.writeSidecar(fusedPath, job, fallback); err != nil {
		slog.Warn("sidecar write failed", "job", job.JobID, "error", err)
	}

	fusedID := uuid.New()
	if p.recorder != nil {
		result := &models.CaptureResult{
			ID:           fusedID,
			ScheduleName: job.ScheduleName,
			ProfileID:    job.ProfileID,
			FilePath:     fusedPath,
			Duration:     time.Since(start),
			Success:      true,
			BracketGroup: job.BracketGroup,
			IsFused:      true,
			SourceIDs:    job.SourceIDs,
			CapturedAt:   job.CapturedAt,
		}
		if fallback {
			result.Message = "fusion failed, best single exposure kept"
		}
		if err := p.recorder.RecordResult(ctx, result); err != nil {
			return fmt.Errorf("job %s: record fused result: %w", job.JobID, err)
		}
		if err := p.recorder.LinkFused(ctx, job.BracketGroup, fusedID); err != nil {
			slog.Warn("fused back-reference update failed", "job", job.JobID, "error", err)
		}
	}

	if p.archiver != nil {
		if key, err := p.archiver.ArchiveFile(ctx, job.ProfileID, fusedPath); err != nil {
			slog.Warn("archive fused image failed", "job", job.JobID, "error", err)
		} else {
			slog.Debug("archived fused image", "key", key)
		}
	}

	if !p.cfg.RetainSources && !fallback {
		for _, src := range job.SourcePaths {
			if err := os.Remove(src); err != nil {
				slog.Warn("retire source failed", "path", src, "error", err)
			}
		}
	}

	if p.events != nil {
		evt := dto.WSEvent{
			Type:         "fusion",
			ScheduleName: job.ScheduleName,
			ProfileID:    job.ProfileID,
			ResultID:     fusedID,
			FilePath:     fusedPath,
			Success:      !fallback,
			Timestamp:    time.Now(),
		}
		if err := p.events.PublishCaptureEvent(ctx, job.ScheduleName, evt); err != nil {
			slog.Warn("publish fusion event failed", "job", job.JobID, "error", err)
		}
	}

	observability.FusionDuration.Observe(time.Since(start).Seconds())
	slog.Info("bracket fused",
		"job", job.JobID, "sources", len(job.SourcePaths),
		"output", fusedPath, "fallback", fallback,
		"duration", time.Since(start).String())
	return nil
}

// loadSources decodes every bracket member, failing on the first
// missing or unreadable one.
func loadSources(paths []string) ([]image.Image, error) {
	sources := make([]image.Image, 0, len(paths))
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", path, err)
		}
		img, err := jpeg.Decode(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("source %s: decode: %w", path, err)
		}
		sources = append(sources, img)
	}
	return sources, nil
}

// bestExposed picks the source closest to mid-grey overall.
func bestExposed(sources []image.Image) image.Image {
	best := sources[0]
	bestScore := exposureScore(best)
	for _, src := range sources[1:] {
		if score := exposureScore(src); score > bestScore {
			best = src
			bestScore = score
		}
	}
	return best
}

func writeJPEG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 92}); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}

func (p *Pipeline) writeSidecar(fusedPath string, job dto.FusionJob, fallback bool) error {
	meta := sidecar{
		FusedPath:    fusedPath,
		BracketGroup: job.BracketGroup,
		SourcePaths:  job.SourcePaths,
		SourceIDs:    job.SourceIDs,
		Fallback:     fallback,
		FusedAt:      time.Now(),
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(models.SidecarPath(fusedPath), data, 0o644)
}
