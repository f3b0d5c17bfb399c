package camera

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/your-org/skycam/internal/models"
)

// Rpicam drives a Raspberry Pi camera by shelling out to rpicam-still.
// One process per exposure; the executor serializes calls.
type Rpicam struct {
	binary      string
	constraints Constraints

	mu    sync.Mutex
	ready bool
}

func NewRpicam(binary string) *Rpicam {
	if binary == "" {
		binary = "rpicam-still"
	}
	return &Rpicam{
		binary:      binary,
		constraints: DefaultConstraints(),
	}
}

// Initialize probes the sensor with a zero-output capture. A missing
// binary or absent sensor leaves the camera not ready; every later call
// fails fast with ErrNotReady.
func (r *Rpicam) Initialize(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, r.binary, "--list-cameras")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("probe %s: %w (%s)", r.binary, err, strings.TrimSpace(string(out)))
	}
	if !strings.Contains(string(out), ":") {
		return fmt.Errorf("probe %s: no cameras detected", r.binary)
	}

	r.mu.Lock()
	r.ready = true
	r.mu.Unlock()
	return nil
}

func (r *Rpicam) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

func (r *Rpicam) Constraints() Constraints {
	return r.constraints
}

func (r *Rpicam) Close() error {
	r.mu.Lock()
	r.ready = false
	r.mu.Unlock()
	return nil
}

// rpicamMetadata is the subset of rpicam-still's JSON metadata we read.
type rpicamMetadata struct {
	Lux          float64 `json:"Lux"`
	AnalogueGain float64 `json:"AnalogueGain"`
	ExposureTime int64   `json:"ExposureTime"`
}

// Meter grabs a throwaway auto-exposed frame and reads the sensor's own
// metering metadata from it.
func (r *Rpicam) Meter(ctx context.Context) (models.MeterReading, error) {
	if !r.Ready() {
		return models.MeterReading{}, ErrNotReady
	}

	args := []string{
		"--immediate",
		"--nopreview",
		"--output", "/dev/null",
		"--metadata", "-",
		"--metadata-format", "json",
	}

	cmd := exec.CommandContext(ctx, r.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		logStderr(&stderr)
		return models.MeterReading{}, fmt.Errorf("meter via %s: %w", r.binary, err)
	}

	var meta rpicamMetadata
	if err := json.Unmarshal(stdout.Bytes(), &meta); err != nil {
		return models.MeterReading{}, fmt.Errorf("parse meter metadata: %w", err)
	}

	suggested := r.constraints.NearestSensitivityStep(int(meta.AnalogueGain * 100))
	return models.MeterReading{
		Lux:                  meta.Lux,
		RawGain:              meta.AnalogueGain,
		RawExposureUs:        meta.ExposureTime,
		SuggestedSensitivity: suggested,
		SuggestedShutter:     FormatShutter(meta.ExposureTime),
		MeasuredAt:           time.Now(),
	}, nil
}

// Capture runs one exposure with fully-resolved settings. Settings are
// assumed validated; this only translates them to flags.
func (r *Rpicam) Capture(ctx context.Context, s models.CaptureSettings, outPath string) error {
	if !r.Ready() {
		return ErrNotReady
	}

	us, err := s.ShutterMicros()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}

	args := []string{
		"--nopreview",
		"--immediate",
		"--output", outPath,
		"--shutter", fmt.Sprintf("%d", us),
		"--gain", fmt.Sprintf("%.2f", float64(s.Sensitivity)/100.0),
		"--ev", fmt.Sprintf("%.2f", s.ExposureBias),
	}

	switch s.WhiteBalanceMode {
	case models.WBManual:
		red, blue := kelvinToGains(s.WhiteBalanceTemp)
		args = append(args, "--awbgains", fmt.Sprintf("%.2f,%.2f", red, blue))
	case models.WBDaylight:
		args = append(args, "--awb", "daylight")
	default:
		args = append(args, "--awb", "auto")
	}

	if s.MeteringMode != "" {
		args = append(args, "--metering", string(s.MeteringMode))
	}

	cmd := exec.CommandContext(ctx, r.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		logStderr(&stderr)
		return fmt.Errorf("capture via %s: %w", r.binary, err)
	}
	return nil
}

func logStderr(buf *bytes.Buffer) {
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			slog.Warn("rpicam stderr", "output", line)
		}
	}
}

// kelvinToGains maps a colour temperature onto red/blue channel gains.
// Piecewise-linear fit over the range the adaptive tables use; tungsten
// pushes blue up, shade pushes red up.
func kelvinToGains(kelvin int) (red, blue float64) {
	points := []struct {
		k    int
		r, b float64
	}{
		{2500, 1.20, 2.60},
		{3200, 1.45, 2.20},
		{4500, 1.75, 1.80},
		{5500, 2.00, 1.55},
		{6500, 2.20, 1.40},
		{8000, 2.45, 1.25},
	}
	if kelvin <= points[0].k {
		return points[0].r, points[0].b
	}
	last := points[len(points)-1]
	if kelvin >= last.k {
		return last.r, last.b
	}
	for i := 1; i < len(points); i++ {
		lo, hi := points[i-1], points[i]
		if kelvin <= hi.k {
			frac := float64(kelvin-lo.k) / float64(hi.k-lo.k)
			return lo.r + frac*(hi.r-lo.r), lo.b + frac*(hi.b-lo.b)
		}
	}
	return last.r, last.b
}

// FormatShutter renders microseconds in photographer notation.
func FormatShutter(us int64) string {
	if us <= 0 {
		return "0"
	}
	if us >= 1000000 {
		return fmt.Sprintf("%.1fs", float64(us)/1e6)
	}
	denom := int64(1e6 / float64(us))
	return fmt.Sprintf("1/%d", denom)
}
