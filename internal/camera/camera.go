// Package camera abstracts the physical sensor behind a small interface
// with explicit hardware constraints, so the edge executor can validate
// requests before anything touches the sensor.
package camera

import (
	"context"
	"errors"
	"fmt"

	"github.com/your-org/skycam/internal/models"
)

// ErrNotReady is returned while the sensor is not initialized. Callers
// surface it as a distinct not_ready status, never as a timeout.
var ErrNotReady = errors.New("camera not initialized")

// ErrInvalidSettings marks request errors caught by constraint
// validation. Out-of-range values are rejected, never clamped.
var ErrInvalidSettings = errors.New("invalid capture settings")

// Camera drives one physical (or simulated) sensor. Implementations are
// not safe for concurrent captures; the caller serializes.
type Camera interface {
	Initialize(ctx context.Context) error
	Ready() bool
	Meter(ctx context.Context) (models.MeterReading, error)
	Capture(ctx context.Context, settings models.CaptureSettings, outPath string) error
	Constraints() Constraints
	Close() error
}

// Constraints describes what the hardware accepts.
type Constraints struct {
	SensitivitySteps []int
	BiasMin          float64
	BiasMax          float64
	MinShutterUs     int64
	MaxShutterUs     int64
}

// DefaultConstraints matches the IMX477-class sensors the edge runs on.
func DefaultConstraints() Constraints {
	return Constraints{
		SensitivitySteps: []int{100, 200, 400, 800, 1600, 3200},
		BiasMin:          -2.0,
		BiasMax:          2.0,
		MinShutterUs:     100,          // 1/10000
		MaxShutterUs:     30 * 1000000, // 30s
	}
}

// Validate checks one settings record against the constraints. It
// returns an error wrapping ErrInvalidSettings on the first violation.
func (c Constraints) Validate(s models.CaptureSettings) error {
	ok := false
	for _, step := range c.SensitivitySteps {
		if s.Sensitivity == step {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("%w: sensitivity %d not in allowed steps %v", ErrInvalidSettings, s.Sensitivity, c.SensitivitySteps)
	}
	if s.ExposureBias < c.BiasMin || s.ExposureBias > c.BiasMax {
		return fmt.Errorf("%w: exposure bias %.2f outside [%.1f, %.1f]", ErrInvalidSettings, s.ExposureBias, c.BiasMin, c.BiasMax)
	}
	us, err := s.ShutterMicros()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if us < c.MinShutterUs || us > c.MaxShutterUs {
		return fmt.Errorf("%w: shutter %s outside [%dus, %dus]", ErrInvalidSettings, s.Shutter, c.MinShutterUs, c.MaxShutterUs)
	}
	switch s.WhiteBalanceMode {
	case models.WBAuto, models.WBDaylight:
	case models.WBManual:
		if s.WhiteBalanceTemp < 1500 || s.WhiteBalanceTemp > 12000 {
			return fmt.Errorf("%w: white balance temp %dK outside [1500, 12000]", ErrInvalidSettings, s.WhiteBalanceTemp)
		}
	default:
		return fmt.Errorf("%w: unknown white balance mode %q", ErrInvalidSettings, s.WhiteBalanceMode)
	}
	return nil
}

// ValidateBracket checks a full bracket expansion; every member must
// individually satisfy the constraints.
func (c Constraints) ValidateBracket(members []models.CaptureSettings) error {
	for i, m := range members {
		if err := c.Validate(m); err != nil {
			return fmt.Errorf("bracket member %d: %w", i, err)
		}
	}
	return nil
}

// NearestSensitivityStep rounds a raw-gain-derived sensitivity down to
// the closest allowed step (used for meter suggestions, never for
// validating requests).
func (c Constraints) NearestSensitivityStep(raw int) int {
	if len(c.SensitivitySteps) == 0 {
		return raw
	}
	best := c.SensitivitySteps[0]
	for _, step := range c.SensitivitySteps {
		if step <= raw && step > best {
			best = step
		}
	}
	return best
}
