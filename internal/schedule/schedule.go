// Package schedule resolves named capture schedules into concrete
// [start, end) windows per calendar day and evaluates which are active
// at a given instant.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/your-org/skycam/internal/astro"
	"github.com/your-org/skycam/internal/models"
)

type Kind string

const (
	KindSolarRelative Kind = "solar-relative"
	KindTimeOfDay     Kind = "time-of-day"
)

type Anchor string

const (
	AnchorSunrise Anchor = "sunrise"
	AnchorSunset  Anchor = "sunset"
)

// Definition is one named capture schedule, loaded at startup.
type Definition struct {
	Name string `yaml:"name"`
	Kind Kind   `yaml:"kind"`

	// Solar-relative fields. Offset may be negative (before the anchor).
	Anchor          Anchor `yaml:"anchor,omitempty"`
	OffsetMinutes   int    `yaml:"offset_minutes,omitempty"`
	DurationMinutes int    `yaml:"duration_minutes,omitempty"`

	// Time-of-day fields, "HH:MM" local clock.
	Start string `yaml:"start,omitempty"`
	End   string `yaml:"end,omitempty"`

	IntervalSeconds int    `yaml:"interval_seconds"`
	ProfileID       string `yaml:"profile"`

	// Disabled is set at load time when validation fails; a disabled
	// schedule never activates but does not stop the loop.
	Disabled bool `yaml:"-"`
}

// Interval is the capture period while the schedule is active.
func (d Definition) Interval() time.Duration {
	return time.Duration(d.IntervalSeconds) * time.Second
}

// Phase maps the schedule onto a phase family for exposure biasing.
func (d Definition) Phase() models.Phase {
	if d.Kind == KindSolarRelative {
		if d.Anchor == AnchorSunset {
			return models.PhaseSunset
		}
		return models.PhaseSunrise
	}
	return models.PhaseDaytime
}

// Validate checks the definition; callers disable (not drop) schedules
// that fail so a misconfigured entry is visible but inert.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("schedule name is required")
	}
	if d.IntervalSeconds <= 0 {
		return fmt.Errorf("schedule %s: interval must be positive, got %d", d.Name, d.IntervalSeconds)
	}
	if d.ProfileID == "" {
		return fmt.Errorf("schedule %s: profile is required", d.Name)
	}
	switch d.Kind {
	case KindSolarRelative:
		if d.Anchor != AnchorSunrise && d.Anchor != AnchorSunset {
			return fmt.Errorf("schedule %s: anchor must be sunrise or sunset, got %q", d.Name, d.Anchor)
		}
		if d.DurationMinutes <= 0 {
			return fmt.Errorf("schedule %s: duration must be positive, got %d", d.Name, d.DurationMinutes)
		}
	case KindTimeOfDay:
		start, err := parseClock(d.Start)
		if err != nil {
			return fmt.Errorf("schedule %s: start: %w", d.Name, err)
		}
		end, err := parseClock(d.End)
		if err != nil {
			return fmt.Errorf("schedule %s: end: %w", d.Name, err)
		}
		if end <= start {
			return fmt.Errorf("schedule %s: window inverted (%s >= %s)", d.Name, d.Start, d.End)
		}
	default:
		return fmt.Errorf("schedule %s: unknown kind %q", d.Name, d.Kind)
	}
	return nil
}

// parseClock parses "HH:MM" into minutes since midnight.
func parseClock(v string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(v), ":")
	if !ok {
		return 0, fmt.Errorf("clock value %q not HH:MM", v)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("clock value %q: bad hour", v)
	}
	min, err := strconv.Atoi(m)
	if err != nil || min < 0 || min > 59 {
		return 0, fmt.Errorf("clock value %q: bad minute", v)
	}
	return hour*60 + min, nil
}

// Window is a resolved [Start, End) instant pair for one schedule on one
// calendar day.
type Window struct {
	Start time.Time
	End   time.Time
	// Anchor is the instant offsets are measured from: the solar event
	// for solar-relative schedules, the window start otherwise.
	Anchor time.Time
}

// Contains tests half-open membership.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Active is one currently-active schedule with its resolved window.
type Active struct {
	Definition Definition
	Window     Window
	// AnchorOffsetMin is the signed offset of "now" from the window's
	// anchor, in minutes.
	AnchorOffsetMin float64
}

// AnchorSource supplies per-day solar anchors. *astro.Calculator
// implements it; tests inject fixed times.
type AnchorSource interface {
	SunTimes(date time.Time) (astro.SunTimes, error)
}
