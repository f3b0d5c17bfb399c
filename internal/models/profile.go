package models

import (
	"fmt"
	"time"
)

// WBPoint is one control point of an adaptive white-balance table:
// at Lux, target the given colour temperature.
type WBPoint struct {
	Lux  float64 `json:"lux" yaml:"lux"`
	Temp int     `json:"temp" yaml:"temp"`
}

// AdaptiveWB is an ordered brightness-to-temperature lookup table.
type AdaptiveWB struct {
	Enabled bool      `json:"enabled" yaml:"enabled"`
	Table   []WBPoint `json:"lookup_table" yaml:"lookup_table"`
}

// Validate checks the table is usable for interpolation: at least two
// points, strictly increasing lux.
func (a AdaptiveWB) Validate() error {
	if !a.Enabled {
		return nil
	}
	if len(a.Table) < 2 {
		return fmt.Errorf("adaptive wb table needs at least 2 points, got %d", len(a.Table))
	}
	for i := 1; i < len(a.Table); i++ {
		if a.Table[i].Lux <= a.Table[i-1].Lux {
			return fmt.Errorf("adaptive wb table not strictly increasing at index %d (%.1f <= %.1f)",
				i, a.Table[i].Lux, a.Table[i-1].Lux)
		}
	}
	return nil
}

// PhaseBucket is one discrete phase-bias step for solar-relative schedules.
// It matches when the signed offset from the anchor (minutes) is below
// MaxOffsetMin; buckets are evaluated in order and the first match wins.
type PhaseBucket struct {
	MaxOffsetMin float64 `json:"max_offset_min" yaml:"max_offset_min"`
	BiasDelta    float64 `json:"bias_delta" yaml:"bias_delta"`
	// WarmCap caps the adaptive WB temperature from above (early, warm
	// phases); CoolFloor bounds it from below (late, cool phases).
	// Zero means no bound.
	WarmCap   int `json:"warm_cap,omitempty" yaml:"warm_cap,omitempty"`
	CoolFloor int `json:"cool_floor,omitempty" yaml:"cool_floor,omitempty"`
}

// CaptureProfile is a versioned, self-contained settings package. Once
// deployed to an edge it is immutable; a new deployment replaces it
// wholesale.
type CaptureProfile struct {
	ID         string          `json:"profile_id" yaml:"id"`
	Version    string          `json:"version" yaml:"version"`
	Base       CaptureSettings `json:"base" yaml:"base"`
	AdaptiveWB AdaptiveWB      `json:"adaptive_white_balance" yaml:"adaptive_white_balance"`
	// PhaseBias configures the discrete offset buckets applied to
	// solar-relative schedules, keyed by phase family.
	PhaseBias map[Phase][]PhaseBucket `json:"phase_bias,omitempty" yaml:"phase_bias,omitempty"`
	// ScheduleOverrides are per-schedule deltas applied after phase bias.
	ScheduleOverrides map[string]SettingsDelta `json:"schedule_overrides,omitempty" yaml:"schedule_overrides,omitempty"`
	BracketOffsets    []float64                `json:"bracket_offsets,omitempty" yaml:"bracket_offsets,omitempty"`
	DeployedAt        time.Time                `json:"deployed_at,omitempty" yaml:"-"`
}

// Phase is the family a schedule belongs to for phase-bias purposes.
type Phase string

const (
	PhaseSunrise Phase = "sunrise"
	PhaseDaytime Phase = "daytime"
	PhaseSunset  Phase = "sunset"
)

// Validate checks the profile is internally consistent. It does not check
// hardware constraints; the edge owns those.
func (p *CaptureProfile) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("profile id is required")
	}
	if p.Version == "" {
		return fmt.Errorf("profile %s: version is required", p.ID)
	}
	if _, err := p.Base.ShutterMicros(); err != nil {
		return fmt.Errorf("profile %s: base shutter: %w", p.ID, err)
	}
	if err := p.AdaptiveWB.Validate(); err != nil {
		return fmt.Errorf("profile %s: %w", p.ID, err)
	}
	if p.Base.BracketCount > 1 {
		offsets := p.BracketOffsets
		if len(offsets) == 0 {
			offsets = p.Base.BracketOffsets
		}
		if len(offsets) != p.Base.BracketCount {
			return fmt.Errorf("profile %s: bracket_count %d needs %d offsets, got %d",
				p.ID, p.Base.BracketCount, p.Base.BracketCount, len(offsets))
		}
	}
	for phase, buckets := range p.PhaseBias {
		for i := 1; i < len(buckets); i++ {
			if buckets[i].MaxOffsetMin <= buckets[i-1].MaxOffsetMin {
				return fmt.Errorf("profile %s: %s phase buckets not increasing at index %d", p.ID, phase, i)
			}
		}
	}
	return nil
}

// SameVersion reports whether other carries the same id+version pair,
// which makes a redeploy idempotent.
func (p *CaptureProfile) SameVersion(id, version string) bool {
	return p != nil && p.ID == id && p.Version == version
}
