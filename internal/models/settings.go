package models

import (
	"fmt"
	"strconv"
	"strings"
)

// WhiteBalanceMode selects how the sensor's white balance is driven.
type WhiteBalanceMode string

const (
	WBAuto     WhiteBalanceMode = "auto"
	WBDaylight WhiteBalanceMode = "daylight"
	WBManual   WhiteBalanceMode = "manual" // temperature from WhiteBalanceTemp
)

// MeteringMode is passed through to the sensor when set.
type MeteringMode string

const (
	MeteringCentre MeteringMode = "centre"
	MeteringSpot   MeteringMode = "spot"
	MeteringMatrix MeteringMode = "matrix"
)

// CaptureSettings is one fully-resolved set of parameters for a single
// shutter press. Shutter is photographer notation ("1/500", "2s", "500ms");
// use ShutterMicros for the sensor-facing value.
type CaptureSettings struct {
	Sensitivity      int              `json:"sensitivity" yaml:"sensitivity"`
	Shutter          string           `json:"shutter" yaml:"shutter"`
	ExposureBias     float64          `json:"exposure_bias" yaml:"exposure_bias"`
	WhiteBalanceMode WhiteBalanceMode `json:"white_balance_mode" yaml:"white_balance_mode"`
	WhiteBalanceTemp int              `json:"white_balance_temp,omitempty" yaml:"white_balance_temp,omitempty"` // Kelvin, manual mode only
	MeteringMode     MeteringMode     `json:"metering_mode,omitempty" yaml:"metering_mode,omitempty"`
	BracketCount     int              `json:"bracket_count" yaml:"bracket_count"`
	BracketOffsets   []float64        `json:"bracket_offsets,omitempty" yaml:"bracket_offsets,omitempty"` // EV deltas, len == BracketCount when bracketing
	ProfileTag       string           `json:"profile_tag,omitempty" yaml:"-"`
}

// IsBracket reports whether this settings record fans out into multiple
// exposures.
func (s CaptureSettings) IsBracket() bool {
	return s.BracketCount > 1
}

// ShutterMicros parses the Shutter notation into microseconds.
func (s CaptureSettings) ShutterMicros() (int64, error) {
	return ParseShutter(s.Shutter)
}

// ParseShutter converts "1/500", "500ms", "2s" or a bare microsecond count
// into microseconds.
func ParseShutter(v string) (int64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, fmt.Errorf("empty shutter value")
	}
	if num, denom, ok := strings.Cut(v, "/"); ok {
		n, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, fmt.Errorf("parse shutter %q: %w", v, err)
		}
		d, err := strconv.ParseFloat(denom, 64)
		if err != nil || d == 0 {
			return 0, fmt.Errorf("parse shutter %q: bad denominator", v)
		}
		return int64(n / d * 1e6), nil
	}
	switch {
	case strings.HasSuffix(v, "ms"):
		f, err := strconv.ParseFloat(strings.TrimSuffix(v, "ms"), 64)
		if err != nil {
			return 0, fmt.Errorf("parse shutter %q: %w", v, err)
		}
		return int64(f * 1e3), nil
	case strings.HasSuffix(v, "s"):
		f, err := strconv.ParseFloat(strings.TrimSuffix(v, "s"), 64)
		if err != nil {
			return 0, fmt.Errorf("parse shutter %q: %w", v, err)
		}
		return int64(f * 1e6), nil
	default:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse shutter %q: %w", v, err)
		}
		return n, nil
	}
}

// SettingsDelta is a partial overlay applied on top of CaptureSettings.
// Nil fields leave the base value untouched. ExposureBias is additive;
// everything else replaces.
type SettingsDelta struct {
	Sensitivity      *int              `json:"sensitivity,omitempty" yaml:"sensitivity,omitempty"`
	Shutter          *string           `json:"shutter,omitempty" yaml:"shutter,omitempty"`
	ExposureBias     *float64          `json:"exposure_bias,omitempty" yaml:"exposure_bias,omitempty"`
	WhiteBalanceMode *WhiteBalanceMode `json:"white_balance_mode,omitempty" yaml:"white_balance_mode,omitempty"`
	WhiteBalanceTemp *int              `json:"white_balance_temp,omitempty" yaml:"white_balance_temp,omitempty"`
	MeteringMode     *MeteringMode     `json:"metering_mode,omitempty" yaml:"metering_mode,omitempty"`
	BracketCount     *int              `json:"bracket_count,omitempty" yaml:"bracket_count,omitempty"`
}

// IsZero reports whether the delta changes nothing.
func (d SettingsDelta) IsZero() bool {
	return d.Sensitivity == nil && d.Shutter == nil && d.ExposureBias == nil &&
		d.WhiteBalanceMode == nil && d.WhiteBalanceTemp == nil &&
		d.MeteringMode == nil && d.BracketCount == nil
}

// Apply returns base with the delta overlaid.
func (d SettingsDelta) Apply(base CaptureSettings) CaptureSettings {
	out := base
	if d.Sensitivity != nil {
		out.Sensitivity = *d.Sensitivity
	}
	if d.Shutter != nil {
		out.Shutter = *d.Shutter
	}
	if d.ExposureBias != nil {
		out.ExposureBias = base.ExposureBias + *d.ExposureBias
	}
	if d.WhiteBalanceMode != nil {
		out.WhiteBalanceMode = *d.WhiteBalanceMode
	}
	if d.WhiteBalanceTemp != nil {
		out.WhiteBalanceTemp = *d.WhiteBalanceTemp
	}
	if d.MeteringMode != nil {
		out.MeteringMode = *d.MeteringMode
	}
	if d.BracketCount != nil {
		out.BracketCount = *d.BracketCount
	}
	return out
}
