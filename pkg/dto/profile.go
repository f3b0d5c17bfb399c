package dto

import "time"

// ProfileDeployRequest ships a complete, self-contained profile package
// to the edge. The adaptive lookup table travels inside the payload so
// brain and edge always evaluate the same curve.
type ProfileDeployRequest struct {
	ProfileID  string          `json:"profile_id" binding:"required"`
	Version    string          `json:"version" binding:"required"`
	Settings   ProfileSettings `json:"settings"`
	Schedules  []string        `json:"schedules,omitempty"`
	DeployedAt time.Time       `json:"deployed_at,omitempty"`
}

type ProfileSettings struct {
	Base                 BaseSettings               `json:"base"`
	AdaptiveWhiteBalance AdaptiveWhiteBalance       `json:"adaptive_white_balance"`
	PhaseBias            map[string][]PhaseBucket   `json:"phase_bias,omitempty"`
	ScheduleOverrides    map[string]CaptureOverride `json:"schedule_overrides,omitempty"`
	BracketOffsets       []float64                  `json:"bracket_offsets,omitempty"`
}

type BaseSettings struct {
	Sensitivity      int     `json:"sensitivity"`
	Shutter          string  `json:"shutter"`
	ExposureBias     float64 `json:"exposure_bias"`
	WhiteBalanceMode string  `json:"white_balance_mode"`
	WhiteBalanceTemp int     `json:"white_balance_temp,omitempty"`
	BracketCount     int     `json:"bracket_count"`
}

type AdaptiveWhiteBalance struct {
	Enabled bool `json:"enabled"`
	// LookupTable rows are [brightness_lux, temperature_kelvin], ordered
	// by brightness.
	LookupTable [][2]float64 `json:"lookup_table"`
}

type PhaseBucket struct {
	MaxOffsetMin float64 `json:"max_offset_min"`
	BiasDelta    float64 `json:"bias_delta"`
	WarmCap      int     `json:"warm_cap,omitempty"`
	CoolFloor    int     `json:"cool_floor,omitempty"`
}

// Profile query statuses.
const (
	ProfileStatusDeployed  = "deployed"
	ProfileStatusNoProfile = "no_profile"
)

// ProfileQueryResponse reports the edge's resident profile, or the
// explicit absence of one.
type ProfileQueryResponse struct {
	Status     string    `json:"status"`
	ProfileID  string    `json:"profile_id,omitempty"`
	Version    string    `json:"version,omitempty"`
	DeployedAt time.Time `json:"deployed_at,omitempty"`
	AgeSeconds int64     `json:"age_seconds,omitempty"`
	Schedules  []string  `json:"schedules,omitempty"`
}
