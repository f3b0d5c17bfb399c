package dto

// CaptureStatus values returned by the edge for every capture/meter call.
const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusNotReady = "not_ready"
)

// CaptureRequest is the edge capture command. Three shapes share one
// struct, disambiguated by fields present:
//
//	explicit:              settings fields set, UseDeployedProfile false
//	deployed-profile:      UseDeployedProfile true + ScheduleName + ProfileID
//	deployed + override:   deployed-profile shape plus Override
type CaptureRequest struct {
	// Explicit shape.
	Sensitivity      int       `json:"sensitivity,omitempty"`
	Shutter          string    `json:"shutter,omitempty"`
	ExposureBias     float64   `json:"exposure_bias"`
	WhiteBalanceMode string    `json:"white_balance_mode,omitempty"`
	WhiteBalanceTemp int       `json:"white_balance_temp,omitempty"`
	MeteringMode     string    `json:"metering_mode,omitempty"`
	BracketCount     int       `json:"bracket_count,omitempty"`
	BracketOffsets   []float64 `json:"bracket_offsets,omitempty"`
	ProfileTag       string    `json:"profile_tag,omitempty"`

	// Deployed-profile shape.
	UseDeployedProfile bool             `json:"use_deployed_profile,omitempty"`
	ScheduleName       string           `json:"schedule_name,omitempty"`
	ProfileID          string           `json:"profile_id,omitempty"`
	Override           *CaptureOverride `json:"override,omitempty"`
}

// CaptureOverride is the test-only partial overlay allowed on a
// deployed-profile request.
type CaptureOverride struct {
	Sensitivity      *int     `json:"sensitivity,omitempty"`
	Shutter          *string  `json:"shutter,omitempty"`
	ExposureBias     *float64 `json:"exposure_bias,omitempty"`
	WhiteBalanceMode *string  `json:"white_balance_mode,omitempty"`
	WhiteBalanceTemp *int     `json:"white_balance_temp,omitempty"`
	BracketCount     *int     `json:"bracket_count,omitempty"`
}

// CaptureResponse reports one capture command's outcome. A bracket yields
// FilePaths in bracket order.
type CaptureResponse struct {
	Status     string           `json:"status"`
	FilePaths  []string         `json:"file_paths,omitempty"`
	Applied    []AppliedSetting `json:"applied,omitempty"`
	DurationMs int64            `json:"duration_ms,omitempty"`
	Message    string           `json:"message,omitempty"`
}

// AppliedSetting echoes the settings actually applied for one exposure.
type AppliedSetting struct {
	Sensitivity      int     `json:"sensitivity"`
	Shutter          string  `json:"shutter"`
	ExposureBias     float64 `json:"exposure_bias"`
	WhiteBalanceMode string  `json:"white_balance_mode"`
	WhiteBalanceTemp int     `json:"white_balance_temp,omitempty"`
	BracketIndex     int     `json:"bracket_index"`
	FilePath         string  `json:"file_path"`
}
