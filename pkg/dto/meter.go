package dto

// MeterResponse is the edge's answer to a meter request. The request
// carries no body.
type MeterResponse struct {
	Status               string  `json:"status"`
	BrightnessLux        float64 `json:"brightness_lux"`
	RawGain              float64 `json:"raw_gain"`
	RawExposureTime      int64   `json:"raw_exposure_time"`
	SuggestedSensitivity int     `json:"suggested_sensitivity"`
	SuggestedShutter     string  `json:"suggested_shutter"`
	Message              string  `json:"message,omitempty"`
}
