package models

import (
	"time"

	"github.com/google/uuid"
)

// MeterReading is one scene-brightness measurement from the sensor.
// Ephemeral: consumed by the exposure calculator, never persisted.
type MeterReading struct {
	Lux           float64 `json:"brightness_lux"`
	RawGain       float64 `json:"raw_gain"`
	RawExposureUs int64   `json:"raw_exposure_time"`
	// Human-readable suggestion derived from the raw pair.
	SuggestedSensitivity int       `json:"suggested_sensitivity"`
	SuggestedShutter     string    `json:"suggested_shutter"`
	MeasuredAt           time.Time `json:"measured_at"`
}

// CaptureResult records one shutter press (or, with IsFused set, one
// fused output derived from a bracket group).
type CaptureResult struct {
	ID           uuid.UUID       `json:"id"`
	ScheduleName string          `json:"schedule_name"`
	ProfileID    string          `json:"profile_id"`
	FilePath     string          `json:"file_path"`
	Settings     CaptureSettings `json:"settings"`
	Duration     time.Duration   `json:"duration"`
	Success      bool            `json:"success"`
	Message      string          `json:"message,omitempty"`

	// Bracket bookkeeping. BracketGroup ties the N siblings and their
	// fused output together; it is a lookup key, not an ownership edge.
	BracketGroup uuid.UUID   `json:"bracket_group,omitempty"`
	BracketIndex int         `json:"bracket_index"`
	IsFused      bool        `json:"is_fused"`
	SourceIDs    []uuid.UUID `json:"source_ids,omitempty"` // set on the fused record
	FusedID      *uuid.UUID  `json:"fused_id,omitempty"`   // set on sources once fused

	CapturedAt time.Time `json:"captured_at"`
}
