package dto

import (
	"time"

	"github.com/google/uuid"
)

// WSEvent is the envelope broadcast to dashboard WebSocket clients.
type WSEvent struct {
	Type         string    `json:"type"` // capture, fusion, edge_health
	ScheduleName string    `json:"schedule_name,omitempty"`
	ProfileID    string    `json:"profile_id,omitempty"`
	ResultID     uuid.UUID `json:"result_id,omitempty"`
	FilePath     string    `json:"file_path,omitempty"`
	Success      bool      `json:"success"`
	Healthy      bool      `json:"healthy,omitempty"`
	Message      string    `json:"message,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// FusionJob is the queue payload handed from the capture loop to the
// fusion worker. Sources are ordered by bracket index.
type FusionJob struct {
	JobID          uuid.UUID   `json:"job_id"`
	BracketGroup   uuid.UUID   `json:"bracket_group"`
	ScheduleName   string      `json:"schedule_name"`
	ProfileID      string      `json:"profile_id"`
	SourcePaths    []string    `json:"source_paths"`
	SourceIDs      []uuid.UUID `json:"source_ids"`
	BracketOffsets []float64   `json:"bracket_offsets,omitempty"`
	CapturedAt     time.Time   `json:"captured_at"`
}
