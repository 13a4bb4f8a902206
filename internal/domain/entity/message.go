package entity

import "github.com/google/uuid"

// VideoSamplingMessage is the inbound message from the video.sampling queue.
type VideoSamplingMessage struct {
	JobID     uuid.UUID `json:"job_id"`
	UserID    string    `json:"user_id"`
	VideoKey  string    `json:"video_key"`
	FileSize  int64     `json:"file_size"`
	UserEmail string    `json:"user_email"`
}

// VideoStatusMessage is the outbound message published to the video.status
// queue. Progress events reuse this shape with Status=SAMPLING and the
// frames_current/frames_total counters filled in.
type VideoStatusMessage struct {
	JobID         uuid.UUID `json:"job_id"`
	UserID        string    `json:"user_id"`
	Status        JobStatus `json:"status"`
	VideoKey      string    `json:"video_key"`
	BundleKey     string    `json:"bundle_key,omitempty"`
	Backend       string    `json:"backend,omitempty"`
	FramesCurrent int       `json:"frames_current,omitempty"`
	FramesTotal   int       `json:"frames_total,omitempty"`
	FrameCount    int       `json:"frame_count,omitempty"`
	Duration      float64   `json:"duration_seconds,omitempty"`
	DriftMeanSec  float64   `json:"drift_mean_seconds,omitempty"`
	Analysis      string    `json:"analysis,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	Attempt       int       `json:"attempt"`
	MaxAttempts   int       `json:"max_attempts"`
}
