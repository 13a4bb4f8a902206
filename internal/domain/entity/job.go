package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusSampling  JobStatus = "SAMPLING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusCancelled JobStatus = "CANCELLED"
	JobStatusFailed    JobStatus = "FAILED"
)

// Job is one video sampling request tracked end to end: received from the
// queue, sampled into a bounded frame set, bundled and uploaded.
type Job struct {
	ID            uuid.UUID
	UserID        string
	VideoKey      string
	BundleKey     string
	Status        JobStatus
	Backend       string
	FramesPlanned int
	FrameCount    int
	FileSize      int64
	VideoDuration float64
	DriftMeanSec  float64
	DriftMaxSec   float64
	Analysis      string
	Attempt       int
	MaxAttempts   int
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

func NewJob(userID, videoKey string, fileSize int64, maxAttempts int) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:          uuid.New(),
		UserID:      userID,
		VideoKey:    videoKey,
		FileSize:    fileSize,
		Status:      JobStatusPending,
		Attempt:     0,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (j *Job) MarkSampling(backend string, framesPlanned int) {
	j.Status = JobStatusSampling
	j.Backend = backend
	j.FramesPlanned = framesPlanned
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) MarkAttempt() {
	j.Attempt++
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) MarkCompleted(bundleKey string, frameCount int, duration, driftMean, driftMax float64) {
	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	j.BundleKey = bundleKey
	j.FrameCount = frameCount
	j.VideoDuration = duration
	j.DriftMeanSec = driftMean
	j.DriftMaxSec = driftMax
	j.UpdatedAt = now
	j.CompletedAt = &now
}

func (j *Job) MarkCancelled() {
	j.Status = JobStatusCancelled
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) MarkFailed(errMsg string) {
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) SetAnalysis(text string) {
	j.Analysis = text
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) CanRetry() bool {
	return j.Attempt < j.MaxAttempts
}
