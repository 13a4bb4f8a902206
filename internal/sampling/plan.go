// Package sampling holds the backend-independent core of the frame sampling
// engine: the timestamp planner, the capture validator, the run state machine
// and the progress/warning observer contract shared by all sampler backends.
package sampling

import (
	"fmt"
	"math"
)

// endGuardSec keeps planned timestamps away from the very end of the stream,
// where the final frame is often unreadable after a seek.
const endGuardSec = 0.1

// Config is the per-run sampling configuration. Immutable once a run starts.
type Config struct {
	// Rate is the target capture rate in frames per second. Must be > 0.
	Rate float64
	// MaxDuration caps the sampled window in seconds. Must be > 0.
	MaxDuration float64
	// TargetWidth is the output frame width in pixels; height follows the
	// native aspect ratio.
	TargetWidth int
	// Quality is the encode quality in [0,1].
	Quality float64
	// SeekTolerance is the acceptable |actual-target| seek drift in seconds
	// before a warning is emitted. Drift never fails a capture.
	SeekTolerance float64
	// Format is the output image format: "jpg", "png" or "webp".
	Format string
	// Concurrency bounds the batch backend's worker pool. Ignored by the
	// interactive backend, which is strictly sequential.
	Concurrency int
	// ExtraArgs are appended to every ffmpeg invocation in the batch
	// backend.
	ExtraArgs []string
}

// Plan is the ordered list of target capture timestamps for one run.
type Plan struct {
	// Timestamps is strictly increasing within [0, EffectiveDuration).
	Timestamps []float64
	// EffectiveDuration is min(video duration, cfg.MaxDuration).
	EffectiveDuration float64
}

// TotalFrames returns the number of planned captures.
func (p Plan) TotalFrames() int { return len(p.Timestamps) }

// BuildPlan computes the capture timestamps for a video of the given duration.
// Pure and deterministic: safe to call repeatedly with the same inputs.
func BuildPlan(duration float64, cfg Config) (Plan, error) {
	if duration <= 0 || math.IsInf(duration, 0) || math.IsNaN(duration) {
		return Plan{}, fmt.Errorf("%w: %v", ErrInvalidDuration, duration)
	}

	effective := math.Min(duration, cfg.MaxDuration)
	total := int(math.Ceil(effective * cfg.Rate))
	if total <= 0 {
		return Plan{}, fmt.Errorf("%w: duration=%.3fs rate=%.3f", ErrEmptyPlan, effective, cfg.Rate)
	}

	interval := effective / float64(total)
	ts := make([]float64, total)
	for i := range ts {
		ts[i] = math.Min(float64(i)*interval, effective-endGuardSec)
	}

	return Plan{Timestamps: ts, EffectiveDuration: effective}, nil
}
