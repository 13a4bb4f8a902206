package sampling

import "errors"

var (
	// ErrInvalidDuration means no usable duration could be determined for
	// the video, or the caller supplied one that is zero, negative or not
	// finite.
	ErrInvalidDuration = errors.New("invalid video duration")

	// ErrEmptyPlan means the configured rate and duration produce zero
	// target timestamps.
	ErrEmptyPlan = errors.New("timestamp plan is empty")

	// ErrLoad means the video source could not be opened or probed.
	ErrLoad = errors.New("video source unreadable")

	// ErrAlreadyInProgress means the sampler instance is already running an
	// extraction; runs are exclusive per instance.
	ErrAlreadyInProgress = errors.New("extraction already in progress")

	// ErrNoFramesExtracted means every planned capture was skipped (empty,
	// corrupt or failed); the run produced zero frames.
	ErrNoFramesExtracted = errors.New("no frames extracted")

	// ErrCancelled is the terminal outcome of a caller-cancelled run. It is
	// distinct from failure: partial results are discarded, not returned.
	ErrCancelled = errors.New("extraction cancelled")
)
