// Package decoder implements the interactive sampling backend on top of an
// in-process media decoder (GoCV/OpenCV). It is strictly sequential: one
// seek, one capture, one validation at a time, suspending between frames so
// cancellation is observed promptly.
//
// The backend is selected at build time: compile with -tags=decoder and an
// OpenCV installation. Without the tag a stub is built whose Sample returns
// ErrUnavailable, and the worker falls back to the batch backend.
package decoder

import (
	"errors"
	"os"
	"time"
)

// ErrUnavailable means the binary was built without the decoder backend.
var ErrUnavailable = errors.New("decoder backend not available: build with -tags=decoder and install OpenCV/GoCV")

const (
	// defaultLoadWait bounds the wait for source metadata (duration,
	// geometry). On expiry the run proceeds optimistically rather than
	// failing.
	defaultLoadWait = 5 * time.Second
	// defaultSeekWait bounds the wait for a decoded frame after a seek.
	// On expiry the capture is attempted at wherever the decoder settled.
	defaultSeekWait = 2 * time.Second
)

type options struct {
	loadWait time.Duration
	seekWait time.Duration
}

// Option configures an InteractiveSampler.
type Option func(*options)

// WithLoadWait overrides the bounded metadata wait.
func WithLoadWait(d time.Duration) Option {
	return func(o *options) { o.loadWait = d }
}

// WithSeekWait overrides the bounded post-seek decode wait.
func WithSeekWait(d time.Duration) Option {
	return func(o *options) { o.seekWait = d }
}

func buildOptions(opts []Option) options {
	o := options{loadWait: defaultLoadWait, seekWait: defaultSeekWait}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// discardPartials removes frames already written to the output directory
// when a run is cancelled. Cancelled runs surface no frames, so none may
// linger on disk either.
func discardPartials(paths []string) {
	for _, p := range paths {
		os.Remove(p)
	}
}
