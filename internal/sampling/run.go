package sampling

import (
	"fmt"
	"sync"
)

// State is the lifecycle position of one extraction run.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateCapturing
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateCapturing:
		return "capturing"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Progress is emitted after every capture attempt, usable or skipped.
type Progress struct {
	Current int
	Total   int
	Time    float64
}

// Warning kinds surfaced through the observer. Warnings are observability
// for best-effort degradations, never failures.
const (
	WarnSeekDrift       = "seek_drift"
	WarnMetadataTimeout = "metadata_timeout"
	WarnCaptureSkipped  = "capture_skipped"
)

// Warning reports a non-fatal anomaly during a run.
type Warning struct {
	Kind       string
	TargetTime float64
	ActualTime float64
	Message    string
}

// Observer carries the optional progress and warning callbacks for a run.
// Completion and error are the return values of Sample, made mutually
// exclusive and at-most-once by Run.
type Observer struct {
	OnProgress func(Progress)
	OnWarning  func(Warning)
}

// FrameRecord is one successfully captured, validated and encoded frame.
// Never mutated after creation.
type FrameRecord struct {
	Index      int
	TargetTime float64
	ActualTime float64
	Path       string
	Width      int
	Height     int
}

// Result is the success shape of a run: an ordered subsequence of the plan.
type Result struct {
	Frames []FrameRecord
	Drift  DriftSummary
}

// Run tracks the state machine of a single in-flight extraction and guards
// the observer contract: progress is monotonically increasing and capped at
// total, nothing fires after a terminal transition, and exactly one terminal
// transition ever happens.
type Run struct {
	mu      sync.Mutex
	state   State
	obs     Observer
	total   int
	current int
	frames  []FrameRecord
}

// NewRun creates a run in the Idle state.
func NewRun(obs Observer) *Run {
	return &Run{state: StateIdle, obs: obs}
}

// State returns the current lifecycle state.
func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Loading marks the metadata-probe phase.
func (r *Run) Loading() {
	r.setState(StateLoading)
}

// Ready records the plan size and arms progress accounting.
func (r *Run) Ready(totalFrames int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.terminalLocked() {
		return
	}
	r.state = StateReady
	r.total = totalFrames
}

// Capturing marks the capture loop as active.
func (r *Run) Capturing() {
	r.setState(StateCapturing)
}

func (r *Run) setState(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.terminalLocked() {
		return
	}
	r.state = s
}

func (r *Run) terminalLocked() bool {
	return r.state == StateCompleted || r.state == StateCancelled || r.state == StateFailed
}

// EmitProgress fires the progress callback after a capture attempt. Values
// that would move current backwards or past total are clamped; nothing fires
// once the run is terminal.
func (r *Run) EmitProgress(current int, t float64) {
	r.mu.Lock()
	if r.terminalLocked() {
		r.mu.Unlock()
		return
	}
	if current <= r.current {
		current = r.current + 1
	}
	if current > r.total {
		current = r.total
	}
	r.current = current
	cb := r.obs.OnProgress
	total := r.total
	r.mu.Unlock()

	if cb != nil {
		cb(Progress{Current: current, Total: total, Time: t})
	}
}

// Warn fires the warning callback. Silenced after a terminal transition.
func (r *Run) Warn(w Warning) {
	r.mu.Lock()
	if r.terminalLocked() {
		r.mu.Unlock()
		return
	}
	cb := r.obs.OnWarning
	r.mu.Unlock()

	if cb != nil {
		cb(w)
	}
}

// Append records a usable frame. Records must arrive in plan order; an
// out-of-order or duplicate index is a programming error in the backend.
func (r *Run) Append(rec FrameRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.terminalLocked() {
		return fmt.Errorf("append after terminal state %s", r.state)
	}
	if n := len(r.frames); n > 0 && rec.Index <= r.frames[n-1].Index {
		return fmt.Errorf("frame index %d not after %d", rec.Index, r.frames[n-1].Index)
	}
	r.frames = append(r.frames, rec)
	return nil
}

// Complete performs the success transition and returns the ordered result.
// Returns ErrNoFramesExtracted when every planned capture was skipped.
func (r *Run) Complete() (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.terminalLocked() {
		return nil, fmt.Errorf("complete after terminal state %s", r.state)
	}
	if len(r.frames) == 0 {
		r.state = StateFailed
		return nil, ErrNoFramesExtracted
	}
	r.state = StateCompleted
	frames := r.frames
	r.frames = nil
	return &Result{Frames: frames, Drift: summarizeDrift(frames)}, nil
}

// Cancel performs the cancelled transition. Partial results are discarded:
// callers must not assume any frames survive a cancellation.
func (r *Run) Cancel() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.terminalLocked() {
		return ErrCancelled
	}
	r.state = StateCancelled
	r.frames = nil
	return ErrCancelled
}

// Fail performs the failure transition, wrapping the underlying cause.
func (r *Run) Fail(err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.terminalLocked() {
		r.state = StateFailed
		r.frames = nil
	}
	return err
}

// Gate makes runs exclusive per sampler instance.
type Gate struct {
	mu     sync.Mutex
	active bool
}

// Acquire claims the sampler for one run.
func (g *Gate) Acquire() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active {
		return ErrAlreadyInProgress
	}
	g.active = true
	return nil
}

// Release frees the sampler for the next run.
func (g *Gate) Release() {
	g.mu.Lock()
	g.active = false
	g.mu.Unlock()
}
