package sampling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunProgressMonotonicAndCapped(t *testing.T) {
	var seen []Progress
	run := NewRun(Observer{OnProgress: func(p Progress) { seen = append(seen, p) }})
	run.Ready(3)
	run.Capturing()

	run.EmitProgress(1, 0.0)
	run.EmitProgress(1, 0.5) // would regress, bumped forward
	run.EmitProgress(9, 1.0) // past total, capped

	require.Len(t, seen, 3)
	prev := 0
	for _, p := range seen {
		assert.Greater(t, p.Current, prev)
		assert.LessOrEqual(t, p.Current, p.Total)
		prev = p.Current
	}
	assert.Equal(t, 3, seen[2].Current)
}

func TestRunNoEventsAfterTerminal(t *testing.T) {
	var progressed, warned int
	run := NewRun(Observer{
		OnProgress: func(Progress) { progressed++ },
		OnWarning:  func(Warning) { warned++ },
	})
	run.Ready(5)
	run.Capturing()
	require.ErrorIs(t, run.Cancel(), ErrCancelled)

	run.EmitProgress(1, 0.0)
	run.Warn(Warning{Kind: WarnSeekDrift})

	assert.Zero(t, progressed)
	assert.Zero(t, warned)
	assert.Equal(t, StateCancelled, run.State())
}

func TestRunCompleteReturnsOrderedFrames(t *testing.T) {
	run := NewRun(Observer{})
	run.Ready(3)
	run.Capturing()

	require.NoError(t, run.Append(FrameRecord{Index: 0, TargetTime: 0, ActualTime: 0.1}))
	require.NoError(t, run.Append(FrameRecord{Index: 2, TargetTime: 1, ActualTime: 1.0}))
	require.Error(t, run.Append(FrameRecord{Index: 2}), "duplicate index rejected")
	require.Error(t, run.Append(FrameRecord{Index: 1}), "out of order index rejected")

	res, err := run.Complete()
	require.NoError(t, err)
	assert.Len(t, res.Frames, 2)
	assert.Equal(t, StateCompleted, run.State())

	_, err = run.Complete()
	assert.Error(t, err, "terminal transition is at most once")
}

func TestRunCompleteWithZeroFrames(t *testing.T) {
	run := NewRun(Observer{})
	run.Ready(4)
	run.Capturing()

	_, err := run.Complete()
	assert.ErrorIs(t, err, ErrNoFramesExtracted)
	assert.Equal(t, StateFailed, run.State())
}

func TestRunCancelDiscardsPartialResults(t *testing.T) {
	run := NewRun(Observer{})
	run.Ready(10)
	run.Capturing()
	require.NoError(t, run.Append(FrameRecord{Index: 0}))
	require.NoError(t, run.Append(FrameRecord{Index: 1}))

	err := run.Cancel()
	assert.ErrorIs(t, err, ErrCancelled)

	_, err = run.Complete()
	assert.Error(t, err)
}

func TestGateExclusiveRuns(t *testing.T) {
	var g Gate
	require.NoError(t, g.Acquire())
	assert.ErrorIs(t, g.Acquire(), ErrAlreadyInProgress)
	g.Release()
	assert.NoError(t, g.Acquire())
}
