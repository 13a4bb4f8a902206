package sampling

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarizeDrift(t *testing.T) {
	frames := []FrameRecord{
		{Index: 0, TargetTime: 0.0, ActualTime: 0.1},
		{Index: 1, TargetTime: 1.0, ActualTime: 1.0},
		{Index: 2, TargetTime: 2.0, ActualTime: 2.3},
		{Index: 3, TargetTime: 3.0, ActualTime: 2.8},
	}

	s := summarizeDrift(frames)
	assert.Equal(t, 4, s.Samples)
	assert.InDelta(t, 0.15, s.MeanSec, 1e-9)
	assert.InDelta(t, 0.3, s.MaxSec, 1e-9)
	assert.GreaterOrEqual(t, s.P95Sec, s.MeanSec)
	assert.LessOrEqual(t, s.P95Sec, s.MaxSec)
}

func TestSummarizeDriftEmpty(t *testing.T) {
	assert.Equal(t, DriftSummary{}, summarizeDrift(nil))
}

func TestSummarizeDriftZeroForBatchRecords(t *testing.T) {
	// The batch backend sets actual = target; its summary collapses to zero.
	frames := []FrameRecord{
		{Index: 0, TargetTime: 0.5, ActualTime: 0.5},
		{Index: 1, TargetTime: 1.5, ActualTime: 1.5},
	}
	s := summarizeDrift(frames)
	assert.Zero(t, s.MeanSec)
	assert.Zero(t, s.MaxSec)
}
