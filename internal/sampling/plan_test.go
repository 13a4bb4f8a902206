package sampling

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPlanShortVideo(t *testing.T) {
	plan, err := BuildPlan(9.95, Config{Rate: 2, MaxDuration: 30})
	require.NoError(t, err)

	assert.Equal(t, 20, plan.TotalFrames())
	assert.InDelta(t, 9.95, plan.EffectiveDuration, 1e-9)
	assert.InDelta(t, 0, plan.Timestamps[0], 1e-9)
	assert.InDelta(t, 9.4525, plan.Timestamps[19], 1e-9)
}

func TestBuildPlanCappedByMaxDuration(t *testing.T) {
	plan, err := BuildPlan(45, Config{Rate: 2, MaxDuration: 30})
	require.NoError(t, err)

	assert.Equal(t, 60, plan.TotalFrames())
	assert.InDelta(t, 30, plan.EffectiveDuration, 1e-9)
	assert.InDelta(t, 29.5, plan.Timestamps[59], 1e-9)
}

func TestBuildPlanStrictlyIncreasingWithinBounds(t *testing.T) {
	cases := []struct {
		name     string
		duration float64
		rate     float64
		maxDur   float64
	}{
		{"one_fps", 12.3, 1, 30},
		{"fractional_rate", 60, 0.5, 120},
		{"capped", 600, 2, 30},
		{"barely_one_frame", 0.4, 1, 30},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := BuildPlan(tc.duration, Config{Rate: tc.rate, MaxDuration: tc.maxDur})
			require.NoError(t, err)

			eff := math.Min(tc.duration, tc.maxDur)
			assert.Equal(t, int(math.Ceil(eff*tc.rate)), plan.TotalFrames())

			prev := -1.0
			for i, ts := range plan.Timestamps {
				assert.Greater(t, ts, prev, "timestamp %d not increasing", i)
				assert.GreaterOrEqual(t, ts, 0.0)
				assert.Less(t, ts, eff)
				prev = ts
			}
		})
	}
}

func TestBuildPlanInvalidDuration(t *testing.T) {
	for _, d := range []float64{0, -1, math.Inf(1), math.NaN()} {
		_, err := BuildPlan(d, Config{Rate: 2, MaxDuration: 30})
		assert.ErrorIs(t, err, ErrInvalidDuration, "duration=%v", d)
	}
}

func TestBuildPlanEmptyPlan(t *testing.T) {
	_, err := BuildPlan(10, Config{Rate: 0, MaxDuration: 30})
	assert.ErrorIs(t, err, ErrEmptyPlan)
}

func TestBuildPlanDeterministic(t *testing.T) {
	cfg := Config{Rate: 3, MaxDuration: 20}
	a, err := BuildPlan(17.2, cfg)
	require.NoError(t, err)
	b, err := BuildPlan(17.2, cfg)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
