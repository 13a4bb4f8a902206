package sampling

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// DriftSummary aggregates |actual-target| seek drift across the usable
// frames of a run. The batch backend reports zero drift by construction
// (actual time is not observable there); the interactive backend measures it
// from the decoder position after each seek.
type DriftSummary struct {
	Samples int
	MeanSec float64
	MaxSec  float64
	P95Sec  float64
}

func summarizeDrift(frames []FrameRecord) DriftSummary {
	if len(frames) == 0 {
		return DriftSummary{}
	}
	drifts := make([]float64, len(frames))
	for i, f := range frames {
		drifts[i] = math.Abs(f.ActualTime - f.TargetTime)
	}
	sort.Float64s(drifts)

	return DriftSummary{
		Samples: len(drifts),
		MeanSec: stat.Mean(drifts, nil),
		MaxSec:  drifts[len(drifts)-1],
		P95Sec:  stat.Quantile(0.95, stat.Empirical, drifts, nil),
	}
}
