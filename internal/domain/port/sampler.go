package port

import (
	"context"

	"github.com/framesift/framesift-sampling-service/internal/sampling"
)

// FrameSampler turns a local video file into a bounded, time-ordered set of
// encoded still frames written to outputDir. Both backends (process-per-
// timestamp batch and in-process decoder) implement this one contract.
//
// A cancelled context yields sampling.ErrCancelled with partial results
// discarded. A sampler instance runs at most one extraction at a time and
// returns sampling.ErrAlreadyInProgress otherwise.
type FrameSampler interface {
	Sample(ctx context.Context, videoPath, outputDir string, cfg sampling.Config, obs sampling.Observer) (*sampling.Result, error)
}
