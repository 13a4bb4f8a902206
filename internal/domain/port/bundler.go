package port

import (
	"context"

	"github.com/framesift/framesift-sampling-service/internal/sampling"
)

// Bundler packages the sampled frames plus their timing manifest into a
// single downloadable artifact.
type Bundler interface {
	CreateBundle(ctx context.Context, frames []sampling.FrameRecord, outputPath string) error
}
