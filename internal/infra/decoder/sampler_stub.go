//go:build !decoder

package decoder

import (
	"context"

	"github.com/framesift/framesift-sampling-service/internal/domain/port"
	"github.com/framesift/framesift-sampling-service/internal/sampling"
	"go.uber.org/zap"
)

// Available reports whether the decoder backend was compiled in.
const Available = false

// InteractiveSampler is a stub when GoCV/OpenCV is not compiled in.
type InteractiveSampler struct {
	opts   options
	logger *zap.Logger
}

func NewInteractiveSampler(logger *zap.Logger, opts ...Option) *InteractiveSampler {
	return &InteractiveSampler{opts: buildOptions(opts), logger: logger}
}

// Sample always reports the backend as unavailable.
func (s *InteractiveSampler) Sample(ctx context.Context, videoPath, outputDir string, cfg sampling.Config, obs sampling.Observer) (*sampling.Result, error) {
	return nil, ErrUnavailable
}

var _ port.FrameSampler = (*InteractiveSampler)(nil)
