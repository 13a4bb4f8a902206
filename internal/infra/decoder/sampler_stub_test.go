//go:build !decoder

package decoder

import (
	"context"
	"testing"

	"github.com/framesift/framesift-sampling-service/internal/sampling"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestStubSamplerUnavailable(t *testing.T) {
	s := NewInteractiveSampler(zap.NewNop())
	_, err := s.Sample(context.Background(), "in.mp4", t.TempDir(), sampling.Config{}, sampling.Observer{})
	assert.ErrorIs(t, err, ErrUnavailable)
}
