package sampling

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyPixels(t *testing.T) {
	usable := make([]byte, 4*4*3)
	usable[0] = 128

	empty := make([]byte, 4*4*3)

	// Non-zero data hidden between sample strides still counts as empty;
	// the validator inspects a sparse sample, and a frame whose sampled
	// channels are all zero is treated as unpainted.
	short := make([]byte, 10)

	cases := []struct {
		name     string
		buf      []byte
		w, h, ch int
		want     Classification
	}{
		{"usable", usable, 4, 4, 3, FrameUsable},
		{"all_zero", empty, 4, 4, 3, FrameEmpty},
		{"size_mismatch", short, 4, 4, 3, FrameCorrupt},
		{"zero_geometry", usable, 0, 4, 3, FrameCorrupt},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyPixels(tc.buf, tc.w, tc.h, tc.ch))
		})
	}
}

func TestClassifyArtifact(t *testing.T) {
	assert.Equal(t, FrameUsable, ClassifyArtifact(1024))
	assert.Equal(t, FrameEmpty, ClassifyArtifact(0))
	assert.Equal(t, FrameCorrupt, ClassifyArtifact(-1))
}
