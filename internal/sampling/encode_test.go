package sampling

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 32), G: uint8(y * 32), B: 200, A: 255})
		}
	}
	return img
}

func TestEncodeImageFormats(t *testing.T) {
	for _, format := range []string{"jpg", "jpeg", "png", "webp"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, EncodeImage(&buf, testImage(), format, 0.8))
			assert.NotZero(t, buf.Len())
		})
	}
}

func TestEncodeImageUnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, EncodeImage(&buf, testImage(), "tiff", 0.8))
}

func TestCodecQuality(t *testing.T) {
	assert.Equal(t, 80, CodecQuality(0.8))
	assert.Equal(t, 1, CodecQuality(0))
	assert.Equal(t, 100, CodecQuality(1.5))
}

func TestFFmpegQScale(t *testing.T) {
	assert.Equal(t, 2, FFmpegQScale(1))
	assert.Equal(t, 31, FFmpegQScale(0))
	assert.Equal(t, 31, FFmpegQScale(-3))
}

func TestTargetHeight(t *testing.T) {
	assert.Equal(t, 360, TargetHeight(1920, 1080, 640))
	assert.Equal(t, 853, TargetHeight(1080, 1920, 480))
	// Unknown geometry falls back to 16:9.
	assert.Equal(t, 360, TargetHeight(0, 0, 640))
}
