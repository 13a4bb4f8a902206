package sampling

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"math"

	"github.com/chai2010/webp"
)

// EncodeImage writes img in the requested format. Quality is the 0..1 run
// configuration value, mapped to the codec's native scale.
func EncodeImage(w io.Writer, img image.Image, format string, quality float64) error {
	switch format {
	case "jpg", "jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: CodecQuality(quality)})
	case "png":
		return png.Encode(w, img)
	case "webp":
		return webp.Encode(w, img, &webp.Options{Quality: float32(CodecQuality(quality))})
	}
	return fmt.Errorf("unsupported frame format %q", format)
}

// CodecQuality maps the 0..1 quality knob to the 1..100 scale shared by the
// JPEG and WebP encoders.
func CodecQuality(quality float64) int {
	q := int(math.Round(clamp01(quality) * 100))
	if q < 1 {
		q = 1
	}
	return q
}

// FFmpegQScale maps the 0..1 quality knob to ffmpeg's inverted -q:v scale,
// where 2 is best and 31 worst.
func FFmpegQScale(quality float64) int {
	return 31 - int(math.Round(clamp01(quality)*29))
}

// TargetHeight derives the output height for a target width, preserving the
// native aspect ratio. Falls back to a 16:9 shape when the native geometry
// is unknown.
func TargetHeight(nativeWidth, nativeHeight, targetWidth int) int {
	if nativeWidth <= 0 || nativeHeight <= 0 {
		return int(math.Round(float64(targetWidth) * 9.0 / 16.0))
	}
	aspect := float64(nativeWidth) / float64(nativeHeight)
	return int(math.Round(float64(targetWidth) / aspect))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
