package sampling

// Classification is the validator's verdict on a captured buffer.
type Classification int

const (
	// FrameUsable buffers proceed to encoding.
	FrameUsable Classification = iota
	// FrameEmpty marks an all-zero (black, unpainted) capture, typically a
	// seek that landed before the decoder painted a frame.
	FrameEmpty
	// FrameCorrupt marks a buffer whose size does not match its declared
	// geometry.
	FrameCorrupt
)

func (c Classification) String() string {
	switch c {
	case FrameUsable:
		return "usable"
	case FrameEmpty:
		return "empty"
	case FrameCorrupt:
		return "corrupt"
	}
	return "unknown"
}

// pixelSampleStride keeps validation cheap on large buffers: every Nth byte
// is inspected rather than the whole frame.
const pixelSampleStride = 16

// ClassifyPixels validates a raw pixel buffer against its declared geometry.
// Empty and corrupt frames are skipped by the samplers, never retried.
func ClassifyPixels(buf []byte, width, height, channels int) Classification {
	if width <= 0 || height <= 0 || channels <= 0 {
		return FrameCorrupt
	}
	if len(buf) != width*height*channels {
		return FrameCorrupt
	}
	for i := 0; i < len(buf); i += pixelSampleStride {
		if buf[i] != 0 {
			return FrameUsable
		}
	}
	return FrameEmpty
}

// ClassifyArtifact validates an on-disk artifact produced by the batch
// backend, where only the byte size is observable. A zero-byte artifact is
// the process-backed equivalent of an unpainted frame.
func ClassifyArtifact(size int64) Classification {
	if size < 0 {
		return FrameCorrupt
	}
	if size == 0 {
		return FrameEmpty
	}
	return FrameUsable
}
