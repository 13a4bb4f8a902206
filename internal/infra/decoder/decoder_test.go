package decoder

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOptionsDefaults(t *testing.T) {
	o := buildOptions(nil)
	assert.Equal(t, defaultLoadWait, o.loadWait)
	assert.Equal(t, defaultSeekWait, o.seekWait)
}

func TestBuildOptionsOverrides(t *testing.T) {
	o := buildOptions([]Option{
		WithLoadWait(time.Second),
		WithSeekWait(250 * time.Millisecond),
	})
	assert.Equal(t, time.Second, o.loadWait)
	assert.Equal(t, 250*time.Millisecond, o.seekWait)
}

func TestDiscardPartialsRemovesWrittenFrames(t *testing.T) {
	dir := t.TempDir()
	keep := filepath.Join(dir, "frame_0009.jpg")
	written := []string{
		filepath.Join(dir, "frame_0000.jpg"),
		filepath.Join(dir, "frame_0001.jpg"),
	}
	for _, p := range append(written, keep) {
		require.NoError(t, os.WriteFile(p, []byte("jpg"), 0644))
	}

	discardPartials(written)

	for _, p := range written {
		assert.NoFileExists(t, p)
	}
	assert.FileExists(t, keep, "only the run's own frames are removed")
}

func TestDiscardPartialsToleratesMissingFiles(t *testing.T) {
	// Removal is best effort; a path that never got written must not panic.
	discardPartials([]string{filepath.Join(t.TempDir(), "frame_0000.jpg")})
}
