package ffmpeg

import (
	"archive/zip"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/framesift/framesift-sampling-service/internal/sampling"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBundle(t *testing.T) {
	dir := t.TempDir()
	frames := make([]sampling.FrameRecord, 3)
	for i := range frames {
		path := filepath.Join(dir, "frame_000"+string(rune('0'+i))+".jpg")
		require.NoError(t, os.WriteFile(path, []byte("jpeg-bytes"), 0644))
		frames[i] = sampling.FrameRecord{
			Index:      i,
			TargetTime: float64(i) * 0.5,
			ActualTime: float64(i)*0.5 + 0.01,
			Path:       path,
			Width:      640,
			Height:     360,
		}
	}

	bundlePath := filepath.Join(dir, "frames.zip")
	require.NoError(t, NewBundleWriter().CreateBundle(context.Background(), frames, bundlePath))

	zr, err := zip.OpenReader(bundlePath)
	require.NoError(t, err)
	defer zr.Close()

	names := map[string]bool{}
	var manifestRaw []byte
	for _, f := range zr.File {
		names[f.Name] = true
		if f.Name == "manifest.json" {
			rc, err := f.Open()
			require.NoError(t, err)
			manifestRaw, err = io.ReadAll(rc)
			require.NoError(t, err)
			rc.Close()
		}
	}

	assert.True(t, names["frames/frame_0000.jpg"])
	assert.True(t, names["frames/frame_0002.jpg"])
	require.NotNil(t, manifestRaw)

	var manifest []manifestEntry
	require.NoError(t, json.Unmarshal(manifestRaw, &manifest))
	require.Len(t, manifest, 3)
	assert.Equal(t, 1, manifest[1].Index)
	assert.InDelta(t, 0.51, manifest[1].ActualTime, 1e-9)
}

func TestCreateBundleCancelled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame_0000.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpeg-bytes"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewBundleWriter().CreateBundle(ctx, []sampling.FrameRecord{{Path: path}}, filepath.Join(dir, "out.zip"))
	assert.ErrorIs(t, err, context.Canceled)
}
