package ffmpeg

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/framesift/framesift-sampling-service/internal/sampling"
)

// BundleWriter packages sampled frames into a zip along with a
// manifest.json describing each frame's planned and actual capture time.
type BundleWriter struct{}

func NewBundleWriter() *BundleWriter {
	return &BundleWriter{}
}

type manifestEntry struct {
	File       string  `json:"file"`
	Index      int     `json:"index"`
	TargetTime float64 `json:"target_time_seconds"`
	ActualTime float64 `json:"actual_time_seconds"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

// CreateBundle implements port.Bundler. Frames are stored under frames/ in
// plan order.
func (b *BundleWriter) CreateBundle(ctx context.Context, frames []sampling.FrameRecord, outputPath string) error {
	bundleFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create bundle file: %w", err)
	}
	defer bundleFile.Close()

	zw := zip.NewWriter(bundleFile)
	defer zw.Close()

	manifest := make([]manifestEntry, 0, len(frames))
	for _, frame := range frames {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		name := filepath.Base(frame.Path)
		if err := addFrameToBundle(zw, frame.Path, "frames/"+name); err != nil {
			return fmt.Errorf("add %s to bundle: %w", frame.Path, err)
		}
		manifest = append(manifest, manifestEntry{
			File:       "frames/" + name,
			Index:      frame.Index,
			TargetTime: frame.TargetTime,
			ActualTime: frame.ActualTime,
			Width:      frame.Width,
			Height:     frame.Height,
		})
	}

	mw, err := zw.Create("manifest.json")
	if err != nil {
		return fmt.Errorf("create manifest entry: %w", err)
	}
	enc := json.NewEncoder(mw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(manifest); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}

func addFrameToBundle(zw *zip.Writer, path, name string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	writer, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	_, err = io.Copy(writer, file)
	return err
}
