//go:build decoder

package decoder

import (
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/framesift/framesift-sampling-service/internal/domain/port"
	"github.com/framesift/framesift-sampling-service/internal/sampling"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Available reports whether the decoder backend was compiled in.
const Available = true

// InteractiveSampler captures frames through an in-process GoCV decoder.
// Exactly one decoder handle and one capture surface are live per run, both
// released on every exit path.
type InteractiveSampler struct {
	opts   options
	logger *zap.Logger
	gate   sampling.Gate
}

func NewInteractiveSampler(logger *zap.Logger, opts ...Option) *InteractiveSampler {
	return &InteractiveSampler{opts: buildOptions(opts), logger: logger}
}

// Sample implements port.FrameSampler.
func (s *InteractiveSampler) Sample(ctx context.Context, videoPath, outputDir string, cfg sampling.Config, obs sampling.Observer) (*sampling.Result, error) {
	if err := s.gate.Acquire(); err != nil {
		return nil, err
	}
	defer s.gate.Release()

	run := sampling.NewRun(obs)
	run.Loading()

	vc, err := gocv.VideoCaptureFile(videoPath)
	if err != nil {
		return nil, run.Fail(fmt.Errorf("%w: open %s: %v", sampling.ErrLoad, videoPath, err))
	}
	defer vc.Close()

	duration, nativeW, nativeH, err := s.loadMetadata(ctx, vc, run, cfg)
	if err != nil {
		return nil, err
	}

	plan, err := sampling.BuildPlan(duration, cfg)
	if err != nil {
		return nil, run.Fail(err)
	}
	run.Ready(plan.TotalFrames())

	s.logger.Debug("interactive run planned",
		zap.Float64("duration", duration),
		zap.Int("total_frames", plan.TotalFrames()),
	)

	width := cfg.TargetWidth
	height := sampling.TargetHeight(nativeW, nativeH, cfg.TargetWidth)
	format := cfg.Format
	if format == "" {
		format = "jpg"
	}

	frame := gocv.NewMat()
	defer frame.Close()
	surface := gocv.NewMat()
	defer surface.Close()

	run.Capturing()
	var written []string
	for i, target := range plan.Timestamps {
		// Cooperative scheduling point: cancellation is observed between
		// captures, never mid-decode.
		select {
		case <-ctx.Done():
			discardPartials(written)
			return nil, run.Cancel()
		default:
		}

		actual, ok := s.captureAt(ctx, vc, &frame, target)
		if !ok {
			run.Warn(sampling.Warning{
				Kind:       sampling.WarnCaptureSkipped,
				TargetTime: target,
				Message:    "decoder produced no frame",
			})
			run.EmitProgress(i+1, target)
			continue
		}

		if drift := math.Abs(actual - target); drift > cfg.SeekTolerance {
			run.Warn(sampling.Warning{
				Kind:       sampling.WarnSeekDrift,
				TargetTime: target,
				ActualTime: actual,
				Message:    fmt.Sprintf("seek drift %.3fs exceeds tolerance %.3fs", drift, cfg.SeekTolerance),
			})
		}

		gocv.Resize(frame, &surface, image.Pt(width, height), 0, 0, gocv.InterpolationArea)

		buf, err := surface.ToBytes()
		if err != nil {
			run.Warn(sampling.Warning{
				Kind:       sampling.WarnCaptureSkipped,
				TargetTime: target,
				Message:    "surface read failed: " + err.Error(),
			})
			run.EmitProgress(i+1, target)
			continue
		}

		class := sampling.ClassifyPixels(buf, width, height, surface.Channels())
		if class != sampling.FrameUsable {
			run.Warn(sampling.Warning{
				Kind:       sampling.WarnCaptureSkipped,
				TargetTime: target,
				ActualTime: actual,
				Message:    "capture classified " + class.String(),
			})
			run.EmitProgress(i+1, target)
			continue
		}

		path := filepath.Join(outputDir, fmt.Sprintf("frame_%04d.%s", i, format))
		if err := s.encodeFrame(surface, path, format, cfg.Quality); err != nil {
			run.Warn(sampling.Warning{
				Kind:       sampling.WarnCaptureSkipped,
				TargetTime: target,
				Message:    "encode failed: " + err.Error(),
			})
			run.EmitProgress(i+1, target)
			continue
		}

		rec := sampling.FrameRecord{
			Index:      i,
			TargetTime: target,
			ActualTime: actual,
			Path:       path,
			Width:      width,
			Height:     height,
		}
		if err := run.Append(rec); err != nil {
			return nil, run.Fail(err)
		}
		written = append(written, path)
		run.EmitProgress(i+1, target)
	}

	return run.Complete()
}

// loadMetadata waits up to the configured bound for the decoder to report
// duration. Timeout is best effort, not fatal: the run proceeds with the
// capped window as its working duration and emits a warning.
func (s *InteractiveSampler) loadMetadata(ctx context.Context, vc *gocv.VideoCapture, run *sampling.Run, cfg sampling.Config) (duration float64, nativeW, nativeH int, err error) {
	deadline := time.Now().Add(s.opts.loadWait)
	for {
		fps := vc.Get(gocv.VideoCaptureFPS)
		frames := vc.Get(gocv.VideoCaptureFrameCount)
		if fps > 0 && frames > 0 {
			duration = frames / fps
			break
		}
		if time.Now().After(deadline) {
			run.Warn(sampling.Warning{
				Kind:    sampling.WarnMetadataTimeout,
				Message: fmt.Sprintf("no metadata after %s, proceeding with %.1fs window", s.opts.loadWait, cfg.MaxDuration),
			})
			duration = cfg.MaxDuration
			break
		}
		select {
		case <-ctx.Done():
			return 0, 0, 0, run.Cancel()
		case <-time.After(50 * time.Millisecond):
		}
	}

	nativeW = int(vc.Get(gocv.VideoCaptureFrameWidth))
	nativeH = int(vc.Get(gocv.VideoCaptureFrameHeight))
	return duration, nativeW, nativeH, nil
}

// captureAt seeks to the target time and decodes one frame, retrying within
// the bounded seek wait. It returns the decoder's settled position, which
// may drift from the target.
func (s *InteractiveSampler) captureAt(ctx context.Context, vc *gocv.VideoCapture, frame *gocv.Mat, target float64) (actual float64, ok bool) {
	vc.Set(gocv.VideoCapturePosMsec, target*1000)

	deadline := time.Now().Add(s.opts.seekWait)
	for {
		if vc.Read(frame) && !frame.Empty() {
			return vc.Get(gocv.VideoCapturePosMsec) / 1000, true
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return 0, false
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func (s *InteractiveSampler) encodeFrame(surface gocv.Mat, path, format string, quality float64) error {
	img, err := surface.ToImage()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := sampling.EncodeImage(f, img, format, quality); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

var _ port.FrameSampler = (*InteractiveSampler)(nil)
