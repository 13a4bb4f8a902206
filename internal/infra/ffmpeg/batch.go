// Package ffmpeg implements the process-backed sampling backend: one
// single-frame ffmpeg invocation per planned timestamp, run through a
// bounded worker pool, plus the ffprobe duration probes and the frame
// bundle writer.
package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/framesift/framesift-sampling-service/internal/domain/port"
	"github.com/framesift/framesift-sampling-service/internal/sampling"
	"go.uber.org/zap"
)

const defaultConcurrency = 4

// BatchSampler samples frames by launching one external ffmpeg process per
// planned timestamp. It needs no in-process decoder: each invocation seeks
// at the container level before decoding exactly one frame, which keeps
// individual extractions cheap.
type BatchSampler struct {
	ffmpegPath  string
	ffprobePath string
	runner      CommandRunner
	logger      *zap.Logger
	gate        sampling.Gate
}

// BatchSamplerOption configures a BatchSampler.
type BatchSamplerOption func(*BatchSampler)

// WithFFmpegPath sets a custom ffmpeg executable path.
func WithFFmpegPath(path string) BatchSamplerOption {
	return func(s *BatchSampler) { s.ffmpegPath = path }
}

// WithFFprobePath sets a custom ffprobe executable path.
func WithFFprobePath(path string) BatchSamplerOption {
	return func(s *BatchSampler) { s.ffprobePath = path }
}

// WithCommandRunner sets a custom command runner (for testing).
func WithCommandRunner(runner CommandRunner) BatchSamplerOption {
	return func(s *BatchSampler) { s.runner = runner }
}

func NewBatchSampler(logger *zap.Logger, opts ...BatchSamplerOption) *BatchSampler {
	s := &BatchSampler{
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
		runner:      &ExecCommandRunner{},
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// VerifyInstalled checks that ffmpeg and ffprobe are available.
func (s *BatchSampler) VerifyInstalled(ctx context.Context) error {
	for _, bin := range []string{s.ffmpegPath, s.ffprobePath} {
		if _, err := s.runner.Output(ctx, bin, "-version"); err != nil {
			return fmt.Errorf("%s not found or not executable: %w", bin, err)
		}
	}
	return nil
}

type capture struct {
	target float64
	path   string
	class  sampling.Classification
}

// Sample implements port.FrameSampler.
//
// An individual invocation failure or an empty artifact is skipped, never
// fatal; the run fails only when every planned capture was skipped. All
// intermediate artifacts live in a per-run scratch directory that is removed
// on every exit path.
func (s *BatchSampler) Sample(ctx context.Context, videoPath, outputDir string, cfg sampling.Config, obs sampling.Observer) (*sampling.Result, error) {
	if err := s.gate.Acquire(); err != nil {
		return nil, err
	}
	defer s.gate.Release()

	run := sampling.NewRun(obs)
	run.Loading()

	meta, err := s.Probe(ctx, videoPath)
	if err != nil {
		return nil, run.Fail(err)
	}

	plan, err := sampling.BuildPlan(meta.Duration, cfg)
	if err != nil {
		return nil, run.Fail(err)
	}
	run.Ready(plan.TotalFrames())

	scratch, err := os.MkdirTemp("", "framesift-batch-*")
	if err != nil {
		return nil, run.Fail(fmt.Errorf("create scratch dir: %w", err))
	}
	defer os.RemoveAll(scratch)

	format := cfg.Format
	if format == "" {
		format = "jpg"
	}

	captures := s.extractAll(ctx, run, plan, videoPath, scratch, format, cfg)

	if ctx.Err() != nil {
		return nil, run.Cancel()
	}

	width := cfg.TargetWidth
	height := sampling.TargetHeight(meta.Width, meta.Height, cfg.TargetWidth)
	for i, c := range captures {
		if c.class != sampling.FrameUsable {
			continue
		}
		dst := filepath.Join(outputDir, fmt.Sprintf("frame_%04d.%s", i, format))
		if err := moveFile(c.path, dst); err != nil {
			s.logger.Warn("could not move artifact, skipping frame",
				zap.Int("index", i), zap.Error(err))
			continue
		}
		rec := sampling.FrameRecord{
			Index:      i,
			TargetTime: c.target,
			// No drift measurement is available in this backend.
			ActualTime: c.target,
			Path:       dst,
			Width:      width,
			Height:     height,
		}
		if err := run.Append(rec); err != nil {
			return nil, run.Fail(err)
		}
	}

	return run.Complete()
}

// extractAll launches the per-timestamp invocations through a bounded worker
// pool and waits for all of them to settle. Pool size comes from
// cfg.Concurrency so long high-rate plans cannot exhaust the host with one
// process per frame.
func (s *BatchSampler) extractAll(ctx context.Context, run *sampling.Run, plan sampling.Plan, videoPath, scratch, format string, cfg sampling.Config) []capture {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	captures := make([]capture, plan.TotalFrames())
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var settled int32

	for i, target := range plan.Timestamps {
		captures[i] = capture{target: target, class: sampling.FrameCorrupt}

		wg.Add(1)
		go func(i int, target float64) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			defer func() {
				run.EmitProgress(int(atomic.AddInt32(&settled, 1)), target)
			}()

			if ctx.Err() != nil {
				return
			}

			out := filepath.Join(scratch, fmt.Sprintf("frame_%04d.%s", i, format))
			if err := s.extractOne(ctx, videoPath, out, target, cfg); err != nil {
				s.logger.Warn("frame extraction failed, skipping",
					zap.Int("index", i),
					zap.Float64("target_time", target),
					zap.Error(err),
				)
				run.Warn(sampling.Warning{
					Kind:       sampling.WarnCaptureSkipped,
					TargetTime: target,
					Message:    err.Error(),
				})
				return
			}

			info, err := os.Stat(out)
			if err != nil {
				captures[i].class = sampling.FrameCorrupt
				return
			}
			class := sampling.ClassifyArtifact(info.Size())
			if class != sampling.FrameUsable {
				os.Remove(out)
				run.Warn(sampling.Warning{
					Kind:       sampling.WarnCaptureSkipped,
					TargetTime: target,
					Message:    "artifact classified " + class.String(),
				})
			}
			captures[i].path = out
			captures[i].class = class
		}(i, target)
	}

	wg.Wait()
	return captures
}

// extractOne seeks at the container level (-ss before -i, coarse but fast),
// decodes exactly one frame and scales it to the target width preserving
// aspect ratio.
func (s *BatchSampler) extractOne(ctx context.Context, videoPath, outPath string, target float64, cfg sampling.Config) error {
	args := []string{
		"-ss", strconv.FormatFloat(target, 'f', 3, 64),
		"-i", videoPath,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:-2", cfg.TargetWidth),
		"-q:v", strconv.Itoa(sampling.FFmpegQScale(cfg.Quality)),
	}
	args = append(args, cfg.ExtraArgs...)
	args = append(args, "-y", outPath)

	return s.runner.Run(ctx, s.ffmpegPath, args...)
}

func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	// Rename can fail across filesystems; fall back to copy.
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// copyFile never leaves a partial destination behind: a failed copy removes
// whatever was written so skipped frames cannot surface as corrupt artifacts.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return nil
}

var _ port.FrameSampler = (*BatchSampler)(nil)
