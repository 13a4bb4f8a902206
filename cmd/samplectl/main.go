// samplectl runs the sampling engine against a local video file, without the
// queue and storage plumbing. Useful for tuning rate, width and quality knobs
// before deploying them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/framesift/framesift-sampling-service/internal/domain/port"
	"github.com/framesift/framesift-sampling-service/internal/infra/decoder"
	"github.com/framesift/framesift-sampling-service/internal/infra/ffmpeg"
	"github.com/framesift/framesift-sampling-service/internal/sampling"
	"github.com/framesift/framesift-sampling-service/pkg/logger"
	"github.com/google/shlex"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagRate        float64
	flagMaxDuration float64
	flagWidth       int
	flagQuality     float64
	flagTolerance   float64
	flagFormat      string
	flagConcurrency int
	flagBackend     string
	flagExtraArgs   string
	flagOutput      string
	flagBundle      string
	flagLogLevel    string
)

func main() {
	root := &cobra.Command{
		Use:          "samplectl",
		Short:        "Sample frames from video files at evenly spaced timestamps",
		SilenceUsage: true,
	}

	root.AddCommand(newSampleCmd(), newPlanCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newSampleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample <video>",
		Short: "Extract frames from a video into a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSample(args[0])
		},
	}

	cmd.Flags().Float64Var(&flagRate, "rate", 1.0, "frames per second to sample")
	cmd.Flags().Float64Var(&flagMaxDuration, "max-duration", 30.0, "cap on the sampled window in seconds")
	cmd.Flags().IntVar(&flagWidth, "width", 640, "target frame width, height follows aspect ratio")
	cmd.Flags().Float64Var(&flagQuality, "quality", 0.8, "encode quality in [0,1]")
	cmd.Flags().Float64Var(&flagTolerance, "seek-tolerance", 0.5, "seek drift warning threshold in seconds")
	cmd.Flags().StringVar(&flagFormat, "format", "jpg", "frame image format (jpg, png, webp)")
	cmd.Flags().IntVar(&flagConcurrency, "concurrency", 4, "parallel extractions for the batch backend")
	cmd.Flags().StringVar(&flagBackend, "backend", "batch", "sampling backend: batch or decoder")
	cmd.Flags().StringVar(&flagExtraArgs, "ffmpeg-args", "", "extra arguments appended to each ffmpeg invocation")
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "frames", "output directory for extracted frames")
	cmd.Flags().StringVar(&flagBundle, "bundle", "", "optionally write a zip bundle with manifest to this path")
	cmd.Flags().StringVar(&flagLogLevel, "log-level", "warn", "log level")

	return cmd
}

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <duration-seconds>",
		Short: "Print the timestamps that would be sampled for a given duration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var duration float64
			if _, err := fmt.Sscanf(args[0], "%g", &duration); err != nil {
				return fmt.Errorf("invalid duration %q", args[0])
			}
			plan, err := sampling.BuildPlan(duration, sampling.Config{
				Rate:        flagRate,
				MaxDuration: flagMaxDuration,
			})
			if err != nil {
				return err
			}
			fmt.Printf("effective duration: %.3fs, frames: %d\n", plan.EffectiveDuration, plan.TotalFrames())
			for i, ts := range plan.Timestamps {
				fmt.Printf("  %4d  %8.3fs\n", i, ts)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&flagRate, "rate", 1.0, "frames per second to sample")
	cmd.Flags().Float64Var(&flagMaxDuration, "max-duration", 30.0, "cap on the sampled window in seconds")

	return cmd
}

func runSample(videoPath string) error {
	log, err := logger.New(flagLogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	extraArgs, err := shlex.Split(flagExtraArgs)
	if err != nil {
		return fmt.Errorf("parse --ffmpeg-args: %w", err)
	}

	cfg := sampling.Config{
		Rate:          flagRate,
		MaxDuration:   flagMaxDuration,
		TargetWidth:   flagWidth,
		Quality:       flagQuality,
		SeekTolerance: flagTolerance,
		Format:        flagFormat,
		Concurrency:   flagConcurrency,
		ExtraArgs:     extraArgs,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sampler, err := buildSampler(ctx, log)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(flagOutput, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	obs := sampling.Observer{
		OnProgress: func(p sampling.Progress) {
			fmt.Fprintf(os.Stderr, "\r%d/%d frames", p.Current, p.Total)
		},
		OnWarning: func(w sampling.Warning) {
			fmt.Fprintf(os.Stderr, "\nwarning: %s at %.3fs: %s\n", w.Kind, w.TargetTime, w.Message)
		},
	}

	start := time.Now()
	result, err := sampler.Sample(ctx, videoPath, flagOutput, cfg, obs)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}

	fmt.Printf("sampled %d frames in %s\n", len(result.Frames), time.Since(start).Round(time.Millisecond))
	if result.Drift.Samples > 0 {
		fmt.Printf("seek drift: mean %.3fs, max %.3fs, p95 %.3fs over %d samples\n",
			result.Drift.MeanSec, result.Drift.MaxSec, result.Drift.P95Sec, result.Drift.Samples)
	}

	if flagBundle != "" {
		if err := ffmpeg.NewBundleWriter().CreateBundle(ctx, result.Frames, flagBundle); err != nil {
			return fmt.Errorf("write bundle: %w", err)
		}
		fmt.Printf("bundle written to %s\n", flagBundle)
	}

	return nil
}

func buildSampler(ctx context.Context, log *zap.Logger) (port.FrameSampler, error) {
	switch flagBackend {
	case "decoder":
		return decoder.NewInteractiveSampler(log), nil
	case "batch":
		s := ffmpeg.NewBatchSampler(log)
		if err := s.VerifyInstalled(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", flagBackend)
	}
}
