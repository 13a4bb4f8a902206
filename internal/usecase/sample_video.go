package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/framesift/framesift-sampling-service/internal/domain/entity"
	"github.com/framesift/framesift-sampling-service/internal/domain/port"
	"github.com/framesift/framesift-sampling-service/internal/infra/metrics"
	"github.com/framesift/framesift-sampling-service/internal/sampling"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// SampleVideoUseCase drives one sampling job end to end: download the video,
// run the configured sampler backend, bundle the usable frames, upload the
// bundle and keep the job record and status queue in sync along the way.
type SampleVideoUseCase struct {
	repo     port.JobRepository
	storage  port.VideoStorage
	sampler  port.FrameSampler
	bundler  port.Bundler
	analyzer port.Analyzer
	pub      port.StatusPublisher
	dlq      port.DLQPublisher
	notifier port.FailureNotifier
	logger   *zap.Logger
	cfg      SampleVideoConfig
}

type SampleVideoConfig struct {
	TempDir    string
	MaxRetries int
	Backend    string
	Sampling   sampling.Config
}

func NewSampleVideoUseCase(
	repo port.JobRepository,
	storage port.VideoStorage,
	sampler port.FrameSampler,
	bundler port.Bundler,
	analyzer port.Analyzer,
	pub port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg SampleVideoConfig,
) *SampleVideoUseCase {
	return &SampleVideoUseCase{
		repo:     repo,
		storage:  storage,
		sampler:  sampler,
		bundler:  bundler,
		analyzer: analyzer,
		pub:      pub,
		dlq:      dlq,
		notifier: notifier,
		logger:   logger,
		cfg:      cfg,
	}
}

func (uc *SampleVideoUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "SampleVideoUseCase.Execute")
	defer span.End()

	totalTimer := time.Now()

	var msg entity.VideoSamplingMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		return nil
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.String("job.video_key", msg.VideoKey),
		attribute.String("sampler.backend", uc.cfg.Backend),
	)

	log := uc.logger.With(zap.String("job_id", msg.JobID.String()), zap.String("video_key", msg.VideoKey))

	job, err := uc.repo.FindByID(ctx, msg.JobID)
	if err != nil {
		job = entity.NewJob(msg.UserID, msg.VideoKey, msg.FileSize, uc.cfg.MaxRetries)
		job.ID = msg.JobID
		if err := uc.repo.Create(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	}

	if !job.CanRetry() {
		log.Warn("job exhausted retries, sending to DLQ")
		_ = uc.handlePermanentFailure(ctx, job, msg, rawMsg, "max retries exceeded")
		return nil
	}

	job.MarkAttempt()
	job.MarkSampling(uc.cfg.Backend, 0)
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to SAMPLING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	if err := uc.runPipeline(ctx, job, msg, rawMsg, log); err != nil {
		return err
	}

	if job.Status == entity.JobStatusCompleted {
		metrics.JobsProcessedTotal.WithLabelValues("completed").Inc()
	}
	metrics.JobProcessingDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())

	return nil
}

func (uc *SampleVideoUseCase) runPipeline(
	ctx context.Context,
	job *entity.Job,
	msg entity.VideoSamplingMessage,
	rawMsg []byte,
	log *zap.Logger,
) error {
	tracer := otel.Tracer("usecase")

	workDir := filepath.Join(uc.cfg.TempDir, job.ID.String())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	// Download video from MinIO
	dlStart := time.Now()
	dlCtx, spanDl := tracer.Start(ctx, "download_video")
	videoPath := filepath.Join(workDir, "input.mp4")
	if err := uc.storage.DownloadVideo(dlCtx, msg.VideoKey, videoPath); err != nil {
		spanDl.End()
		log.Error("failed to download video", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "download_video: "+err.Error(), log)
	}
	spanDl.End()
	metrics.JobProcessingDuration.WithLabelValues("download").Observe(time.Since(dlStart).Seconds())

	// Sample frames
	smStart := time.Now()
	smCtx, spanSm := tracer.Start(ctx, "sample_frames")
	framesDir := filepath.Join(workDir, "frames")
	if err := os.MkdirAll(framesDir, 0755); err != nil {
		spanSm.End()
		return fmt.Errorf("create frames dir: %w", err)
	}
	result, err := uc.sampler.Sample(smCtx, videoPath, framesDir, uc.cfg.Sampling, uc.observer(ctx, job, log))
	spanSm.End()
	if err != nil {
		if errors.Is(err, sampling.ErrCancelled) {
			log.Info("sampling cancelled, partial frames discarded")
			job.MarkCancelled()
			_ = uc.repo.Update(ctx, job)
			uc.publishStatus(ctx, job, log)
			metrics.JobsProcessedTotal.WithLabelValues("cancelled").Inc()
			return nil
		}
		log.Error("frame sampling failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "sample_frames: "+err.Error(), log)
	}
	metrics.JobProcessingDuration.WithLabelValues("sample").Observe(time.Since(smStart).Seconds())
	metrics.FramesSampledTotal.WithLabelValues(uc.cfg.Backend).Add(float64(len(result.Frames)))

	// Bundle frames plus manifest
	bdStart := time.Now()
	bdCtx, spanBd := tracer.Start(ctx, "create_bundle")
	bundlePath := filepath.Join(workDir, "frames.zip")
	if err := uc.bundler.CreateBundle(bdCtx, result.Frames, bundlePath); err != nil {
		spanBd.End()
		log.Error("bundle creation failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "create_bundle: "+err.Error(), log)
	}
	spanBd.End()
	metrics.JobProcessingDuration.WithLabelValues("bundle").Observe(time.Since(bdStart).Seconds())

	// Upload bundle to MinIO
	upStart := time.Now()
	upCtx, spanUp := tracer.Start(ctx, "upload_bundle")
	bundleKey := fmt.Sprintf("%s/frames_%s.zip", msg.UserID, job.ID.String())
	bundleFile, err := os.Open(bundlePath)
	if err != nil {
		spanUp.End()
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "open_bundle: "+err.Error(), log)
	}
	bundleStat, _ := bundleFile.Stat()
	if err := uc.storage.UploadBundle(upCtx, bundleKey, bundleFile, bundleStat.Size()); err != nil {
		bundleFile.Close()
		spanUp.End()
		log.Error("bundle upload failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "upload_bundle: "+err.Error(), log)
	}
	bundleFile.Close()
	spanUp.End()
	metrics.JobProcessingDuration.WithLabelValues("upload").Observe(time.Since(upStart).Seconds())

	// Optional downstream analysis. The frames are already delivered, so an
	// analyzer failure degrades to a warning rather than failing the job.
	if uc.analyzer != nil {
		anCtx, spanAn := tracer.Start(ctx, "analyze_frames")
		paths := make([]string, len(result.Frames))
		for i, f := range result.Frames {
			paths[i] = f.Path
		}
		if text, err := uc.analyzer.Describe(anCtx, paths); err != nil {
			log.Warn("frame analysis failed, continuing without description", zap.Error(err))
		} else {
			job.SetAnalysis(text)
		}
		spanAn.End()
	}

	lastFrame := result.Frames[len(result.Frames)-1]
	job.MarkCompleted(bundleKey, len(result.Frames), lastFrame.TargetTime, result.Drift.MeanSec, result.Drift.MaxSec)
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to COMPLETED", zap.Error(err))
		return fmt.Errorf("update job completed: %w", err)
	}

	uc.publishStatus(ctx, job, log)

	log.Info("job completed successfully",
		zap.Int("frame_count", len(result.Frames)),
		zap.Float64("drift_mean_sec", result.Drift.MeanSec),
		zap.Float64("drift_max_sec", result.Drift.MaxSec),
		zap.String("bundle_key", bundleKey),
	)

	return nil
}

// observer bridges the sampler's progress and warning callbacks onto the
// status queue and the metrics registry.
func (uc *SampleVideoUseCase) observer(ctx context.Context, job *entity.Job, log *zap.Logger) sampling.Observer {
	return sampling.Observer{
		OnProgress: func(p sampling.Progress) {
			statusMsg := entity.VideoStatusMessage{
				JobID:         job.ID,
				UserID:        job.UserID,
				Status:        entity.JobStatusSampling,
				VideoKey:      job.VideoKey,
				Backend:       uc.cfg.Backend,
				FramesCurrent: p.Current,
				FramesTotal:   p.Total,
				Attempt:       job.Attempt,
				MaxAttempts:   job.MaxAttempts,
			}
			data, _ := json.Marshal(statusMsg)
			if err := uc.pub.PublishStatus(ctx, data); err != nil {
				log.Warn("failed to publish progress", zap.Error(err))
			}
		},
		OnWarning: func(w sampling.Warning) {
			switch w.Kind {
			case sampling.WarnSeekDrift:
				metrics.SeekDriftWarnings.Inc()
			case sampling.WarnCaptureSkipped:
				metrics.FramesSkippedTotal.WithLabelValues("capture_skipped").Inc()
			case sampling.WarnMetadataTimeout:
				// No frame was skipped; the run just lost its metadata wait.
				metrics.MetadataTimeouts.Inc()
			}
			log.Warn("sampler warning",
				zap.String("kind", w.Kind),
				zap.Float64("target_time", w.TargetTime),
				zap.Float64("actual_time", w.ActualTime),
				zap.String("detail", w.Message),
			)
		},
	}
}

func (uc *SampleVideoUseCase) handleRetryableFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.VideoSamplingMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, errMsg)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	uc.publishStatus(ctx, job, log)

	return fmt.Errorf("retryable failure (attempt %d/%d): %s", job.Attempt, job.MaxAttempts, errMsg)
}

func (uc *SampleVideoUseCase) handlePermanentFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.VideoSamplingMessage,
	rawMsg []byte,
	errMsg string,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	_ = uc.dlq.PublishToDLQ(ctx, rawMsg, errMsg)

	uc.publishStatus(ctx, job, uc.logger)

	metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()

	if msg.UserEmail != "" {
		_ = uc.notifier.NotifyFailure(ctx, msg.UserEmail, job.ID.String(), msg.VideoKey, errMsg)
	}

	return nil
}

func (uc *SampleVideoUseCase) publishStatus(ctx context.Context, job *entity.Job, log *zap.Logger) {
	statusMsg := entity.VideoStatusMessage{
		JobID:        job.ID,
		UserID:       job.UserID,
		Status:       job.Status,
		VideoKey:     job.VideoKey,
		BundleKey:    job.BundleKey,
		Backend:      job.Backend,
		FrameCount:   job.FrameCount,
		Duration:     job.VideoDuration,
		DriftMeanSec: job.DriftMeanSec,
		Analysis:     job.Analysis,
		ErrorMessage: job.ErrorMessage,
		Attempt:      job.Attempt,
		MaxAttempts:  job.MaxAttempts,
	}
	data, _ := json.Marshal(statusMsg)
	if err := uc.pub.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}
