package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/framesift/framesift-sampling-service/internal/domain/port"
	"github.com/framesift/framesift-sampling-service/internal/infra/analyze"
	"github.com/framesift/framesift-sampling-service/internal/infra/config"
	"github.com/framesift/framesift-sampling-service/internal/infra/decoder"
	"github.com/framesift/framesift-sampling-service/internal/infra/email"
	"github.com/framesift/framesift-sampling-service/internal/infra/ffmpeg"
	"github.com/framesift/framesift-sampling-service/internal/infra/metrics"
	miniostorage "github.com/framesift/framesift-sampling-service/internal/infra/minio"
	"github.com/framesift/framesift-sampling-service/internal/infra/postgres"
	"github.com/framesift/framesift-sampling-service/internal/infra/rabbitmq"
	"github.com/framesift/framesift-sampling-service/internal/infra/tracing"
	"github.com/framesift/framesift-sampling-service/internal/sampling"
	"github.com/framesift/framesift-sampling-service/internal/usecase"
	"github.com/framesift/framesift-sampling-service/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting framesift-sampling-service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if Jaeger unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint)
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(ctx)
	}

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()

	// Migrations
	err = postgres.RunMigrations(cfg.DatabaseURL, "migrations")
	if err != nil {
		log.Warn("migration warning", zap.Error(err))
	}

	// MinIO
	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:     cfg.MinIOEndpoint,
		AccessKey:    cfg.MinIOAccessKey,
		SecretKey:    cfg.MinIOSecretKey,
		UseSSL:       cfg.MinIOUseSSL,
		UploadBucket: cfg.MinIOUploadBucket,
		BundleBucket: cfg.MinIOBundleBucket,
	})
	fatalOnErr(err, "create minio storage")
	fatalOnErr(storage.EnsureBuckets(ctx), "ensure minio buckets")

	// RabbitMQ publisher connection
	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq for publisher")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")

	statusPub := rabbitmq.NewStatusPublisher(pub, cfg.RabbitMQStatusQueue)
	dlqPub := rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ)

	// Infra adapters
	repo := postgres.NewJobRepository(pool)
	sampler, backend := buildSampler(ctx, cfg, log)
	bundler := ffmpeg.NewBundleWriter()
	notifier := email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, log)

	var analyzer port.Analyzer
	if cfg.AnalyzerURL != "" {
		analyzer = analyze.NewClient(cfg.AnalyzerURL, time.Duration(cfg.AnalyzerTimeoutMs)*time.Millisecond)
	}

	extraArgs, err := cfg.ExtraArgs()
	fatalOnErr(err, "parse FFMPEG_EXTRA_ARGS")

	// Use case
	uc := usecase.NewSampleVideoUseCase(
		repo, storage, sampler, bundler, analyzer,
		statusPub, dlqPub, notifier,
		log,
		usecase.SampleVideoConfig{
			TempDir:    cfg.TempDir,
			MaxRetries: cfg.MaxRetries,
			Backend:    backend,
			Sampling: sampling.Config{
				Rate:          cfg.SampleRate,
				MaxDuration:   cfg.SampleMaxDuration,
				TargetWidth:   cfg.TargetWidth,
				Quality:       cfg.FrameQuality,
				SeekTolerance: cfg.SeekToleranceSec,
				Format:        cfg.FrameFormat,
				Concurrency:   cfg.SamplerConcurrency,
				ExtraArgs:     extraArgs,
			},
		},
	)

	// Metrics server
	metricsSrv := metrics.StartMetricsServer(ctx, cfg.MetricsPort, log)

	// Consumer (worker pool)
	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         cfg.RabbitMQURL,
		Queue:       cfg.RabbitMQSamplingQueue,
		Exchange:    cfg.RabbitMQExchange,
		DLQ:         cfg.RabbitMQDLQ,
		StatusQueue: cfg.RabbitMQStatusQueue,
		Prefetch:    cfg.RabbitMQPrefetch,
		WorkerCount: cfg.WorkerCount,
		BaseDelayMs: cfg.RetryBaseDelayMs,
	}, uc.Execute, log)
	fatalOnErr(err, "create consumer")

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("framesift-sampling-service started, consuming messages",
		zap.String("backend", backend))

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	// Shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	consumer.Close()
	log.Info("framesift-sampling-service stopped")
}

// buildSampler picks the sampling backend. The interactive decoder backend is
// only compiled in behind the decoder build tag; without it the service falls
// back to the batch backend with a warning.
func buildSampler(ctx context.Context, cfg *config.Config, log *zap.Logger) (port.FrameSampler, string) {
	if cfg.SamplerBackend == "decoder" {
		if decoder.Available {
			return decoder.NewInteractiveSampler(log), "decoder"
		}
		log.Warn("decoder backend requested but not compiled in, falling back to batch")
	}
	s := ffmpeg.NewBatchSampler(log)
	fatalOnErr(s.VerifyInstalled(ctx), "verify ffmpeg installation")
	return s, "batch"
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
