package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "framesift_jobs_processed_total",
		Help: "Total number of sampling jobs processed, by status",
	}, []string{"status"})

	JobProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "framesift_job_processing_duration_seconds",
		Help:    "Duration of the sampling pipeline, by stage",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	FramesSampledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "framesift_frames_sampled_total",
		Help: "Total number of frames sampled across all jobs, by backend",
	}, []string{"backend"})

	FramesSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "framesift_frames_skipped_total",
		Help: "Total number of planned captures skipped, by reason",
	}, []string{"reason"})

	SeekDriftWarnings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "framesift_seek_drift_warnings_total",
		Help: "Captures whose seek drift exceeded the configured tolerance",
	})

	MetadataTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "framesift_metadata_timeouts_total",
		Help: "Runs that proceeded without source metadata after the load wait",
	})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "framesift_active_workers",
		Help: "Number of currently active workers processing jobs",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "framesift_retry_total",
		Help: "Total number of retries",
	}, []string{"attempt"})
)
