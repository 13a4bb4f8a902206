package postgres

import (
	"context"
	"fmt"

	"github.com/framesift/framesift-sampling-service/internal/domain/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	query := `
		INSERT INTO sampling_jobs (
			id, user_id, video_key, bundle_key, status, backend,
			frames_planned, frame_count, file_size, video_duration,
			drift_mean_sec, drift_max_sec, analysis,
			attempt, max_attempts, error_message,
			created_at, updated_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`

	_, err := r.pool.Exec(ctx, query,
		job.ID, job.UserID, job.VideoKey, job.BundleKey, string(job.Status), job.Backend,
		job.FramesPlanned, job.FrameCount, job.FileSize, job.VideoDuration,
		job.DriftMeanSec, job.DriftMaxSec, job.Analysis,
		job.Attempt, job.MaxAttempts, job.ErrorMessage,
		job.CreatedAt, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *JobRepository) Update(ctx context.Context, job *entity.Job) error {
	query := `
		UPDATE sampling_jobs SET
			status=$2, bundle_key=$3, backend=$4, frames_planned=$5,
			frame_count=$6, video_duration=$7, drift_mean_sec=$8,
			drift_max_sec=$9, analysis=$10, attempt=$11,
			error_message=$12, updated_at=$13, completed_at=$14
		WHERE id=$1`

	_, err := r.pool.Exec(ctx, query,
		job.ID, string(job.Status), job.BundleKey, job.Backend, job.FramesPlanned,
		job.FrameCount, job.VideoDuration, job.DriftMeanSec,
		job.DriftMaxSec, job.Analysis, job.Attempt,
		job.ErrorMessage, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

func (r *JobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	query := `
		SELECT id, user_id, video_key, bundle_key, status, backend,
			frames_planned, frame_count, file_size, video_duration,
			drift_mean_sec, drift_max_sec, analysis,
			attempt, max_attempts, error_message,
			created_at, updated_at, completed_at
		FROM sampling_jobs WHERE id=$1`

	job := &entity.Job{}
	var status string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.UserID, &job.VideoKey, &job.BundleKey, &status, &job.Backend,
		&job.FramesPlanned, &job.FrameCount, &job.FileSize, &job.VideoDuration,
		&job.DriftMeanSec, &job.DriftMaxSec, &job.Analysis,
		&job.Attempt, &job.MaxAttempts, &job.ErrorMessage,
		&job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("find job by id: %w", err)
	}
	job.Status = entity.JobStatus(status)
	return job, nil
}
