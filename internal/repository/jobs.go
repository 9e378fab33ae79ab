package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scamwatch/reportbot/internal/models"
)

// JobsRepository handles scheduled_jobs table operations.
type JobsRepository struct {
	db *gorm.DB
}

// NewJobsRepository creates a new jobs repository.
func NewJobsRepository(db *gorm.DB) *JobsRepository {
	return &JobsRepository{db: db}
}

// Create persists a new scheduled job.
func (r *JobsRepository) Create(ctx context.Context, job *models.ScheduledJob) error {
	if err := job.Validate(); err != nil {
		return err
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// DueOneShots returns one-shot jobs whose run time has passed.
func (r *JobsRepository) DueOneShots(ctx context.Context, now time.Time) ([]models.ScheduledJob, error) {
	var jobs []models.ScheduledJob
	err := r.db.WithContext(ctx).
		Where("kind = ? AND run_at <= ?", models.JobOneShot, now).
		Order("run_at ASC").
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("list due jobs: %w", err)
	}
	return jobs, nil
}

// Recurring returns all recurring jobs.
func (r *JobsRepository) Recurring(ctx context.Context) ([]models.ScheduledJob, error) {
	var jobs []models.ScheduledJob
	err := r.db.WithContext(ctx).
		Where("kind = ?", models.JobRecurring).
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("list recurring jobs: %w", err)
	}
	return jobs, nil
}

// Delete removes a job, typically after a one-shot fired successfully.
func (r *JobsRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.ScheduledJob{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete job: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
