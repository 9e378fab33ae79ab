package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/scamwatch/reportbot/internal/models"
)

// Stats contains aggregated report counts for the ops endpoint and the
// admin /stats command.
type Stats struct {
	Total         int64 `json:"total"`
	Pending       int64 `json:"pending"`
	UnderReview   int64 `json:"under_review"`
	Resolved      int64 `json:"resolved"`
	Today         int64 `json:"today"`
	NotifyBacklog int64 `json:"notify_backlog"`
}

// StatsRepository provides access to aggregated report statistics.
type StatsRepository struct {
	db *gorm.DB
}

// NewStatsRepository creates a new StatsRepository.
func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// GetStats retrieves aggregated report counts.
func (r *StatsRepository) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	if err := r.db.WithContext(ctx).Model(&models.Report{}).Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("count total: %w", err)
	}

	byStatus := []struct {
		status models.ReportStatus
		dst    *int64
	}{
		{models.StatusPending, &stats.Pending},
		{models.StatusUnderReview, &stats.UnderReview},
		{models.StatusResolved, &stats.Resolved},
	}
	for _, s := range byStatus {
		err := r.db.WithContext(ctx).Model(&models.Report{}).
			Where("status = ?", s.status).
			Count(s.dst).Error
		if err != nil {
			return nil, fmt.Errorf("count status %s: %w", s.status, err)
		}
	}

	// local midnight so "today" agrees with the quota day key
	y, m, d := time.Now().Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.Local)
	err := r.db.WithContext(ctx).Model(&models.Report{}).
		Where("created_at >= ?", midnight).
		Count(&stats.Today).Error
	if err != nil {
		return nil, fmt.Errorf("count today: %w", err)
	}

	err = r.db.WithContext(ctx).Model(&models.Report{}).
		Where("status <> ? AND notified = ?", models.StatusPending, false).
		Count(&stats.NotifyBacklog).Error
	if err != nil {
		return nil, fmt.Errorf("count notify backlog: %w", err)
	}

	return stats, nil
}
