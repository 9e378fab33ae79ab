// Package repository provides table-level data access over gorm.
package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/scamwatch/reportbot/internal/models"
)

// repository errors
var (
	ErrNotFound      = errors.New("record not found")
	ErrPendingExists = errors.New("submitter already has a pending report")
	ErrQuotaExceeded = errors.New("daily report limit reached")
	ErrBadTransition = errors.New("illegal status transition")
)

// ReportsRepository handles reports table operations.
type ReportsRepository struct {
	db *gorm.DB
}

// NewReportsRepository creates a new reports repository.
func NewReportsRepository(db *gorm.DB) *ReportsRepository {
	return &ReportsRepository{db: db}
}

// HasPending checks whether the submitter has a pending report outstanding.
func (r *ReportsRepository) HasPending(ctx context.Context, submitterID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Report{}).
		Where("submitter_id = ? AND status = ?", submitterID, models.StatusPending).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count pending reports: %w", err)
	}
	return count > 0, nil
}

// Submit persists a confirmed report. The pending-report guard and the
// daily quota reserve run in the same transaction as the insert, so a
// rapid double-tap on the confirm button cannot produce two rows.
func (r *ReportsRepository) Submit(ctx context.Context, report *models.Report, dailyLimit int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending int64
		if err := tx.Model(&models.Report{}).
			Where("submitter_id = ? AND status = ?", report.SubmitterID, models.StatusPending).
			Count(&pending).Error; err != nil {
			return fmt.Errorf("pending guard: %w", err)
		}
		if pending > 0 {
			return ErrPendingExists
		}

		if err := reserveQuota(tx, report.SubmitterID, models.DayKey(report.CreatedAt), dailyLimit); err != nil {
			return err
		}

		if err := tx.Create(report).Error; err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		return nil
	})
}

// GetByID returns one report by its identifier.
func (r *ReportsRepository) GetByID(ctx context.Context, id string) (*models.Report, error) {
	var report models.Report
	err := r.db.WithContext(ctx).First(&report, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return &report, nil
}

// ListOpen returns reports still awaiting admin action, newest first.
func (r *ReportsRepository) ListOpen(ctx context.Context, limit int) ([]models.Report, error) {
	var reports []models.Report
	err := r.db.WithContext(ctx).
		Where("status IN ?", []models.ReportStatus{models.StatusPending, models.StatusUnderReview}).
		Order("created_at DESC").
		Limit(limit).
		Find(&reports).Error
	if err != nil {
		return nil, fmt.Errorf("list open reports: %w", err)
	}
	return reports, nil
}

// UpdateStatus advances a report along the monotonic status order and
// clears the notified flag so the submitter is informed again.
func (r *ReportsRepository) UpdateStatus(ctx context.Context, id string, next models.ReportStatus) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var report models.Report
		err := tx.First(&report, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get report: %w", err)
		}

		if !report.CanTransition(next) {
			return ErrBadTransition
		}

		err = tx.Model(&report).Updates(map[string]any{
			"status":   next,
			"notified": false,
		}).Error
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		return nil
	})
}

// Annotate attaches a staff note to the report.
func (r *ReportsRepository) Annotate(ctx context.Context, id string, note string) error {
	res := r.db.WithContext(ctx).Model(&models.Report{}).
		Where("id = ?", id).
		Update("annotation", note)
	if res.Error != nil {
		return fmt.Errorf("annotate report: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUnnotified returns reports whose status changed but whose submitter
// has not yet been told.
func (r *ReportsRepository) ListUnnotified(ctx context.Context) ([]models.Report, error) {
	var reports []models.Report
	err := r.db.WithContext(ctx).
		Where("status <> ? AND notified = ?", models.StatusPending, false).
		Order("updated_at ASC").
		Find(&reports).Error
	if err != nil {
		return nil, fmt.Errorf("list unnotified reports: %w", err)
	}
	return reports, nil
}

// MarkNotified sets the notified flag after a successful send.
func (r *ReportsRepository) MarkNotified(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&models.Report{}).
		Where("id = ?", id).
		Update("notified", true)
	if res.Error != nil {
		return fmt.Errorf("mark notified: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Submitters returns the distinct submitter ids of all stored reports.
func (r *ReportsRepository) Submitters(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&models.Report{}).
		Distinct("submitter_id").
		Pluck("submitter_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list submitters: %w", err)
	}
	return ids, nil
}
