package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/scamwatch/reportbot/internal/models"
)

// QuotaRepository handles per-submitter daily report counters.
// Rows are keyed by (submitter, day); a date change simply keys into a
// fresh zeroed row, which is how the reset-on-new-day behavior works.
type QuotaRepository struct {
	db *gorm.DB

	// now is injectable for tests
	now func() time.Time
}

// NewQuotaRepository creates a new quota repository.
func NewQuotaRepository(db *gorm.DB) *QuotaRepository {
	return &QuotaRepository{db: db, now: time.Now}
}

// Allow reports whether the submitter is below the daily ceiling.
func (r *QuotaRepository) Allow(ctx context.Context, submitterID int64, limit int) (bool, error) {
	count, err := r.Count(ctx, submitterID)
	if err != nil {
		return false, err
	}
	return count < limit, nil
}

// Count returns today's counter value for the submitter.
func (r *QuotaRepository) Count(ctx context.Context, submitterID int64) (int, error) {
	var q models.DailyQuota
	err := r.db.WithContext(ctx).
		Where("submitter_id = ? AND day = ?", submitterID, models.DayKey(r.now())).
		First(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get quota: %w", err)
	}
	return q.Count, nil
}

// Record increments today's counter, creating a zeroed row first if absent.
// Callers must have seen Allow return true beforehand; Reserve does both
// in one transaction and is what the confirm path uses.
func (r *QuotaRepository) Record(ctx context.Context, submitterID int64) error {
	day := models.DayKey(r.now())
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureQuotaRow(tx, submitterID, day); err != nil {
			return err
		}
		err := tx.Model(&models.DailyQuota{}).
			Where("submitter_id = ? AND day = ?", submitterID, day).
			Update("count", gorm.Expr("count + 1")).Error
		if err != nil {
			return fmt.Errorf("increment quota: %w", err)
		}
		return nil
	})
}

// Reserve performs the check-and-increment atomically. It returns
// ErrQuotaExceeded when the ceiling has been reached.
func (r *QuotaRepository) Reserve(ctx context.Context, submitterID int64, limit int) error {
	day := models.DayKey(r.now())
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return reserveQuota(tx, submitterID, day, limit)
	})
}

// reserveQuota increments the counter only while it is below limit.
// The guarded UPDATE closes the check-then-increment race between
// overlapping handler invocations from the same submitter.
func reserveQuota(tx *gorm.DB, submitterID int64, day string, limit int) error {
	if err := ensureQuotaRow(tx, submitterID, day); err != nil {
		return err
	}

	res := tx.Model(&models.DailyQuota{}).
		Where("submitter_id = ? AND day = ? AND count < ?", submitterID, day, limit).
		Update("count", gorm.Expr("count + 1"))
	if res.Error != nil {
		return fmt.Errorf("reserve quota: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrQuotaExceeded
	}
	return nil
}

func ensureQuotaRow(tx *gorm.DB, submitterID int64, day string) error {
	var q models.DailyQuota
	err := tx.Where("submitter_id = ? AND day = ?", submitterID, day).First(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		q = models.DailyQuota{SubmitterID: submitterID, Day: day}
		if err := tx.Create(&q).Error; err != nil {
			return fmt.Errorf("create quota row: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("get quota row: %w", err)
	}
	return nil
}
