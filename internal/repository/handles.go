package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/scamwatch/reportbot/internal/models"
)

// HandlesRepository handles the accused-handle registry.
type HandlesRepository struct {
	db *gorm.DB
}

// NewHandlesRepository creates a new handles repository.
func NewHandlesRepository(db *gorm.DB) *HandlesRepository {
	return &HandlesRepository{db: db}
}

// NormalizeHandle lowercases a handle and strips the @ sigil.
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimPrefix(handle, "@"))
}

// Upsert records that a report named the handle, storing the resolved id
// when resolution succeeded (resolvedID 0 means unresolved).
func (r *HandlesRepository) Upsert(ctx context.Context, handle string, resolvedID int64) error {
	handle = NormalizeHandle(handle)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.AccusedHandle
		err := tx.First(&row, "handle = ?", handle).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row = models.AccusedHandle{
				Handle:      handle,
				ResolvedID:  resolvedID,
				ReportCount: 1,
				CheckedAt:   time.Now(),
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("create handle row: %w", err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("get handle row: %w", err)
		}

		updates := map[string]any{"report_count": gorm.Expr("report_count + 1")}
		if resolvedID != 0 {
			updates["resolved_id"] = resolvedID
		}
		if err := tx.Model(&row).Updates(updates).Error; err != nil {
			return fmt.Errorf("update handle row: %w", err)
		}
		return nil
	})
}

// All returns every registry row. The watcher does a full scan each cycle.
func (r *HandlesRepository) All(ctx context.Context) ([]models.AccusedHandle, error) {
	var rows []models.AccusedHandle
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list handles: %w", err)
	}
	return rows, nil
}

// MarkChecked records the outcome of a resolution pass.
func (r *HandlesRepository) MarkChecked(ctx context.Context, handle string, resolvedID int64) error {
	res := r.db.WithContext(ctx).Model(&models.AccusedHandle{}).
		Where("handle = ?", NormalizeHandle(handle)).
		Updates(map[string]any{
			"resolved_id": resolvedID,
			"checked_at":  time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("mark handle checked: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
