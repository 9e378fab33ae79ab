package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scamwatch/reportbot/internal/models"
)

// UploadsRepository handles stored session uploads and their short-hash index.
type UploadsRepository struct {
	db *gorm.DB
}

// NewUploadsRepository creates a new uploads repository.
func NewUploadsRepository(db *gorm.DB) *UploadsRepository {
	return &UploadsRepository{db: db}
}

// Create stores an upload record, deriving the callback token from its path.
func (r *UploadsRepository) Create(ctx context.Context, up *models.SessionUpload) error {
	if up.ID == uuid.Nil {
		up.ID = uuid.New()
	}
	if up.Token == "" {
		up.Token = models.UploadToken(up.Path)
	}
	if err := r.db.WithContext(ctx).Create(up).Error; err != nil {
		return fmt.Errorf("create upload: %w", err)
	}
	return nil
}

// ByToken resolves a callback token back to the stored upload.
// Token collisions are not handled beyond first match wins.
func (r *UploadsRepository) ByToken(ctx context.Context, token string) (*models.SessionUpload, error) {
	var up models.SessionUpload
	err := r.db.WithContext(ctx).
		Where("token = ?", token).
		Order("created_at ASC").
		First(&up).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get upload by token: %w", err)
	}
	return &up, nil
}

// All returns every stored upload record.
func (r *UploadsRepository) All(ctx context.Context) ([]models.SessionUpload, error) {
	var ups []models.SessionUpload
	if err := r.db.WithContext(ctx).Find(&ups).Error; err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	return ups, nil
}

// DeleteAll removes every upload record and returns the stored paths so
// the caller can unlink the files.
func (r *UploadsRepository) DeleteAll(ctx context.Context) ([]string, error) {
	ups, err := r.All(ctx)
	if err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Where("1 = 1").Delete(&models.SessionUpload{}).Error; err != nil {
		return nil, fmt.Errorf("delete uploads: %w", err)
	}

	paths := make([]string, 0, len(ups))
	for _, up := range ups {
		paths = append(paths, up.Path)
	}
	return paths, nil
}
