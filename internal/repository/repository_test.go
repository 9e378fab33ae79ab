package repository

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"github.com/scamwatch/reportbot/internal/models"
)

// testDB opens a throwaway sqlite database with the full schema.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	err = db.AutoMigrate(
		&models.Report{},
		&models.DailyQuota{},
		&models.AccusedHandle{},
		&models.ScheduledJob{},
		&models.SessionUpload{},
	)
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}
