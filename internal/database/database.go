// package database provides gorm connection management.
package database

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"github.com/scamwatch/reportbot/internal/models"
)

// Open connects to the configured store. A postgres:// URL selects the
// postgres driver; anything else is treated as a sqlite file path.
func Open(databaseURL string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		dialector = postgres.Open(databaseURL)
	} else {
		dialector = sqlite.Open(databaseURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	return db, nil
}

// Migrate creates or updates the schema for all persisted models.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Report{},
		&models.DailyQuota{},
		&models.AccusedHandle{},
		&models.ScheduledJob{},
		&models.SessionUpload{},
	); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
