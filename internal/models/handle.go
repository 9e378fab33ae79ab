package models

import "time"

// AccusedHandle maps an accused party's handle to their resolved numeric
// identity. A background watcher re-resolves rows periodically to detect
// handle changes.
type AccusedHandle struct {
	// Handle is stored lowercased without the @ sigil.
	Handle      string `gorm:"primaryKey;size:32"`
	ResolvedID  int64  `gorm:"index"`
	ReportCount int

	CheckedAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
