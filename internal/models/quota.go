package models

import "time"

// DayKey formats t as the quota day key.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// DailyQuota counts reports a submitter confirmed on a given day.
// The row is reset implicitly: a lookup with a different day key ignores it.
type DailyQuota struct {
	SubmitterID int64  `gorm:"primaryKey;autoIncrement:false"`
	Day         string `gorm:"primaryKey;size:10"`
	Count       int

	UpdatedAt time.Time
}
