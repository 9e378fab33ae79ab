package models

import (
	"time"

	"github.com/google/uuid"
)

// JobKind represents the scheduling mode of a message job.
type JobKind string

// JobKind constants define the supported scheduling modes.
const (
	JobOneShot   JobKind = "one_shot"
	JobRecurring JobKind = "recurring"
)

// JobInterval represents the fixed repeat interval of a recurring job.
type JobInterval string

// JobInterval constants define the enumerated recurring intervals.
const (
	IntervalHourly  JobInterval = "hourly"
	IntervalEvery6h JobInterval = "every_6h"
	IntervalDaily   JobInterval = "daily"
	IntervalWeekly  JobInterval = "weekly"
)

// Duration returns the wall-clock duration of the interval.
// Unknown intervals return 0.
func (i JobInterval) Duration() time.Duration {
	switch i {
	case IntervalHourly:
		return time.Hour
	case IntervalEvery6h:
		return 6 * time.Hour
	case IntervalDaily:
		return 24 * time.Hour
	case IntervalWeekly:
		return 7 * 24 * time.Hour
	}
	return 0
}

// ScheduledJob represents a persisted message send job for the
// multi-account scheduler. One-shot jobs carry an absolute RunAt and are
// deleted after firing; recurring jobs carry an Interval and are
// re-registered with the in-process scheduler at startup.
type ScheduledJob struct {
	ID        uuid.UUID `gorm:"primaryKey;type:uuid"`
	Recipient string
	Body      string `gorm:"type:text"`

	Kind     JobKind
	RunAt    *time.Time  `gorm:"index"`
	Interval JobInterval `gorm:"size:16"`

	CreatedAt time.Time
}

// Validate checks that the job's kind and schedule fields agree.
func (j *ScheduledJob) Validate() error {
	switch j.Kind {
	case JobOneShot:
		if j.RunAt == nil {
			return ErrJobMissingRunAt
		}
	case JobRecurring:
		if j.Interval.Duration() == 0 {
			return ErrJobBadInterval
		}
	default:
		return ErrJobBadKind
	}
	if j.Recipient == "" {
		return ErrJobMissingRecipient
	}
	return nil
}
