// Package models defines shared data types for the application.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ReportStatus represents the lifecycle state of a fraud report.
type ReportStatus string

// ReportStatus constants define the possible states of a stored report.
const (
	StatusPending     ReportStatus = "pending"
	StatusUnderReview ReportStatus = "under_review"
	StatusResolved    ReportStatus = "resolved"
)

// reportIDLen is the length of the truncated hex report identifier.
const reportIDLen = 12

// Report represents one persisted fraud submission.
type Report struct {
	ID            string `gorm:"primaryKey;size:16"`
	SubmitterID   int64  `gorm:"index"`
	SubmitterName string

	// accused party, resolved best-effort
	AccusedHandle string `gorm:"index"`
	AccusedID     *int64

	Description string `gorm:"type:text"`
	ProofFileID string
	Contact     string

	Status     ReportStatus `gorm:"index;default:pending"`
	Annotation *string
	Notified   bool `gorm:"index"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewReportID derives the report identifier from submitter id and
// submission time. The hash is truncated, so the id stays short enough
// for callback payloads while remaining unique in practice.
func NewReportID(submitterID int64, ts time.Time) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%d:%d", submitterID, ts.UnixNano())))
	return hex.EncodeToString(h[:])[:reportIDLen]
}

// IsValidStatus checks if report status is valid.
func (r *Report) IsValidStatus() bool {
	switch r.Status {
	case StatusPending, StatusUnderReview, StatusResolved:
		return true
	}
	return false
}

// IsOpen reports whether the report still needs admin attention.
func (r *Report) IsOpen() bool {
	return r.Status == StatusPending || r.Status == StatusUnderReview
}

// CanTransition reports whether moving to next is a legal forward step.
// Transitions are monotonic along pending -> under_review -> resolved.
func (r *Report) CanTransition(next ReportStatus) bool {
	rank := map[ReportStatus]int{
		StatusPending:     0,
		StatusUnderReview: 1,
		StatusResolved:    2,
	}
	cur, ok := rank[r.Status]
	if !ok {
		return false
	}
	nxt, ok := rank[next]
	if !ok {
		return false
	}
	return nxt > cur
}
