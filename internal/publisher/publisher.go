// Package publisher emits report lifecycle events to NATS JetStream.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/scamwatch/reportbot/internal/models"
)

// subjects for report lifecycle events
const (
	SubjectReportCreated = "reports.created"
	SubjectStatusChanged = "reports.status_changed"
	SubjectNotified      = "reports.notified"
)

// ReportEvent is the payload published for every lifecycle event.
type ReportEvent struct {
	ReportID    string              `json:"report_id"`
	SubmitterID int64               `json:"submitter_id"`
	Status      models.ReportStatus `json:"status"`
	At          time.Time           `json:"at"`
}

// EventPublisher emits lifecycle events. Implementations must be safe to
// call from handlers; failures are logged by callers, never fatal.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, report *models.Report) error
}

// JetStreamPublisher publishes to a NATS JetStream stream.
type JetStreamPublisher struct {
	js jetstream.JetStream
}

// Connect dials NATS and makes sure the REPORTS stream exists.
func Connect(ctx context.Context, natsURL string) (*JetStreamPublisher, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     "REPORTS",
		Subjects: []string{"reports.>"},
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ensure REPORTS stream: %w", err)
	}

	return &JetStreamPublisher{js: js}, nil
}

// Publish emits one event for the report.
func (p *JetStreamPublisher) Publish(ctx context.Context, subject string, report *models.Report) error {
	payload, err := json.Marshal(ReportEvent{
		ReportID:    report.ID,
		SubmitterID: report.SubmitterID,
		Status:      report.Status,
		At:          time.Now(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if _, err := p.js.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// Noop is used when no NATS URL is configured; publishing is disabled
// without branching at call sites.
type Noop struct{}

// Publish discards the event.
func (Noop) Publish(ctx context.Context, subject string, report *models.Report) error {
	return nil
}
