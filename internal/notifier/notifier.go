package notifier

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/scamwatch/reportbot/internal/logger"
	"github.com/scamwatch/reportbot/internal/models"
	"github.com/scamwatch/reportbot/internal/publisher"
)

// Messenger delivers a plain text message to a chat.
// This allows mocking in tests.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// ReportBacklog is the slice of the reports repository the notifier needs.
type ReportBacklog interface {
	ListUnnotified(ctx context.Context) ([]models.Report, error)
	MarkNotified(ctx context.Context, id string) error
}

// StatusNotifier periodically tells submitters about status changes on
// their reports. Delivery is at-least-once: the notified flag is set only
// after a successful send, so a failed send is retried on the next cycle.
type StatusNotifier struct {
	backlog   ReportBacklog
	messenger Messenger
	events    publisher.EventPublisher
	interval  time.Duration
	log       *logger.Logger
}

// NewStatusNotifier creates a new StatusNotifier.
func NewStatusNotifier(
	backlog ReportBacklog,
	messenger Messenger,
	events publisher.EventPublisher,
	interval time.Duration,
	log *logger.Logger,
) *StatusNotifier {
	return &StatusNotifier{
		backlog:   backlog,
		messenger: messenger,
		events:    events,
		interval:  interval,
		log:       log,
	}
}

// Run scans on a fixed interval until the context is cancelled.
func (n *StatusNotifier) Run(ctx context.Context) {
	n.log.Info().Dur("interval", n.interval).Msg("notifier: started")

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			n.log.Info().Msg("notifier: stopped")
			return
		case <-ticker.C:
			if err := n.runOnce(ctx); err != nil {
				n.log.Error().Err(err).Msg("notifier: scan failed")
			}
		}
	}
}

// runOnce performs a single backlog scan.
func (n *StatusNotifier) runOnce(ctx context.Context) error {
	reports, err := n.backlog.ListUnnotified(ctx)
	if err != nil {
		return fmt.Errorf("list unnotified: %w", err)
	}

	for i := range reports {
		report := &reports[i]
		if err := n.messenger.SendText(ctx, report.SubmitterID, statusMessage(report)); err != nil {
			// flag stays unset, the next cycle retries
			n.log.Warn().Err(err).Str("report_id", report.ID).
				Int64("submitter_id", report.SubmitterID).
				Msg("notifier: send failed")
			continue
		}
		if err := n.backlog.MarkNotified(ctx, report.ID); err != nil {
			n.log.Error().Err(err).Str("report_id", report.ID).Msg("notifier: mark failed")
			continue
		}
		if err := n.events.Publish(ctx, publisher.SubjectNotified, report); err != nil {
			n.log.Warn().Err(err).Str("report_id", report.ID).Msg("notifier: publish failed")
		}
		n.log.Info().Str("report_id", report.ID).Str("status", string(report.Status)).
			Msg("notifier: submitter notified")
	}
	return nil
}

// statusMessage renders the summary sent to a submitter.
func statusMessage(r *models.Report) string {
	text := fmt.Sprintf(
		"ℹ️ Your report <b>#%s</b> about %s is now <b>%s</b>.",
		r.ID, html.EscapeString(r.AccusedHandle), r.Status,
	)
	if r.Annotation != nil && *r.Annotation != "" {
		text += fmt.Sprintf("\n\n<b>Staff note:</b> %s", html.EscapeString(*r.Annotation))
	}
	return text
}
