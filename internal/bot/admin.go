package bot

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/scamwatch/reportbot/internal/models"
	"github.com/scamwatch/reportbot/internal/publisher"
	"github.com/scamwatch/reportbot/internal/repository"
)

// reportListLimit caps the /reports listing. No cursoring.
const reportListLimit = 10

// adminStore tracks which report, if any, each admin is annotating.
// Annotation entry is a one-state sub-machine: prompt, accept bounded
// text, persist, return to detail.
type adminStore struct {
	mu         sync.Mutex
	annotation map[int64]string // admin id -> report id
}

func newAdminStore() *adminStore {
	return &adminStore{annotation: make(map[int64]string)}
}

func (a *adminStore) annotating(adminID int64) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.annotation[adminID]
}

func (a *adminStore) startAnnotation(adminID int64, reportID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.annotation[adminID] = reportID
}

func (a *adminStore) clearAnnotation(adminID int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.annotation, adminID)
}

// handleReportsCmd lists reports awaiting action.
// Non-admins are ignored without a reply.
func (b *Bot) handleReportsCmd(ctx context.Context, msg *tgbotapi.Message) {
	if !b.cfg.IsAdmin(msg.From.ID) {
		return
	}

	reports, err := b.reports.ListOpen(ctx, reportListLimit)
	if err != nil {
		b.log.Error().Err(err).Msg("bot: list reports failed")
		b.sendText(msg.Chat.ID, "Failed to load reports.")
		return
	}
	if len(reports) == 0 {
		b.sendText(msg.Chat.ID, "No open reports. 🎉")
		return
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("Open reports (%d):", len(reports)))
	reply.ReplyMarkup = reportListKeyboard(reports)
	if _, err := b.api.Send(reply); err != nil {
		b.log.Error().Err(err).Msg("bot: report list failed")
	}
}

// handleReviewSelect shows one report's full detail, proof included.
func (b *Bot) handleReviewSelect(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if !b.cfg.IsAdmin(cb.From.ID) {
		return
	}

	id := strings.TrimPrefix(cb.Data, cbReviewPrefix)
	report, err := b.reports.GetByID(ctx, id)
	if err != nil {
		b.editText(cb, "Report not found. It may have been processed already.")
		return
	}

	photo := tgbotapi.NewPhoto(cb.Message.Chat.ID, tgbotapi.FileID(report.ProofFileID))
	photo.Caption = reportDetail(report)
	photo.ParseMode = tgbotapi.ModeHTML
	photo.ReplyMarkup = reviewKeyboard(report.ID)
	if _, err := b.api.Send(photo); err != nil {
		b.log.Error().Err(err).Str("report_id", id).Msg("bot: detail failed")
	}
}

// handleStatusChange applies a forward status transition.
func (b *Bot) handleStatusChange(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if !b.cfg.IsAdmin(cb.From.ID) {
		return
	}

	// payload is st:<id>:<status>
	payload := strings.TrimPrefix(cb.Data, cbStatusPrefix)
	sep := strings.LastIndex(payload, ":")
	if sep < 0 {
		return
	}
	id, next := payload[:sep], models.ReportStatus(payload[sep+1:])

	err := b.reports.UpdateStatus(ctx, id, next)
	switch {
	case err == repository.ErrNotFound:
		b.sendText(cb.Message.Chat.ID, "Report not found.")
		return
	case err == repository.ErrBadTransition:
		b.sendText(cb.Message.Chat.ID, fmt.Sprintf("Report #%s cannot go back to %s.", id, next))
		return
	case err != nil:
		b.log.Error().Err(err).Str("report_id", id).Msg("bot: status change failed")
		b.sendText(cb.Message.Chat.ID, "Failed to update status.")
		return
	}

	if report, err := b.reports.GetByID(ctx, id); err == nil {
		if err := b.events.Publish(ctx, publisher.SubjectStatusChanged, report); err != nil {
			b.log.Error().Err(err).Str("report_id", id).Msg("bot: publish failed")
		}
	}

	b.log.Info().Str("report_id", id).Str("status", string(next)).
		Int64("admin_id", cb.From.ID).Msg("bot: report status changed")
	b.sendText(cb.Message.Chat.ID, fmt.Sprintf("Report #%s is now <b>%s</b>. The submitter will be notified.", id, next))
}

// handleAnnotateStart puts the admin into the annotation sub-machine.
func (b *Bot) handleAnnotateStart(cb *tgbotapi.CallbackQuery) {
	if !b.cfg.IsAdmin(cb.From.ID) {
		return
	}

	id := strings.TrimPrefix(cb.Data, cbAnnotatePrefix)
	b.admin.startAnnotation(cb.From.ID, id)
	b.sendText(cb.Message.Chat.ID, fmt.Sprintf(
		"Send the annotation for report #%s (up to %d characters).",
		id, b.cfg.MaxAnnotationLen,
	))
}

// handleAnnotationInput accepts the bounded annotation text.
func (b *Bot) handleAnnotationInput(ctx context.Context, msg *tgbotapi.Message) {
	adminID := msg.From.ID
	reportID := b.admin.annotating(adminID)

	note := strings.TrimSpace(msg.Text)
	if note == "" || len([]rune(note)) > b.cfg.MaxAnnotationLen {
		b.sendText(msg.Chat.ID, fmt.Sprintf(
			"⚠️ The annotation must be 1-%d characters. Try again.",
			b.cfg.MaxAnnotationLen,
		))
		return
	}

	if err := b.reports.Annotate(ctx, reportID, note); err != nil {
		b.admin.clearAnnotation(adminID)
		b.log.Error().Err(err).Str("report_id", reportID).Msg("bot: annotate failed")
		b.sendText(msg.Chat.ID, "Failed to save the annotation; the report may be gone.")
		return
	}
	b.admin.clearAnnotation(adminID)

	// return to the detail view
	report, err := b.reports.GetByID(ctx, reportID)
	if err != nil {
		b.sendText(msg.Chat.ID, "Annotation saved.")
		return
	}
	photo := tgbotapi.NewPhoto(msg.Chat.ID, tgbotapi.FileID(report.ProofFileID))
	photo.Caption = reportDetail(report)
	photo.ParseMode = tgbotapi.ModeHTML
	photo.ReplyMarkup = reviewKeyboard(report.ID)
	if _, err := b.api.Send(photo); err != nil {
		b.log.Error().Err(err).Msg("bot: detail after annotate failed")
	}
}

// handleStatsCmd shows aggregate report counts.
func (b *Bot) handleStatsCmd(ctx context.Context, msg *tgbotapi.Message) {
	if !b.cfg.IsAdmin(msg.From.ID) {
		return
	}

	stats, err := b.stats.GetStats(ctx)
	if err != nil {
		b.log.Error().Err(err).Msg("bot: stats failed")
		b.sendText(msg.Chat.ID, "Failed to load statistics.")
		return
	}

	b.sendText(msg.Chat.ID, fmt.Sprintf(
		"<b>Report statistics</b>\n\n"+
			"Total: %d\n"+
			"Pending: %d\n"+
			"Under review: %d\n"+
			"Resolved: %d\n"+
			"Today: %d\n"+
			"Awaiting notification: %d",
		stats.Total, stats.Pending, stats.UnderReview,
		stats.Resolved, stats.Today, stats.NotifyBacklog,
	))
}

// handleBroadcastCmd sends a message to every known submitter.
func (b *Bot) handleBroadcastCmd(ctx context.Context, msg *tgbotapi.Message) {
	if !b.cfg.IsAdmin(msg.From.ID) {
		return
	}

	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		b.sendText(msg.Chat.ID, "Usage: /broadcast <message>")
		return
	}

	ids, err := b.reports.Submitters(ctx)
	if err != nil {
		b.log.Error().Err(err).Msg("bot: broadcast listing failed")
		b.sendText(msg.Chat.ID, "Failed to load submitters.")
		return
	}

	sent := 0
	for _, id := range ids {
		if err := b.relay.limiter.Wait(ctx); err != nil {
			break
		}
		if err := b.SendText(ctx, id, text); err != nil {
			b.log.Warn().Err(err).Int64("user_id", id).Msg("bot: broadcast send failed")
			continue
		}
		sent++
	}
	b.sendText(msg.Chat.ID, fmt.Sprintf("Broadcast delivered to %d of %d submitters.", sent, len(ids)))
}

// reportDetail renders the full admin view of one report.
func reportDetail(r *models.Report) string {
	annotation := "—"
	if r.Annotation != nil {
		annotation = html.EscapeString(*r.Annotation)
	}
	accused := html.EscapeString(r.AccusedHandle)
	if r.AccusedID != nil {
		accused = fmt.Sprintf("%s (id %d)", accused, *r.AccusedID)
	}

	return fmt.Sprintf(
		"<b>Report #%s</b>\n\n"+
			"<b>Status:</b> %s\n"+
			"<b>User:</b> %s | ID: %d\n"+
			"<b>Accused:</b> %s\n"+
			"<b>Details:</b> %s\n"+
			"<b>Contact:</b> %s\n"+
			"<b>Annotation:</b> %s\n"+
			"<b>Filed:</b> %s",
		r.ID,
		r.Status,
		html.EscapeString(r.SubmitterName), r.SubmitterID,
		accused,
		html.EscapeString(r.Description),
		html.EscapeString(r.Contact),
		annotation,
		r.CreatedAt.Format("2006-01-02 15:04"),
	)
}
