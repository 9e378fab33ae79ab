package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/scamwatch/reportbot/internal/captcha"
	"github.com/scamwatch/reportbot/internal/models"
	"github.com/scamwatch/reportbot/internal/publisher"
	"github.com/scamwatch/reportbot/internal/repository"
)

// resolveTimeout bounds the best-effort handle resolution so a slow
// MTProto call cannot stall the conversation.
const resolveTimeout = 5 * time.Second

func (b *Bot) handleStart(msg *tgbotapi.Message) {
	reply := tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf(
		"Welcome, <b>%s</b>!\n\nUse the button below to report a fraud.",
		html.EscapeString(displayName(msg.From)),
	))
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyMarkup = startKeyboard()
	if _, err := b.api.Send(reply); err != nil {
		b.log.Error().Err(err).Msg("bot: greeting failed")
	}
}

// handleReportStart runs the entry guards and opens a draft.
func (b *Bot) handleReportStart(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	userID := cb.From.ID

	allowed, err := b.quota.Allow(ctx, userID, b.cfg.DailyLimit)
	if err != nil {
		b.log.Error().Err(err).Int64("user_id", userID).Msg("bot: quota check failed")
		b.editText(cb, "Something went wrong. Please try again later.")
		return
	}
	if !allowed {
		b.editText(cb, "⚠️ You've reached today's report limit. Please try again tomorrow.")
		return
	}

	pending, err := b.reports.HasPending(ctx, userID)
	if err != nil {
		b.log.Error().Err(err).Int64("user_id", userID).Msg("bot: pending check failed")
		b.editText(cb, "Something went wrong. Please try again later.")
		return
	}
	if pending {
		b.editText(cb, "⚠️ You already have a report pending review. Please wait for it to be processed.")
		return
	}

	ch := captcha.New()
	b.sessions.Put(userID, &Session{
		State:        StateCaptcha,
		Challenge:    ch,
		AttemptsLeft: b.cfg.CaptchaAttempts,
	})
	b.editText(cb, fmt.Sprintf("Please solve this CAPTCHA to continue:\n<b>%s</b>", ch.Question))
}

// advance routes a message to the handler of the session's current state.
func (b *Bot) advance(ctx context.Context, msg *tgbotapi.Message, sess *Session) {
	switch sess.State {
	case StateCaptcha:
		b.stepCaptcha(msg, sess)
	case StateAccusedHandle:
		b.stepAccusedHandle(ctx, msg, sess)
	case StateDescription:
		b.stepDescription(msg, sess)
	case StateProof:
		b.stepProof(msg, sess)
	case StateContact:
		b.stepContact(msg, sess)
	case StateConfirm:
		b.sendText(msg.Chat.ID, "Use the buttons on the preview to confirm or cancel.")
	default:
		// unknown state: integrity failure, clear and ask to restart
		b.log.Warn().Int64("user_id", msg.From.ID).Str("state", string(sess.State)).
			Msg("bot: session in unknown state")
		b.sessions.Delete(msg.From.ID)
		b.sendText(msg.Chat.ID, "Your session is no longer valid. Use /start to begin again.")
	}
}

func (b *Bot) stepCaptcha(msg *tgbotapi.Message, sess *Session) {
	if sess.Challenge.Check(msg.Text) {
		sess.State = StateAccusedHandle
		b.sendText(msg.Chat.ID, "✅ CAPTCHA passed. Send the fraudster's handle (for example @username).")
		return
	}

	sess.AttemptsLeft--
	if sess.AttemptsLeft <= 0 {
		b.sessions.Delete(msg.From.ID)
		b.sendText(msg.Chat.ID, "❌ Too many failed attempts. Use /start to begin again.")
		return
	}

	// a failed attempt always gets a fresh challenge
	sess.Challenge = captcha.New()
	b.sendText(msg.Chat.ID, fmt.Sprintf(
		"❌ Incorrect. Try this one (%d attempts left):\n<b>%s</b>",
		sess.AttemptsLeft, sess.Challenge.Question,
	))
}

func (b *Bot) stepAccusedHandle(ctx context.Context, msg *tgbotapi.Message, sess *Session) {
	handle := strings.TrimSpace(msg.Text)
	if err := ValidateHandle(handle); err != nil {
		b.sendText(msg.Chat.ID, "⚠️ That doesn't look like a handle. Send it as @username (5-32 letters, digits or underscores).")
		return
	}

	sess.AccusedHandle = handle

	// resolution is best-effort; failure is not fatal
	rctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()
	if id, err := b.resolver.ResolveHandle(rctx, handle); err != nil {
		b.log.Debug().Err(err).Str("handle", handle).Msg("bot: handle resolution failed")
	} else {
		sess.AccusedID = id
	}

	sess.State = StateDescription
	b.sendText(msg.Chat.ID, fmt.Sprintf(
		"Please describe the fraud you experienced (up to %d characters).",
		b.cfg.MaxDescriptionLen,
	))
}

func (b *Bot) stepDescription(msg *tgbotapi.Message, sess *Session) {
	switch err := ValidateDescription(msg.Text, b.cfg.MaxDescriptionLen); err {
	case nil:
	case ErrDescriptionTooLong:
		b.sendText(msg.Chat.ID, fmt.Sprintf(
			"⚠️ Your description is too long. Please keep it under %d characters.",
			b.cfg.MaxDescriptionLen,
		))
		return
	default:
		b.sendText(msg.Chat.ID, "⚠️ Please describe the fraud in a text message.")
		return
	}

	sess.Description = strings.TrimSpace(msg.Text)
	sess.State = StateProof
	b.sendText(msg.Chat.ID, "Please upload a photo or screenshot as proof of the fraud (JPEG or PNG, up to 10 MB).")
}

func (b *Bot) stepProof(msg *tgbotapi.Message, sess *Session) {
	att := extractAttachment(msg)
	switch err := validateProof(att, b.cfg.MaxProofBytes); err {
	case nil:
	case ErrNoProof:
		b.sendText(msg.Chat.ID, "⚠️ Please send a photo as proof.")
		return
	case ErrProofTooLarge:
		b.sendText(msg.Chat.ID, "⚠️ That image is too large. Please send one under 10 MB.")
		return
	case ErrProofBadType:
		b.sendText(msg.Chat.ID, "⚠️ Only JPEG and PNG images are accepted.")
		return
	default:
		b.sendText(msg.Chat.ID, "⚠️ Please send a photo as proof.")
		return
	}

	sess.ProofFileID = att.fileID
	sess.State = StateContact
	b.sendText(msg.Chat.ID, "Now send your contact info (Telegram @handle or phone number).")
}

func (b *Bot) stepContact(msg *tgbotapi.Message, sess *Session) {
	contact := strings.TrimSpace(msg.Text)
	if err := ValidateContact(contact); err != nil {
		b.sendText(msg.Chat.ID, "⚠️ Send a @handle or a phone number (10-15 digits, optional leading +).")
		return
	}

	sess.Contact = contact
	sess.State = StateConfirm

	preview := fmt.Sprintf(
		"<b>Fraud Report Preview:</b>\n\n"+
			"<b>User:</b> %s\n"+
			"<b>Accused:</b> %s\n"+
			"<b>Details:</b> %s\n"+
			"<b>Contact:</b> %s\n\n"+
			"Click below to confirm and send the report.",
		html.EscapeString(displayName(msg.From)),
		html.EscapeString(sess.AccusedHandle),
		html.EscapeString(sess.Description),
		html.EscapeString(sess.Contact),
	)

	photo := tgbotapi.NewPhoto(msg.Chat.ID, tgbotapi.FileID(sess.ProofFileID))
	photo.Caption = preview
	photo.ParseMode = tgbotapi.ModeHTML
	photo.ReplyMarkup = confirmKeyboard()
	if _, err := b.api.Send(photo); err != nil {
		b.log.Error().Err(err).Msg("bot: preview failed")
		b.sendText(msg.Chat.ID, "Something went wrong rendering the preview. Please try again.")
	}
}

// handleConfirm is the terminal transition: persist, relay, reset.
func (b *Bot) handleConfirm(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	userID := cb.From.ID

	sess := b.sessions.Get(userID)
	if sess == nil || sess.State != StateConfirm {
		b.editText(cb, "Your session has expired. Use /start to begin again.")
		b.sessions.Delete(userID)
		return
	}

	now := time.Now()
	report := &models.Report{
		ID:            models.NewReportID(userID, now),
		SubmitterID:   userID,
		SubmitterName: displayName(cb.From),
		AccusedHandle: sess.AccusedHandle,
		Description:   sess.Description,
		ProofFileID:   sess.ProofFileID,
		Contact:       sess.Contact,
		Status:        models.StatusPending,
		CreatedAt:     now,
	}
	if sess.AccusedID != 0 {
		report.AccusedID = &sess.AccusedID
	}

	err := b.reports.Submit(ctx, report, b.cfg.DailyLimit)
	switch {
	case errors.Is(err, repository.ErrPendingExists):
		b.sessions.Delete(userID)
		b.editText(cb, "⚠️ You already have a report pending review.")
		return
	case errors.Is(err, repository.ErrQuotaExceeded):
		b.sessions.Delete(userID)
		b.editText(cb, "⚠️ You've reached today's report limit. Please try again tomorrow.")
		return
	case err != nil:
		b.log.Error().Err(err).Int64("user_id", userID).Msg("bot: submit failed")
		b.editText(cb, "Something went wrong saving your report. Please try again.")
		return
	}

	b.sessions.Delete(userID)

	if err := b.handles.Upsert(ctx, report.AccusedHandle, sess.AccusedID); err != nil {
		b.log.Error().Err(err).Str("handle", report.AccusedHandle).Msg("bot: handle registry update failed")
	}
	if err := b.events.Publish(ctx, publisher.SubjectReportCreated, report); err != nil {
		b.log.Error().Err(err).Str("report_id", report.ID).Msg("bot: publish failed")
	}

	// relay failure does not roll back the stored report
	if err := b.relay.SendReport(ctx, report); err != nil {
		b.log.Error().Err(err).Str("report_id", report.ID).Msg("bot: staff relay failed")
		b.editText(cb, fmt.Sprintf(
			"✅ Your report <b>#%s</b> has been submitted.\n\n"+
				"⚠️ Forwarding to the review team is delayed; they will still see it.",
			report.ID,
		))
		return
	}

	b.log.Info().Str("report_id", report.ID).Int64("user_id", userID).Msg("bot: report submitted")
	b.editText(cb, fmt.Sprintf(
		"✅ Your report <b>#%s</b> has been submitted. Thank you for helping us fight fraud!",
		report.ID,
	))
}

func (b *Bot) handleCancel(msg *tgbotapi.Message) {
	if b.sessions.Get(msg.From.ID) == nil {
		b.sendText(msg.Chat.ID, "Nothing to cancel. Use /start to begin.")
		return
	}
	b.sessions.Delete(msg.From.ID)
	b.sendText(msg.Chat.ID, "❌ Your report has been cancelled.")
}

func (b *Bot) handleCancelCallback(cb *tgbotapi.CallbackQuery) {
	b.sessions.Delete(cb.From.ID)
	b.editText(cb, "❌ Your report has been cancelled.")
}
