package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/scamwatch/reportbot/internal/logger"
	"github.com/scamwatch/reportbot/internal/models"
	"github.com/scamwatch/reportbot/internal/telegram"
)

// relay retry policy: bounded attempts with exponential backoff
const (
	relayAttempts = 3
	relayBaseWait = time.Second
)

// Relay forwards completed reports to the staff group and channel.
type Relay struct {
	api     API
	limiter *telegram.RateLimiter
	group   int64
	channel int64
	log     *logger.Logger
}

// NewRelay creates a relay for the two staff destinations.
// A zero destination id disables that destination.
func NewRelay(api API, group, channel int64) *Relay {
	return &Relay{
		api:     api,
		limiter: telegram.DefaultRateLimiter(),
		group:   group,
		channel: channel,
		log:     logger.Get(),
	}
}

// SendReport delivers the report photo and summary to both destinations.
// Each destination is retried independently; a destination that stays
// down is reported in the returned error but does not undo anything.
func (r *Relay) SendReport(ctx context.Context, report *models.Report) error {
	caption := staffCaption(report)

	var errs []error
	for _, dest := range []int64{r.group, r.channel} {
		if dest == 0 {
			continue
		}
		if err := r.sendPhoto(ctx, dest, report.ProofFileID, caption); err != nil {
			errs = append(errs, fmt.Errorf("relay to %d: %w", dest, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Relay) sendPhoto(ctx context.Context, chatID int64, fileID, caption string) error {
	var lastErr error
	for attempt := 0; attempt < relayAttempts; attempt++ {
		if attempt > 0 {
			wait := relayBaseWait << (attempt - 1)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}

		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(fileID))
		photo.Caption = caption
		photo.ParseMode = tgbotapi.ModeHTML

		_, lastErr = r.api.Send(photo)
		if lastErr == nil {
			return nil
		}

		r.limiter.ObserveError(lastErr)
		r.log.Warn().Err(lastErr).Int64("chat_id", chatID).Int("attempt", attempt+1).
			Msg("relay: send failed")
	}
	return lastErr
}

// staffCaption renders the report summary sent to staff destinations.
func staffCaption(report *models.Report) string {
	return fmt.Sprintf(
		"<b>New Fraud Report Received</b>\n\n"+
			"<b>Report:</b> #%s\n"+
			"<b>User:</b> %s | ID: %d\n"+
			"<b>Accused:</b> %s\n"+
			"<b>Details:</b> %s\n"+
			"<b>Contact:</b> %s",
		report.ID,
		html.EscapeString(report.SubmitterName),
		report.SubmitterID,
		html.EscapeString(report.AccusedHandle),
		html.EscapeString(report.Description),
		html.EscapeString(report.Contact),
	)
}
