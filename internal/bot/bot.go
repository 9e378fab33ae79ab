package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/scamwatch/reportbot/internal/config"
	"github.com/scamwatch/reportbot/internal/logger"
	"github.com/scamwatch/reportbot/internal/publisher"
	"github.com/scamwatch/reportbot/internal/repository"
	"github.com/scamwatch/reportbot/internal/telegram"
)

// API is the subset of the Bot API client the handlers use.
// It exists so tests can swap in a recorder.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot wires the conversation state machine, the admin workflow and the
// staff relay together.
type Bot struct {
	api      API
	cfg      *config.Config
	sessions *SessionStore
	admin    *adminStore

	reports *repository.ReportsRepository
	quota   *repository.QuotaRepository
	handles *repository.HandlesRepository
	stats   *repository.StatsRepository

	relay    *Relay
	resolver telegram.Resolver
	events   publisher.EventPublisher

	log *logger.Logger
}

// New creates the bot service around an authorized API client.
func New(
	api API,
	cfg *config.Config,
	reports *repository.ReportsRepository,
	quota *repository.QuotaRepository,
	handles *repository.HandlesRepository,
	stats *repository.StatsRepository,
	resolver telegram.Resolver,
	events publisher.EventPublisher,
) *Bot {
	return &Bot{
		api:      api,
		cfg:      cfg,
		sessions: NewSessionStore(),
		admin:    newAdminStore(),
		reports:  reports,
		quota:    quota,
		handles:  handles,
		stats:    stats,
		relay:    NewRelay(api, cfg.GroupID, cfg.ChannelID),
		resolver: resolver,
		events:   events,
		log:      logger.Get(),
	}
}

// Run consumes updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	b.log.Info().Msg("bot: update loop started")
	for {
		select {
		case <-ctx.Done():
			b.log.Info().Msg("bot: update loop stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.dispatch(ctx, update)
		}
	}
}

// dispatch routes one update, recovering from handler panics so a single
// bad update never takes the process down.
func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Msg("bot: handler panicked")
			if chatID := updateChatID(update); chatID != 0 {
				b.sendText(chatID, "Something went wrong. Please try again later.")
			}
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	// an admin mid-annotation takes priority over any draft of their own
	if b.cfg.IsAdmin(userID) && b.admin.annotating(userID) != "" {
		b.handleAnnotationInput(ctx, msg)
		return
	}

	sess := b.sessions.Get(userID)
	if sess == nil {
		b.sendText(msg.Chat.ID, "Use /start to begin.")
		return
	}
	b.advance(ctx, msg, sess)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.handleStart(msg)
	case "cancel":
		b.handleCancel(msg)
	case "reports":
		b.handleReportsCmd(ctx, msg)
	case "stats":
		b.handleStatsCmd(ctx, msg)
	case "broadcast":
		b.handleBroadcastCmd(ctx, msg)
	default:
		b.sendText(msg.Chat.ID, "Unknown command. Use /start to begin.")
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	// always answer so the client stops its spinner
	defer func() {
		_, _ = b.api.Request(tgbotapi.NewCallback(cb.ID, ""))
	}()

	data := cb.Data
	switch {
	case data == cbStartReport:
		b.handleReportStart(ctx, cb)
	case data == cbConfirmReport:
		b.handleConfirm(ctx, cb)
	case data == cbCancelReport:
		b.handleCancelCallback(cb)
	case strings.HasPrefix(data, cbReviewPrefix):
		b.handleReviewSelect(ctx, cb)
	case strings.HasPrefix(data, cbStatusPrefix):
		b.handleStatusChange(ctx, cb)
	case strings.HasPrefix(data, cbAnnotatePrefix):
		b.handleAnnotateStart(cb)
	}
}

// sendText delivers a plain HTML-formatted text message, logging failures.
func (b *Bot) sendText(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error().Err(err).Int64("chat_id", chatID).Msg("bot: send failed")
	}
}

// editText replaces the text of the message a callback originated from.
// Media messages carry their text as a caption and need the caption edit
// call instead.
func (b *Bot) editText(cb *tgbotapi.CallbackQuery, text string) {
	var edit tgbotapi.Chattable
	if len(cb.Message.Photo) > 0 || cb.Message.Document != nil {
		c := tgbotapi.NewEditMessageCaption(cb.Message.Chat.ID, cb.Message.MessageID, text)
		c.ParseMode = tgbotapi.ModeHTML
		edit = c
	} else {
		c := tgbotapi.NewEditMessageText(cb.Message.Chat.ID, cb.Message.MessageID, text)
		c.ParseMode = tgbotapi.ModeHTML
		edit = c
	}
	if _, err := b.api.Send(edit); err != nil {
		b.log.Error().Err(err).Msg("bot: edit failed")
	}
}

// SendText implements the notifier's messenger over the Bot API.
func (b *Bot) SendText(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send to %d: %w", chatID, err)
	}
	return nil
}

func updateChatID(update tgbotapi.Update) int64 {
	if update.Message != nil {
		return update.Message.Chat.ID
	}
	if update.CallbackQuery != nil && update.CallbackQuery.Message != nil {
		return update.CallbackQuery.Message.Chat.ID
	}
	return 0
}

func displayName(user *tgbotapi.User) string {
	if user.UserName != "" {
		return "@" + user.UserName
	}
	name := user.FirstName
	if user.LastName != "" {
		name += " " + user.LastName
	}
	return name
}
