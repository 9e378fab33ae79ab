package sessionconv

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/scamwatch/reportbot/internal/config"
	"github.com/scamwatch/reportbot/internal/logger"
	"github.com/scamwatch/reportbot/internal/models"
	"github.com/scamwatch/reportbot/internal/repository"
)

// cbFormatPrefix prefixes the format-selection callback payload:
// fmt:<token>:<format>
const cbFormatPrefix = "fmt:"

// Service is the session conversion bot. It takes a session container
// (file upload or pasted string), stores it, and renders any of the
// output formats on request.
type Service struct {
	api     *tgbotapi.BotAPI
	cfg     *config.Config
	uploads *repository.UploadsRepository
	log     *logger.Logger
}

// NewService creates the conversion bot service.
func NewService(api *tgbotapi.BotAPI, cfg *config.Config, uploads *repository.UploadsRepository) *Service {
	return &Service{
		api:     api,
		cfg:     cfg,
		uploads: uploads,
		log:     logger.Get(),
	}
}

// Run consumes updates until the context is cancelled.
func (s *Service) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	s.log.Info().Msg("sessionconv: update loop started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("sessionconv: update loop stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			s.dispatch(ctx, update)
		}
	}
}

func (s *Service) dispatch(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("sessionconv: handler panicked")
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		s.handleCallback(ctx, update.CallbackQuery)
	case update.Message == nil:
	case update.Message.IsCommand():
		s.handleCommand(ctx, update.Message)
	case update.Message.Document != nil:
		s.handleDocument(ctx, update.Message)
	case update.Message.Text != "":
		s.handleText(ctx, update.Message)
	}
}

func (s *Service) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		s.reply(msg.Chat.ID,
			"Send me a Telethon <b>.session</b> file or paste a string session, "+
				"then pick the output format you need.")
	case "cleanup":
		s.handleCleanup(ctx, msg)
	default:
		s.reply(msg.Chat.ID, "Unknown command. Send a session file or string to convert.")
	}
}

// handleDocument stores an uploaded session container.
func (s *Service) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	doc := msg.Document
	if doc.FileSize > int(s.cfg.MaxProofBytes) {
		s.reply(msg.Chat.ID, "⚠️ File is too large.")
		return
	}

	path, err := s.download(doc.FileID)
	if err != nil {
		s.log.Error().Err(err).Msg("sessionconv: download failed")
		s.reply(msg.Chat.ID, "Failed to fetch the file. Please try again.")
		return
	}

	// sniff before registering
	if _, err := ParseFile(path); err != nil {
		os.Remove(path)
		s.log.Warn().Err(err).Msg("sessionconv: unrecognized upload")
		s.reply(msg.Chat.ID, "⚠️ That does not look like a session container.")
		return
	}

	s.register(ctx, msg, path, models.UploadFile)
}

// handleText stores a pasted string session.
func (s *Service) handleText(ctx context.Context, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	if !LooksLikeStringSession(text) {
		s.reply(msg.Chat.ID, "⚠️ That does not look like a string session.")
		return
	}
	if _, err := ParseString(text); err != nil {
		s.reply(msg.Chat.ID, "⚠️ The string session failed to decode.")
		return
	}

	path := filepath.Join(s.cfg.UploadsDir, uuid.NewString()+".session.txt")
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		s.log.Error().Err(err).Msg("sessionconv: store string failed")
		s.reply(msg.Chat.ID, "Failed to store the session. Please try again.")
		return
	}

	s.register(ctx, msg, path, models.UploadString)
}

// register records the stored source and offers the format keyboard.
func (s *Service) register(ctx context.Context, msg *tgbotapi.Message, path string, kind models.UploadKind) {
	up := &models.SessionUpload{
		Path:       path,
		Kind:       kind,
		UploadedBy: msg.From.ID,
	}
	if err := s.uploads.Create(ctx, up); err != nil {
		os.Remove(path)
		s.log.Error().Err(err).Msg("sessionconv: register failed")
		s.reply(msg.Chat.ID, "Failed to store the session. Please try again.")
		return
	}

	s.log.Info().Str("token", up.Token).Str("kind", string(kind)).
		Int64("user_id", msg.From.ID).Msg("sessionconv: session stored")

	reply := tgbotapi.NewMessage(msg.Chat.ID, "Session accepted. Pick an output format:")
	reply.ReplyMarkup = formatKeyboard(up.Token)
	if _, err := s.api.Send(reply); err != nil {
		s.log.Error().Err(err).Msg("sessionconv: send keyboard failed")
	}
}

// handleCallback renders the requested format and sends the files back.
func (s *Service) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	defer func() {
		_, _ = s.api.Request(tgbotapi.NewCallback(cb.ID, ""))
	}()

	if !strings.HasPrefix(cb.Data, cbFormatPrefix) {
		return
	}
	payload := strings.TrimPrefix(cb.Data, cbFormatPrefix)
	sep := strings.LastIndex(payload, ":")
	if sep < 0 {
		return
	}
	token, format := payload[:sep], Format(payload[sep+1:])

	up, err := s.uploads.ByToken(ctx, token)
	if err != nil {
		s.reply(cb.Message.Chat.ID, "Session not found. Upload it again.")
		return
	}

	rec, err := ParseFile(up.Path)
	if err != nil {
		s.log.Error().Err(err).Str("token", token).Msg("sessionconv: parse failed")
		s.reply(cb.Message.Chat.ID, "Failed to read the stored session. Upload it again.")
		return
	}

	outputs, err := Render(rec, format)
	if err != nil {
		s.log.Error().Err(err).Str("format", string(format)).Msg("sessionconv: render failed")
		s.reply(cb.Message.Chat.ID, "Failed to render that format.")
		return
	}

	for _, out := range outputs {
		doc := tgbotapi.NewDocument(cb.Message.Chat.ID, tgbotapi.FileBytes{
			Name:  filepath.Base(out.Filename),
			Bytes: out.Data,
		})
		if _, err := s.api.Send(doc); err != nil {
			s.log.Error().Err(err).Str("file", out.Filename).Msg("sessionconv: send failed")
			s.reply(cb.Message.Chat.ID, "Failed to deliver the rendered file.")
			return
		}
	}
}

// handleCleanup deletes every stored upload. Admin only.
func (s *Service) handleCleanup(ctx context.Context, msg *tgbotapi.Message) {
	if !s.cfg.IsAdmin(msg.From.ID) {
		return
	}

	paths, err := s.uploads.DeleteAll(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("sessionconv: cleanup failed")
		s.reply(msg.Chat.ID, "Cleanup failed.")
		return
	}
	removed := 0
	for _, path := range paths {
		if err := os.Remove(path); err != nil {
			s.log.Warn().Err(err).Str("path", path).Msg("sessionconv: unlink failed")
			continue
		}
		removed++
	}

	s.log.Info().Int("records", len(paths)).Int("files", removed).Msg("sessionconv: cleanup done")
	s.reply(msg.Chat.ID, fmt.Sprintf("Removed %d stored session(s).", len(paths)))
}

// download fetches a Bot API file into the uploads directory.
func (s *Service) download(fileID string) (string, error) {
	url, err := s.api.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("resolve file url: %w", err)
	}

	resp, err := http.Get(url)
	if err != nil {
		return "", fmt.Errorf("fetch file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch file: status %d", resp.StatusCode)
	}

	path := filepath.Join(s.cfg.UploadsDir, uuid.NewString()+".session")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, io.LimitReader(resp.Body, s.cfg.MaxProofBytes)); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("save upload: %w", err)
	}
	return path, nil
}

func (s *Service) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := s.api.Send(msg); err != nil {
		s.log.Error().Err(err).Int64("chat_id", chatID).Msg("sessionconv: reply failed")
	}
}

// formatKeyboard offers one button per output format.
func formatKeyboard(token string) tgbotapi.InlineKeyboardMarkup {
	labels := map[Format]string{
		FormatJSON:   "JSON dump",
		FormatBundle: "Desktop bundle",
		FormatRaw:    "Raw copy",
		FormatString: "String form",
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(labels))
	for _, f := range Formats() {
		data := fmt.Sprintf("%s%s:%s", cbFormatPrefix, token, f)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(labels[f], data),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
