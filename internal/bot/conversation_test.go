package bot

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"github.com/scamwatch/reportbot/internal/captcha"
	"github.com/scamwatch/reportbot/internal/config"
	"github.com/scamwatch/reportbot/internal/logger"
	"github.com/scamwatch/reportbot/internal/models"
	"github.com/scamwatch/reportbot/internal/publisher"
	"github.com/scamwatch/reportbot/internal/repository"
	"github.com/scamwatch/reportbot/internal/telegram"
)

// testBot wires a bot over a throwaway sqlite store and the recorder API.
// Both relay destinations are zero so confirmed reports stay local.
func testBot(t *testing.T, api API) *Bot {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "bot.db")), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Report{},
		&models.DailyQuota{},
		&models.AccusedHandle{},
	))

	cfg := &config.Config{
		DailyLimit:        3,
		MaxDescriptionLen: 1000,
		MaxAnnotationLen:  500,
		MaxProofBytes:     10 << 20,
		CaptchaAttempts:   3,
	}

	return &Bot{
		api:      api,
		cfg:      cfg,
		sessions: NewSessionStore(),
		admin:    newAdminStore(),
		reports:  repository.NewReportsRepository(db),
		quota:    repository.NewQuotaRepository(db),
		handles:  repository.NewHandlesRepository(db),
		stats:    repository.NewStatsRepository(db),
		relay:    NewRelay(api, 0, 0),
		resolver: telegram.NoopResolver{},
		events:   publisher.Noop{},
		log:      logger.Get(),
	}
}

func userMessage(userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID, FirstName: "Alice"},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: text,
	}
}

func userCallback(userID int64, preview bool) *tgbotapi.CallbackQuery {
	msg := &tgbotapi.Message{
		MessageID: 1,
		Chat:      &tgbotapi.Chat{ID: userID},
	}
	if preview {
		msg.Photo = []tgbotapi.PhotoSize{{FileID: "proof", FileSize: 1024}}
	}
	return &tgbotapi.CallbackQuery{
		From:    &tgbotapi.User{ID: userID, FirstName: "Alice"},
		Message: msg,
	}
}

// sentTexts extracts the text of every plain message the recorder saw.
func sentTexts(api *recorderAPI) []string {
	var texts []string
	for _, c := range api.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			texts = append(texts, m.Text)
		}
	}
	return texts
}

func TestCaptchaCorrectAnswerAdvances(t *testing.T) {
	api := &recorderAPI{}
	b := testBot(t, api)

	sess := &Session{
		State:        StateCaptcha,
		Challenge:    captcha.Challenge{Question: "3 + 4 = ?", Answer: "7"},
		AttemptsLeft: 3,
	}
	b.sessions.Put(42, sess)

	b.advance(t.Context(), userMessage(42, "7"), sess)

	assert.Equal(t, StateAccusedHandle, sess.State)
	assert.Equal(t, 3, sess.AttemptsLeft, "a pass must not consume attempts")
	texts := sentTexts(api)
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "CAPTCHA passed")
}

func TestCaptchaWrongAnswerRegenerates(t *testing.T) {
	api := &recorderAPI{}
	b := testBot(t, api)

	// an answer no generated challenge can carry, so regeneration is observable
	sess := &Session{
		State:        StateCaptcha,
		Challenge:    captcha.Challenge{Question: "? = ?", Answer: "unreachable"},
		AttemptsLeft: 3,
	}
	b.sessions.Put(42, sess)

	b.advance(t.Context(), userMessage(42, "99"), sess)

	assert.Equal(t, StateCaptcha, sess.State)
	assert.Equal(t, 2, sess.AttemptsLeft)
	assert.NotEqual(t, "unreachable", sess.Challenge.Answer, "failed attempt must get a fresh challenge")
	assert.NotNil(t, b.sessions.Get(42))
}

func TestCaptchaExhaustionAbortsSession(t *testing.T) {
	api := &recorderAPI{}
	b := testBot(t, api)

	sess := &Session{
		State:        StateCaptcha,
		Challenge:    captcha.Challenge{Question: "? = ?", Answer: "unreachable"},
		AttemptsLeft: 1,
	}
	b.sessions.Put(42, sess)

	b.advance(t.Context(), userMessage(42, "99"), sess)

	assert.Nil(t, b.sessions.Get(42), "exhaustion must discard the draft")
	texts := sentTexts(api)
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Too many failed attempts")
}

func TestReportFlowEndToEnd(t *testing.T) {
	api := &recorderAPI{}
	b := testBot(t, api)
	ctx := t.Context()
	const userID int64 = 42

	// entry guard passes on a fresh store and opens a captcha draft
	b.handleReportStart(ctx, userCallback(userID, false))
	sess := b.sessions.Get(userID)
	require.NotNil(t, sess)
	assert.Equal(t, StateCaptcha, sess.State)
	assert.Equal(t, 3, sess.AttemptsLeft)

	b.advance(ctx, userMessage(userID, sess.Challenge.Answer), sess)
	require.Equal(t, StateAccusedHandle, sess.State)

	// invalid input re-prompts without moving the state
	b.advance(ctx, userMessage(userID, "not a handle"), sess)
	require.Equal(t, StateAccusedHandle, sess.State)

	b.advance(ctx, userMessage(userID, "@fraudster99"), sess)
	require.Equal(t, StateDescription, sess.State)
	assert.Equal(t, "@fraudster99", sess.AccusedHandle)

	b.advance(ctx, userMessage(userID, "took prepayment and vanished"), sess)
	require.Equal(t, StateProof, sess.State)

	// text where a photo is expected re-prompts
	b.advance(ctx, userMessage(userID, "no photo, sorry"), sess)
	require.Equal(t, StateProof, sess.State)

	proof := userMessage(userID, "")
	proof.Photo = []tgbotapi.PhotoSize{{FileID: "proof", FileSize: 2 << 20}}
	b.advance(ctx, proof, sess)
	require.Equal(t, StateContact, sess.State)
	assert.Equal(t, "proof", sess.ProofFileID)

	b.advance(ctx, userMessage(userID, "@alice_contact"), sess)
	require.Equal(t, StateConfirm, sess.State)

	// the last send is the photo preview with the collected fields
	require.NotEmpty(t, api.sent)
	preview, ok := api.sent[len(api.sent)-1].(tgbotapi.PhotoConfig)
	require.True(t, ok, "confirm step must render a photo preview")
	assert.Contains(t, preview.Caption, "@fraudster99")
	assert.Contains(t, preview.Caption, "took prepayment and vanished")

	b.handleConfirm(ctx, userCallback(userID, true))

	assert.Nil(t, b.sessions.Get(userID), "confirm must reset the session")

	pending, err := b.reports.HasPending(ctx, userID)
	require.NoError(t, err)
	assert.True(t, pending)

	open, err := b.reports.ListOpen(ctx, 10)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "@fraudster99", open[0].AccusedHandle)
	assert.Equal(t, userID, open[0].SubmitterID)
	assert.Equal(t, models.StatusPending, open[0].Status)

	// a second draft is rejected by the pending-report guard
	b.handleReportStart(ctx, userCallback(userID, false))
	assert.Nil(t, b.sessions.Get(userID))
}

func TestConfirmWithoutDraftExpires(t *testing.T) {
	api := &recorderAPI{}
	b := testBot(t, api)

	b.handleConfirm(t.Context(), userCallback(42, false))

	pending, err := b.reports.HasPending(t.Context(), 42)
	require.NoError(t, err)
	assert.False(t, pending, "no report may be stored without a confirmed draft")
}
