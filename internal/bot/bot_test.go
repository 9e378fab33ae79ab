package bot

import (
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"

	"github.com/scamwatch/reportbot/internal/models"
)

// recorderAPI captures outgoing chattables instead of talking to Telegram.
type recorderAPI struct {
	sent []tgbotapi.Chattable
}

func (r *recorderAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	r.sent = append(r.sent, c)
	return tgbotapi.Message{}, nil
}

func (r *recorderAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func TestSessionStore(t *testing.T) {
	store := NewSessionStore()

	if store.Get(42) != nil {
		t.Fatal("expected no session for unknown user")
	}

	store.Put(42, &Session{State: StateCaptcha, AttemptsLeft: 3})
	s := store.Get(42)
	if s == nil || s.State != StateCaptcha {
		t.Fatalf("got %+v", s)
	}
	if store.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", store.Len())
	}

	store.Delete(42)
	if store.Get(42) != nil {
		t.Fatal("session survived Delete")
	}
}

func TestAdminStoreAnnotation(t *testing.T) {
	store := newAdminStore()

	assert.Empty(t, store.annotating(1))

	store.startAnnotation(1, "abc123")
	store.startAnnotation(2, "def456")
	assert.Equal(t, "abc123", store.annotating(1))
	assert.Equal(t, "def456", store.annotating(2))

	store.clearAnnotation(1)
	assert.Empty(t, store.annotating(1))
	assert.Equal(t, "def456", store.annotating(2))
}

func TestReportDetail(t *testing.T) {
	accusedID := int64(777000)
	note := "checked, <real> scam"
	r := &models.Report{
		ID:            "a1b2c3d4e5f6",
		Status:        models.StatusUnderReview,
		SubmitterID:   100,
		SubmitterName: "Alice <QA>",
		AccusedHandle: "@scammer",
		AccusedID:     &accusedID,
		Description:   "took money & vanished",
		Contact:       "+380501234567",
		Annotation:    &note,
		CreatedAt:     time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}

	out := reportDetail(r)
	assert.Contains(t, out, "Report #a1b2c3d4e5f6")
	assert.Contains(t, out, "under_review")
	assert.Contains(t, out, "@scammer (id 777000)")
	assert.Contains(t, out, "2026-03-14 09:30")
	// HTML-sensitive fields must be escaped
	assert.Contains(t, out, "Alice &lt;QA&gt;")
	assert.Contains(t, out, "took money &amp; vanished")
	assert.Contains(t, out, "checked, &lt;real&gt; scam")
	assert.NotContains(t, out, "<QA>")
}

func TestReportDetailWithoutOptionalFields(t *testing.T) {
	r := &models.Report{
		ID:            "feedbeef0001",
		Status:        models.StatusPending,
		AccusedHandle: "@someone",
	}

	out := reportDetail(r)
	assert.Contains(t, out, "@someone")
	assert.NotContains(t, out, "(id ")
	assert.Contains(t, out, "<b>Annotation:</b> —")
}

func TestStaffCaptionMentionsAllFields(t *testing.T) {
	r := &models.Report{
		ID:            "cafe00112233",
		SubmitterID:   55,
		SubmitterName: "Bob",
		AccusedHandle: "@fraudster",
		Description:   "fake prepayment",
		Contact:       "@bob_contact",
		CreatedAt:     time.Now(),
	}

	caption := staffCaption(r)
	for _, want := range []string{"cafe00112233", "Bob", "@fraudster", "fake prepayment", "@bob_contact"} {
		if !strings.Contains(caption, want) {
			t.Errorf("caption missing %q:\n%s", want, caption)
		}
	}
}

func TestRelaySendsToGroupAndChannel(t *testing.T) {
	rec := &recorderAPI{}
	relay := NewRelay(rec, -1001, -1002)

	r := &models.Report{
		ID:            "0123456789ab",
		SubmitterName: "Carol",
		AccusedHandle: "@bad",
		Description:   "d",
		Contact:       "c",
		ProofFileID:   "photo-file-id",
		CreatedAt:     time.Now(),
	}
	if err := relay.SendReport(t.Context(), r); err != nil {
		t.Fatalf("SendReport: %v", err)
	}

	if len(rec.sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(rec.sent))
	}
	chats := []int64{}
	for _, c := range rec.sent {
		photo, ok := c.(tgbotapi.PhotoConfig)
		if !ok {
			t.Fatalf("sent %T, want PhotoConfig", c)
		}
		chats = append(chats, photo.ChatID)
	}
	assert.ElementsMatch(t, []int64{-1001, -1002}, chats)
}
