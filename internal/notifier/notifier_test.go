package notifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scamwatch/reportbot/internal/logger"
	"github.com/scamwatch/reportbot/internal/models"
	"github.com/scamwatch/reportbot/internal/publisher"
)

type mockMessenger struct {
	sendTextFunc func(ctx context.Context, chatID int64, text string) error
	sent         []int64
	texts        []string
}

func (m *mockMessenger) SendText(ctx context.Context, chatID int64, text string) error {
	if m.sendTextFunc != nil {
		if err := m.sendTextFunc(ctx, chatID, text); err != nil {
			return err
		}
	}
	m.sent = append(m.sent, chatID)
	m.texts = append(m.texts, text)
	return nil
}

type mockBacklog struct {
	reports  []models.Report
	notified []string
	markErr  error
}

func (m *mockBacklog) ListUnnotified(ctx context.Context) ([]models.Report, error) {
	return m.reports, nil
}

func (m *mockBacklog) MarkNotified(ctx context.Context, id string) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.notified = append(m.notified, id)
	return nil
}

func note(s string) *string { return &s }

func TestNotifierMarksOnlySuccessfulSends(t *testing.T) {
	backlog := &mockBacklog{reports: []models.Report{
		{ID: "aaa111", SubmitterID: 10, Status: models.StatusResolved, AccusedHandle: "@x"},
		{ID: "bbb222", SubmitterID: 20, Status: models.StatusUnderReview, AccusedHandle: "@y"},
	}}
	messenger := &mockMessenger{
		sendTextFunc: func(ctx context.Context, chatID int64, text string) error {
			if chatID == 20 {
				return errors.New("blocked by user")
			}
			return nil
		},
	}

	n := NewStatusNotifier(backlog, messenger, publisher.Noop{}, time.Minute, logger.Get())
	require.NoError(t, n.runOnce(context.Background()))

	// the failed send stays in the backlog for the next cycle
	assert.Equal(t, []string{"aaa111"}, backlog.notified)
	assert.Equal(t, []int64{10}, messenger.sent)
}

func TestNotifierMessageIncludesAnnotation(t *testing.T) {
	backlog := &mockBacklog{reports: []models.Report{
		{
			ID:            "ccc333",
			SubmitterID:   30,
			Status:        models.StatusResolved,
			AccusedHandle: "@scammer",
			Annotation:    note("account banned"),
		},
	}}
	messenger := &mockMessenger{}

	n := NewStatusNotifier(backlog, messenger, publisher.Noop{}, time.Minute, logger.Get())
	require.NoError(t, n.runOnce(context.Background()))

	require.Len(t, messenger.texts, 1)
	assert.Contains(t, messenger.texts[0], "#ccc333")
	assert.Contains(t, messenger.texts[0], "resolved")
	assert.Contains(t, messenger.texts[0], "account banned")
}

func TestNotifierSendFailureKeepsFlagUnset(t *testing.T) {
	backlog := &mockBacklog{reports: []models.Report{
		{ID: "ddd444", SubmitterID: 40, Status: models.StatusResolved, AccusedHandle: "@z"},
	}}
	failing := &mockMessenger{
		sendTextFunc: func(ctx context.Context, chatID int64, text string) error {
			return errors.New("network down")
		},
	}

	n := NewStatusNotifier(backlog, failing, publisher.Noop{}, time.Minute, logger.Get())
	require.NoError(t, n.runOnce(context.Background()))
	assert.Empty(t, backlog.notified)

	// retry on a later cycle succeeds and marks exactly once
	ok := &mockMessenger{}
	n = NewStatusNotifier(backlog, ok, publisher.Noop{}, time.Minute, logger.Get())
	require.NoError(t, n.runOnce(context.Background()))
	assert.Equal(t, []string{"ddd444"}, backlog.notified)
}
