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
)

type mockRegistry struct {
	rows    []models.AccusedHandle
	checked map[string]int64
}

func (m *mockRegistry) All(ctx context.Context) ([]models.AccusedHandle, error) {
	return m.rows, nil
}

func (m *mockRegistry) MarkChecked(ctx context.Context, handle string, resolvedID int64) error {
	if m.checked == nil {
		m.checked = make(map[string]int64)
	}
	m.checked[handle] = resolvedID
	return nil
}

type mockResolver struct {
	ids map[string]int64
}

func (m *mockResolver) ResolveHandle(ctx context.Context, handle string) (int64, error) {
	id, ok := m.ids[handle]
	if !ok {
		return 0, errors.New("username not occupied")
	}
	return id, nil
}

func TestWatcherDetectsOwnerChange(t *testing.T) {
	registry := &mockRegistry{rows: []models.AccusedHandle{
		{Handle: "stable", ResolvedID: 100, ReportCount: 1},
		{Handle: "reused", ResolvedID: 200, ReportCount: 3},
	}}
	resolver := &mockResolver{ids: map[string]int64{
		"stable": 100,
		"reused": 999, // someone else took the handle
	}}
	messenger := &mockMessenger{}

	w := NewHandleWatcher(registry, resolver, messenger, time.Minute, logger.Get())
	require.NoError(t, w.runOnce(context.Background()))

	assert.Equal(t, map[string]int64{"stable": 100, "reused": 999}, registry.checked)

	// only the new owner of the reused handle is warned
	require.Len(t, messenger.sent, 1)
	assert.Equal(t, int64(999), messenger.sent[0])
	assert.Contains(t, messenger.texts[0], "@reused")
	assert.Contains(t, messenger.texts[0], "3 fraud report(s)")
}

func TestWatcherSkipsUnresolvedRows(t *testing.T) {
	registry := &mockRegistry{rows: []models.AccusedHandle{
		{Handle: "gone", ResolvedID: 100},
		{Handle: "fresh", ResolvedID: 0}, // never resolved before
	}}
	resolver := &mockResolver{ids: map[string]int64{"fresh": 500}}
	messenger := &mockMessenger{}

	w := NewHandleWatcher(registry, resolver, messenger, time.Minute, logger.Get())
	require.NoError(t, w.runOnce(context.Background()))

	// "gone" failed to resolve: logged and skipped, not marked
	assert.NotContains(t, registry.checked, "gone")
	// first successful resolution records the id but does not warn anyone
	assert.Equal(t, int64(500), registry.checked["fresh"])
	assert.Empty(t, messenger.sent)
}

func TestWatcherSendFailureDoesNotAbortScan(t *testing.T) {
	registry := &mockRegistry{rows: []models.AccusedHandle{
		{Handle: "first", ResolvedID: 1, ReportCount: 1},
		{Handle: "second", ResolvedID: 2, ReportCount: 1},
	}}
	resolver := &mockResolver{ids: map[string]int64{"first": 11, "second": 22}}
	failing := &mockMessenger{
		sendTextFunc: func(ctx context.Context, chatID int64, text string) error {
			return errors.New("peer unavailable")
		},
	}

	w := NewHandleWatcher(registry, resolver, failing, time.Minute, logger.Get())
	require.NoError(t, w.runOnce(context.Background()))

	// both rows were still marked checked with their new ids
	assert.Equal(t, map[string]int64{"first": 11, "second": 22}, registry.checked)
}
