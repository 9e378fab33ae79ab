package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/scamwatch/reportbot/internal/logger"
	"github.com/scamwatch/reportbot/internal/models"
	"github.com/scamwatch/reportbot/internal/telegram"
)

// HandleRegistry is the slice of the handles repository the watcher needs.
type HandleRegistry interface {
	All(ctx context.Context) ([]models.AccusedHandle, error)
	MarkChecked(ctx context.Context, handle string, resolvedID int64) error
}

// HandleWatcher re-resolves every recorded accused handle on a fixed
// interval. When a handle now points at a different account, the registry
// is updated and the new owner is messaged best-effort. Any failure is
// logged and skipped until the next full cycle.
type HandleWatcher struct {
	registry  HandleRegistry
	resolver  telegram.Resolver
	messenger Messenger
	interval  time.Duration
	log       *logger.Logger
}

// NewHandleWatcher creates a new HandleWatcher.
func NewHandleWatcher(
	registry HandleRegistry,
	resolver telegram.Resolver,
	messenger Messenger,
	interval time.Duration,
	log *logger.Logger,
) *HandleWatcher {
	return &HandleWatcher{
		registry:  registry,
		resolver:  resolver,
		messenger: messenger,
		interval:  interval,
		log:       log,
	}
}

// Run scans on a fixed interval until the context is cancelled.
func (w *HandleWatcher) Run(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("watcher: started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("watcher: stopped")
			return
		case <-ticker.C:
			if err := w.runOnce(ctx); err != nil {
				w.log.Error().Err(err).Msg("watcher: scan failed")
			}
		}
	}
}

// runOnce does one full registry scan.
func (w *HandleWatcher) runOnce(ctx context.Context) error {
	rows, err := w.registry.All(ctx)
	if err != nil {
		return fmt.Errorf("list handles: %w", err)
	}

	for _, row := range rows {
		currentID, err := w.resolver.ResolveHandle(ctx, row.Handle)
		if err != nil {
			w.log.Warn().Err(err).Str("handle", row.Handle).Msg("watcher: resolve failed")
			continue
		}

		changed := row.ResolvedID != 0 && currentID != row.ResolvedID
		if err := w.registry.MarkChecked(ctx, row.Handle, currentID); err != nil {
			w.log.Error().Err(err).Str("handle", row.Handle).Msg("watcher: mark failed")
			continue
		}
		if !changed {
			continue
		}

		w.log.Info().Str("handle", row.Handle).
			Int64("old_id", row.ResolvedID).Int64("new_id", currentID).
			Msg("watcher: handle changed owner")

		text := fmt.Sprintf(
			"⚠️ The handle @%s you now use was previously named in %d fraud report(s). "+
				"If you believe this is a mistake, contact the moderators.",
			row.Handle, row.ReportCount,
		)
		if err := w.messenger.SendText(ctx, currentID, text); err != nil {
			w.log.Warn().Err(err).Str("handle", row.Handle).Msg("watcher: warn send failed")
		}
	}
	return nil
}
