package scheduler

import (
	"context"
	"errors"

	"github.com/scamwatch/reportbot/internal/telegram"
)

// ErrNoAccounts is returned when the pool has no usable account.
var ErrNoAccounts = errors.New("no accounts in pool")

// PoolSender sends through the account pool, rotating accounts
// round-robin so no single session carries all the traffic.
type PoolSender struct {
	pool *telegram.Pool
}

// NewPoolSender wraps a pool as a Sender.
func NewPoolSender(pool *telegram.Pool) *PoolSender {
	return &PoolSender{pool: pool}
}

// Send delivers text to a recipient through the next account.
func (p *PoolSender) Send(ctx context.Context, recipient, text string) error {
	acc := p.pool.Next()
	if acc == nil {
		return ErrNoAccounts
	}
	return acc.SendMessage(ctx, recipient, text)
}
