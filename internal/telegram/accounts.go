package telegram

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/celestix/gotgproto"
	"github.com/celestix/gotgproto/sessionMaker"
	"github.com/gotd/td/tg"

	"github.com/scamwatch/reportbot/internal/config"
	"github.com/scamwatch/reportbot/internal/logger"
)

// Account is one authenticated MTProto session in the pool.
type Account struct {
	Name   string
	client *gotgproto.Client

	limiter *RateLimiter
	log     *logger.Logger
}

// Pool holds independently authenticated accounts and hands them out
// round-robin for sends.
type Pool struct {
	accounts []*Account
	next     atomic.Uint64
}

// LoadPool creates a client per session-string file in dir.
// Files are expected to hold the exported string session of one account
// (see cmd/tg-auth); unreadable files are skipped with a log line.
func LoadPool(ctx context.Context, cfg *config.Config, dir string) (*Pool, error) {
	log := logger.Get()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read sessions dir: %w", err)
	}

	pool := &Pool{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".session") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("file", entry.Name()).Msg("pool: skipping unreadable session file")
			continue
		}

		client, err := gotgproto.NewClient(
			cfg.TGApiID,
			cfg.TGApiHash,
			gotgproto.ClientTypePhone(""), // empty = use session
			&gotgproto.ClientOpts{
				Session:          sessionMaker.StringSession(strings.TrimSpace(string(raw))),
				DisableCopyright: true,
				Context:          ctx,
			},
		)
		if err != nil {
			log.Warn().Err(err).Str("file", entry.Name()).Msg("pool: failed to start account, skipping")
			continue
		}

		pool.accounts = append(pool.accounts, &Account{
			Name:    strings.TrimSuffix(entry.Name(), ".session"),
			client:  client,
			limiter: DefaultRateLimiter(),
			log:     log,
		})
		log.Info().Str("account", entry.Name()).Msg("pool: account ready")
	}

	if len(pool.accounts) == 0 {
		return nil, fmt.Errorf("no usable session files in %s", dir)
	}
	return pool, nil
}

// Size returns the number of accounts in the pool.
func (p *Pool) Size() int {
	return len(p.accounts)
}

// Next returns the next account in round-robin order.
func (p *Pool) Next() *Account {
	if len(p.accounts) == 0 {
		return nil
	}
	n := p.next.Add(1)
	return p.accounts[(n-1)%uint64(len(p.accounts))]
}

// Close stops all clients.
func (p *Pool) Close() {
	for _, acc := range p.accounts {
		acc.client.Stop()
	}
}

// SendMessage delivers text to a recipient handle via this account.
func (a *Account) SendMessage(ctx context.Context, recipient, text string) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}

	api := a.client.API()
	peer, err := resolveUserPeer(ctx, api, recipient)
	if err != nil {
		a.limiter.ObserveError(err)
		return err
	}

	_, err = api.MessagesSendMessage(ctx, &tg.MessagesSendMessageRequest{
		Peer:     peer,
		Message:  text,
		RandomID: rand.Int63(),
	})
	if err != nil {
		if a.limiter.ObserveError(err) {
			a.log.Warn().Str("account", a.Name).Msg("pool: FLOOD_WAIT on send, limiter paused")
		}
		return fmt.Errorf("send message via %s: %w", a.Name, err)
	}
	return nil
}

// resolveUserPeer resolves a @handle to an input peer for sending.
func resolveUserPeer(ctx context.Context, api *tg.Client, handle string) (tg.InputPeerClass, error) {
	username := strings.TrimPrefix(handle, "@")

	resolved, err := api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{
		Username: username,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve username %s: %w", username, err)
	}

	for _, u := range resolved.Users {
		if user, ok := u.(*tg.User); ok {
			return &tg.InputPeerUser{UserID: user.ID, AccessHash: user.AccessHash}, nil
		}
	}
	return nil, fmt.Errorf("no user behind username %s", username)
}
