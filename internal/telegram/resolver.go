package telegram

import (
	"context"
	"fmt"
	"strings"

	"github.com/gotd/td/tg"
)

// Resolver maps a handle to its current numeric identity.
// Resolution is best-effort everywhere it is used; callers treat failure
// as "unknown", never as fatal.
type Resolver interface {
	ResolveHandle(ctx context.Context, handle string) (int64, error)
}

// AccountResolver resolves handles through one pooled MTProto account.
// The Bot API cannot resolve arbitrary user handles, so this is the only
// production implementation.
type AccountResolver struct {
	pool *Pool
}

// NewAccountResolver creates a resolver backed by the account pool.
func NewAccountResolver(pool *Pool) *AccountResolver {
	return &AccountResolver{pool: pool}
}

// ResolveHandle resolves handle to a user id via the next pooled account.
func (r *AccountResolver) ResolveHandle(ctx context.Context, handle string) (int64, error) {
	acc := r.pool.Next()
	if acc == nil {
		return 0, fmt.Errorf("no accounts available")
	}

	if err := acc.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	username := strings.TrimPrefix(handle, "@")
	resolved, err := acc.client.API().ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{
		Username: username,
	})
	if err != nil {
		acc.limiter.ObserveError(err)
		return 0, fmt.Errorf("resolve handle %s: %w", username, err)
	}

	for _, u := range resolved.Users {
		if user, ok := u.(*tg.User); ok {
			return user.ID, nil
		}
	}
	return 0, fmt.Errorf("handle %s does not name a user", username)
}

// NoopResolver is used when no MTProto account session is configured.
type NoopResolver struct{}

// ResolveHandle always reports the handle as unresolved.
func (NoopResolver) ResolveHandle(ctx context.Context, handle string) (int64, error) {
	return 0, fmt.Errorf("resolution disabled: no account session configured")
}
