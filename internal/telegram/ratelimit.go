// Package telegram provides MTProto account handling and outbound pacing.
package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter paces outbound calls to the Telegram API.
type RateLimiter struct {
	limiter *rate.Limiter

	// additional backoff after FLOOD_WAIT
	floodWaitUntil time.Time
	mu             sync.Mutex
}

// NewRateLimiter creates a rate limiter.
// rps - requests per second, burst - allowed burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// DefaultRateLimiter returns a limiter with conservative settings
// suitable for report relays and scheduled sends.
func DefaultRateLimiter() *RateLimiter {
	return NewRateLimiter(1.0, 1)
}

// Wait blocks until the next request is allowed.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	waitUntil := r.floodWaitUntil
	r.mu.Unlock()

	// if flood wait is active - wait for it
	if time.Now().Before(waitUntil) {
		select {
		case <-time.After(time.Until(waitUntil)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return r.limiter.Wait(ctx)
}

// SetFloodWait sets a pause after a FLOOD_WAIT error.
func (r *RateLimiter) SetFloodWait(seconds int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.floodWaitUntil = time.Now().Add(time.Duration(seconds) * time.Second)
}

// ObserveError inspects err for a FLOOD_WAIT code and, when found,
// applies the server-requested pause. Returns true if a pause was set.
func (r *RateLimiter) ObserveError(err error) bool {
	wait := ParseFloodWait(err)
	if wait <= 0 {
		return false
	}
	r.SetFloodWait(wait)
	return true
}

// ParseFloodWait extracts the wait seconds from a FLOOD_WAIT_X error.
// Matching on the error string avoids coupling to gotd error types; both
// the Bot API and MTProto surface the code in the message.
func ParseFloodWait(err error) int {
	if err == nil {
		return 0
	}

	str := err.Error()
	parts := strings.Split(str, "FLOOD_WAIT_")
	if len(parts) < 2 {
		return 0
	}

	var seconds int
	_, _ = fmt.Sscanf(strings.TrimSpace(parts[1]), "%d", &seconds)
	return seconds
}
