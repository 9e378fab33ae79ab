package telegram

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRateLimiter_Wait(t *testing.T) {
	rl := NewRateLimiter(10.0, 1)

	ctx := context.Background()
	start := time.Now()
	err := rl.Wait(ctx)
	elapsed := time.Since(start)

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	// first request fits in the burst
	if elapsed > 50*time.Millisecond {
		t.Errorf("expected immediate response, got %v", elapsed)
	}
}

func TestRateLimiter_Wait_ContextCanceled(t *testing.T) {
	rl := NewRateLimiter(0.1, 1)

	// use up the burst
	_ = rl.Wait(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := rl.Wait(ctx); err == nil {
		t.Error("expected error due to context timeout, got nil")
	}
}

func TestRateLimiter_ObserveError(t *testing.T) {
	rl := NewRateLimiter(10.0, 1)

	if rl.ObserveError(errors.New("PEER_ID_INVALID")) {
		t.Error("non-flood error should not pause the limiter")
	}

	if !rl.ObserveError(errors.New("rpc error code 420: FLOOD_WAIT_2")) {
		t.Error("flood error should pause the limiter")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := rl.Wait(ctx); err == nil {
		t.Error("expected wait to block during flood pause")
	}
}

func TestParseFloodWait(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{errors.New("FLOOD_WAIT_15"), 15},
		{errors.New("rpc error: code 420: FLOOD_WAIT_300 (caused by messages.SendMessage)"), 300},
		{errors.New("USERNAME_NOT_OCCUPIED"), 0},
	}

	for _, tt := range tests {
		if got := ParseFloodWait(tt.err); got != tt.want {
			t.Errorf("ParseFloodWait(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
