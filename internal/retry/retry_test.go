package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/indranet/indra/internal/errs"
)

func TestDoRetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}
	err := Do(context.Background(), p, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errs.New("dial", errs.Timeout, nil)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDoDoesNotRetryNonTransient(t *testing.T) {
	calls := 0
	p := Default()
	err := Do(context.Background(), p, func(ctx context.Context) error {
		calls++
		return errs.New("grant", errs.NotOwner, nil)
	})
	if !errors.Is(err, errs.NotOwner) {
		t.Fatalf("expected NotOwner, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 call, got %d", calls)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	p := Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
	err := Do(context.Background(), p, func(ctx context.Context) error {
		calls++
		return errs.New("dial", errs.NotConnected, nil)
	})
	if !errors.Is(err, errs.NotConnected) {
		t.Fatalf("expected NotConnected after exhaustion, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}
