// Package retry provides bounded exponential backoff for the Transient
// error class described in spec.md §7: retried with bounded backoff,
// surfaced only once retries are exhausted.
package retry

import (
	"context"
	crand "crypto/rand"
	"math/big"
	"time"

	"github.com/indranet/indra/internal/errs"
)

// Policy bounds the retry loop.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Default is a conservative policy suitable for cross-peer round-trips.
func Default() Policy {
	return Policy{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: 5 * time.Second}
}

// Do runs fn, retrying while it returns a Transient error, until
// MaxAttempts is reached or ctx is cancelled. Non-Transient errors and the
// final exhausted attempt are returned verbatim.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	delay := p.BaseDelay
	var err error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !errs.OfKind(err, errs.KindTransient) {
			return err
		}
		if attempt == p.MaxAttempts-1 {
			break
		}
		wait := delay + jitter(delay/4)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		delay *= 2
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return err
}

// jitter returns a uniformly random duration in [0, max), using a
// cryptographic source so the backoff schedule can't be predicted by a
// peer on the other end of a round-trip.
func jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	n, err := crand.Int(crand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0
	}
	return time.Duration(n.Int64())
}
