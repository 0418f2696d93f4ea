// Package retry implements the bounded-retry combinator from Design Notes
// row 2: "a retry combinator parameterized by attempt cap, backoff
// function, and classifier". The spec's backoff formulas are exact
// per-kind constants that don't map onto a single cenkalti/backoff
// ExponentialBackOff configuration, so RPCGlobalBackoff and ExplorerBackoff
// are hand-written per spec §4.2/§4.3, including their exponential and
// jitter parts; backoff.ExponentialBackOff is used only through
// NewExponential.
package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/kismp123/bugchainindexer-go/internal/indexerr"
)

// Classify maps an error to a retry decision.
type Classify func(err error) indexerr.Kind

// Do runs fn up to attempts times, sleeping per backoff between attempts,
// classifying each failure with classify. It stops early on a Permanent or
// ShapeMismatch-exhausted classification. ctx cancellation aborts
// immediately.
func Do(ctx context.Context, attempts int, backoffFor func(attempt int, kind indexerr.Kind) time.Duration, classify Classify, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		kind := classify(err)
		if kind == indexerr.KindPermanent {
			return err
		}
		if attempt == attempts {
			break
		}
		d := backoffFor(attempt, kind)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
		}
	}
	return lastErr
}

// RPCGlobalBackoff implements spec §4.2's global-retry schedule: 2s×attempt
// normally, capped exponential 5s×2^(n-1) (max 30s) for rate-limit errors.
func RPCGlobalBackoff(attempt int, kind indexerr.Kind) time.Duration {
	if kind == indexerr.KindRateLimited {
		d := 5 * time.Second * time.Duration(1<<uint(attempt-1))
		if d > 30*time.Second {
			d = 30 * time.Second
		}
		return d
	}
	return 2 * time.Second * time.Duration(attempt)
}

// ExplorerBackoff implements spec §4.3's explorer retry schedule:
// (10s or 12s) × attempt + jitter(0..3s), advancing the API-key index is
// the caller's responsibility (it happens once per retry regardless of
// which constant is used).
func ExplorerBackoff(base time.Duration, attempt int) time.Duration {
	jitter := time.Duration(rand.Int63n(int64(3 * time.Second)))
	return base*time.Duration(attempt) + jitter
}

// NewExponential returns a cenkalti/backoff ExponentialBackOff tuned for
// the pure-exponential legs used outside the spec-exact formulas above
// (e.g. a component's own internal reconnect loop). Kept for reuse by any
// internal package that needs vanilla exponential backoff without the
// spec's per-kind branching.
func NewExponential(initial, max time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = max
	b.MaxElapsedTime = 0 // caller controls attempt count
	return b
}

// JitteredSleep sleeps a uniform random duration in [min, max), used by
// the batch read engine's post-socket-error sleep (spec §4.5 step 3: 1-2s
// jittered). The scheduler's per-dispatch delay uses its own sleepJitter.
func JitteredSleep(ctx context.Context, min, max time.Duration) {
	if max <= min {
		select {
		case <-ctx.Done():
		case <-time.After(min):
		}
		return
	}
	d := min + time.Duration(rand.Int63n(int64(max-min)))
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
