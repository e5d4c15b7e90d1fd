// Package retry implements the exponential backoff loops gotelnet
// uses to survive flaky links: the client re-dialing a dropped
// session, the listener riding out transient accept failures.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Backoff schedules retries with exponentially growing delays.  The
// zero value is usable; unset fields fall back to the defaults noted
// on each field.
type Backoff struct {
	InitialDelay time.Duration // delay before the second attempt (1s)
	MaxDelay     time.Duration // ceiling for the delay curve (60s)
	Multiplier   float64       // growth factor per attempt (2.0)

	// MaxAttempts bounds the total number of calls, first try
	// included.  0 means no bound; only the context stops the loop.
	MaxAttempts int

	// Jitter spreads delays by ±25% so herds of reconnecting
	// clients don't arrive in lockstep.
	Jitter bool
}

// DefaultBackoff is tuned for re-dialing a lost session.
func DefaultBackoff() *Backoff {
	return &Backoff{
		InitialDelay: time.Second,
		MaxDelay:     60 * time.Second,
		Multiplier:   2.0,
		MaxAttempts:  10,
		Jitter:       true,
	}
}

// Do calls fn until it returns nil, a [Permanent] error, or the
// attempt budget runs out.  attempt counts from 1.  Between calls Do
// sleeps the scheduled delay, aborting early when ctx is cancelled.
func (b *Backoff) Do(ctx context.Context, fn func(attempt int) error) error {
	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}

		var pe *PermanentError
		if errors.As(err, &pe) {
			return pe.Err
		}

		if b.MaxAttempts > 0 && attempt >= b.MaxAttempts {
			return fmt.Errorf("gave up after %d attempts: %w", attempt, err)
		}

		if werr := b.sleep(ctx, b.delay(attempt)); werr != nil {
			return werr
		}
	}
}

// delay computes the wait after the attempt-th failure.
func (b *Backoff) delay(attempt int) time.Duration {
	initial := b.InitialDelay
	if initial <= 0 {
		initial = time.Second
	}
	ceiling := b.MaxDelay
	if ceiling <= 0 {
		ceiling = 60 * time.Second
	}
	factor := b.Multiplier
	if factor <= 0 {
		factor = 2.0
	}

	d := time.Duration(float64(initial) * math.Pow(factor, float64(attempt-1)))
	if d <= 0 || d > ceiling { // <= 0 catches float overflow
		d = ceiling
	}
	if b.Jitter {
		d = addJitter(d)
	}
	return d
}

// sleep waits for d or for the context, whichever ends first.
func (b *Backoff) sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("retry aborted: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}

// addJitter spreads d by ±25%, never returning less than 1ms.
func addJitter(d time.Duration) time.Duration {
	spread := (rand.Float64() - 0.5) * 0.5 * float64(d)
	j := time.Duration(float64(d) + spread)
	if j < time.Millisecond {
		j = time.Millisecond
	}
	return j
}

// ── Permanent errors ─────────────────────────────────────────────────

// PermanentError marks its inner error as not worth retrying.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so [Backoff.Do] stops immediately and returns
// the original error.  Permanent(nil) is nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err carries the permanent marker.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
