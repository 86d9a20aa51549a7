package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/zombor/receipt-forensics/internal/analysis"
)

// Policy describes how a fallible call is retried.
type Policy struct {
	// MaxAttempts is the total number of calls, including the first one.
	MaxAttempts int
	// Backoff returns the delay before the given retry (1 = first retry).
	Backoff func(retry int) time.Duration
	// Retryable decides whether an error may be retried.
	Retryable func(err error) bool
	// Sleep waits for d or until ctx is done. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
	// Logger receives one warning per retry.
	Logger *slog.Logger
}

// DefaultPolicy returns the policy used for model calls: 3 attempts, exponential
// backoff from 500ms with jitter, retrying only transient service errors.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Backoff:     ExponentialJitter(500*time.Millisecond, 8*time.Second),
		Retryable:   IsTransient,
		Sleep:       sleep,
	}
}

// IsTransient reports whether err is a transient service error.
func IsTransient(err error) bool {
	return errors.Is(err, analysis.ErrTransientService)
}

// ExponentialJitter doubles base for every retry, caps it at ceiling and adds
// up to 50% random jitter.
func ExponentialJitter(base, ceiling time.Duration) func(int) time.Duration {
	return func(retry int) time.Duration {
		if retry < 1 {
			retry = 1
		}
		d := base << (retry - 1)
		if d <= 0 || d > ceiling {
			d = ceiling
		}
		jitter := time.Duration(rand.Int64N(int64(d)/2 + 1))
		return d + jitter
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.Backoff == nil {
		p.Backoff = d.Backoff
	}
	if p.Retryable == nil {
		p.Retryable = d.Retryable
	}
	if p.Sleep == nil {
		p.Sleep = d.Sleep
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	return p
}

// Do runs fn until it succeeds, fails with a non-retryable error, or the
// attempts are exhausted. Non-retryable errors are returned unchanged.
// Exhaustion is reported as analysis.ErrProcessingFailed wrapping the last
// error.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()

	var zero T
	for attempt := 1; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if !p.Retryable(err) {
			return zero, err
		}
		if attempt >= p.MaxAttempts {
			return zero, fmt.Errorf("%w after %d attempts: %w", analysis.ErrProcessingFailed, attempt, err)
		}

		delay := p.Backoff(attempt)
		p.Logger.Warn("call failed, retrying",
			"attempt", attempt,
			"max_attempts", p.MaxAttempts,
			"delay", delay,
			"error", err,
		)
		if err := p.Sleep(ctx, delay); err != nil {
			return zero, fmt.Errorf("waiting to retry: %w", err)
		}
	}
}
