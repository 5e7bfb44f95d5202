package wizard

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Dantescur/msfback/internal/logger"
	"github.com/Dantescur/msfback/internal/session"
)

// RetryPolicy bounds how often one read-merge-write cycle is attempted.
// Delays start at BaseDelay and double on every retry, without jitter.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, BaseDelay: 100 * time.Millisecond}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = p.BaseDelay << attempts
	b.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// retryable reports whether another attempt could change the outcome.
// Only transient store failures qualify; permission and logical failures
// are returned after the first attempt.
func retryable(err error) bool {
	return session.KindOf(err) == session.KindStoreUnavailable
}

func withRetry[T any](ctx context.Context, p RetryPolicy, op string, fn func() (T, error)) (T, error) {
	attempt := 0
	operation := func() (T, error) {
		attempt++
		v, err := fn()
		if err != nil && !retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn("session operation failed, retrying", map[string]any{
			"op":      op,
			"attempt": attempt,
			"wait_ms": wait.Milliseconds(),
			"error":   err.Error(),
		})
	}

	v, err := backoff.RetryNotifyWithData[T](operation, p.backOff(ctx), notify)
	if err != nil && session.KindOf(err) == session.KindUnknown &&
		(errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return v, session.WrapError(session.KindStoreUnavailable, op+": could not determine outcome", err)
	}
	return v, err
}
