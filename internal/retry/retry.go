// Package retry runs provider calls under an exponential backoff policy.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy describes how many times and how fast a call is retried.
// The zero value performs a single attempt.
type Policy struct {
	MaxRetries int
	Initial    time.Duration
	Max        time.Duration
}

// Enabled reports whether the policy performs more than one attempt.
func (p Policy) Enabled() bool {
	return p.MaxRetries > 0
}

// Permanent marks err as not worth retrying. Do returns the unwrapped error.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var perm *backoff.PermanentError
	return errors.As(err, &perm)
}

// Do calls op until it succeeds, returns a permanent error, the context is
// done, or MaxRetries extra attempts have been spent. attempts is the number
// of calls made.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) (attempts int, err error) {
	wrapped := func() error {
		attempts++
		return op(ctx)
	}

	if !p.Enabled() {
		err = wrapped()
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
		return attempts, err
	}

	eb := backoff.NewExponentialBackOff()
	if p.Initial > 0 {
		eb.InitialInterval = p.Initial
	}
	if p.Max > 0 {
		eb.MaxInterval = p.Max
	}
	eb.MaxElapsedTime = 0 // bounded by MaxRetries and ctx

	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.MaxRetries)), ctx)
	err = backoff.Retry(wrapped, b)
	return attempts, err
}
