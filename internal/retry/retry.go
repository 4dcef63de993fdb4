// Package retry provides the exponential-backoff wrapper applied at every
// remote-call boundary of the pipeline.
package retry

import (
	"context"
	"time"

	"github.com/book-expert/logger"
	"github.com/cenkalti/backoff/v4"

	"github.com/papercast-dev/papercast/internal/core"
)

// Default backoff bounds, matching the pipeline-wide retry contract.
const (
	DefaultMaxAttempts = 3
	DefaultMinWait     = 4 * time.Second
	DefaultMaxWait     = 10 * time.Second
)

// Policy describes how a remote operation is retried. The same configured
// value is reused at every call site needing one; a zero field falls back to
// its default. Wait grows as min(MinWait * 2^(attempt-1), MaxWait) with no
// jitter.
type Policy struct {
	// MaxAttempts bounds the total number of invocations, first try
	// included.
	MaxAttempts int

	// MinWait is the backoff before the first retry.
	MinWait time.Duration

	// MaxWait caps the backoff between attempts.
	MaxWait time.Duration

	// IsTransient classifies failures; non-transient errors propagate
	// immediately with no wait. Defaults to core.IsTransient.
	IsTransient func(error) bool

	// Log receives one warning per failed attempt. May be nil.
	Log *logger.Logger
}

// NewPolicy returns a Policy with the supplied bounds and the default
// transient classifier.
func NewPolicy(maxAttempts int, minWait, maxWait time.Duration, log *logger.Logger) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		MinWait:     minWait,
		MaxWait:     maxWait,
		IsTransient: core.IsTransient,
		Log:         log,
	}
}

// Do invokes op until it succeeds, a permanent error occurs, the context is
// cancelled, or MaxAttempts is exhausted. It returns the number of
// invocations made and the last error, unchanged.
func (p Policy) Do(ctx context.Context, operation string, op func(context.Context) error) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	isTransient := p.IsTransient
	if isTransient == nil {
		isTransient = core.IsTransient
	}

	attempts := 0

	wrapped := func() error {
		attempts++

		err := op(ctx)
		if err == nil {
			return nil
		}

		if !isTransient(err) {
			return backoff.Permanent(err)
		}

		p.warn("%s: attempt %d/%d failed: %v", operation, attempts, maxAttempts, err)

		return err
	}

	err := backoff.Retry(wrapped, p.newBackOff(ctx, maxAttempts))
	if err != nil {
		return attempts, err
	}

	return attempts, nil
}

// DoValue is the value-returning form of Policy.Do.
func DoValue[T any](
	ctx context.Context,
	p Policy,
	operation string,
	op func(context.Context) (T, error),
) (T, int, error) {
	var result T

	attempts, err := p.Do(ctx, operation, func(ctx context.Context) error {
		value, opErr := op(ctx)
		if opErr != nil {
			return opErr
		}

		result = value

		return nil
	})
	if err != nil {
		var zero T

		return zero, attempts, err
	}

	return result, attempts, nil
}

func (p Policy) newBackOff(ctx context.Context, maxAttempts int) backoff.BackOffContext {
	minWait := p.MinWait
	if minWait <= 0 {
		minWait = DefaultMinWait
	}

	maxWait := p.MaxWait
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = minWait
	expo.MaxInterval = maxWait
	expo.Multiplier = 2
	expo.RandomizationFactor = 0
	expo.MaxElapsedTime = 0

	capped := backoff.WithMaxRetries(expo, uint64(maxAttempts-1))

	return backoff.WithContext(capped, ctx)
}

func (p Policy) warn(format string, args ...any) {
	if p.Log != nil {
		p.Log.Warn(format, args...)
	}
}
