// Package retry retries startup connections to backing services with capped
// exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Policy describes how often and how long an operation is retried
type Policy struct {
	// Name identifies the dependency in errors and log lines
	Name          string
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	// MaxElapsed bounds the whole retry loop; zero means only ctx bounds it
	MaxElapsed time.Duration
	// Logger receives one warning per failed attempt; nil disables logging
	Logger *zerolog.Logger
}

// DefaultPolicy waits up to a minute for a dependency to come up
func DefaultPolicy(name string, logger *zerolog.Logger) Policy {
	return Policy{
		Name:          name,
		MaxAttempts:   10,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
		MaxElapsed:    time.Minute,
		Logger:        logger,
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error at once.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// NextDelay returns the wait after a failed attempt that waited current
func (p Policy) NextDelay(current time.Duration) time.Duration {
	next := time.Duration(float64(current) * p.BackoffFactor)
	if p.MaxDelay > 0 && next > p.MaxDelay {
		return p.MaxDelay
	}
	return next
}

// Do calls fn until it succeeds, returns a Permanent error, or the policy is exhausted
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.MaxElapsed > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.MaxElapsed)
		defer cancel()
	}

	var lastErr error
	delay := p.InitialDelay

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return p.aborted(attempt-1, err, lastErr)
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}

		var permanent *permanentError
		if errors.As(err, &permanent) {
			return fmt.Errorf("%s: %w", p.Name, permanent.err)
		}
		lastErr = err

		if attempt == p.MaxAttempts {
			break
		}

		if p.Logger != nil {
			p.Logger.Warn().
				Str("dependency", p.Name).
				Int("attempt", attempt).
				Err(err).
				Dur("next_delay", delay).
				Msg("Connection attempt failed")
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return p.aborted(attempt, ctx.Err(), lastErr)
		case <-timer.C:
		}
		delay = p.NextDelay(delay)
	}

	return fmt.Errorf("%s: max retry attempts (%d) exceeded: %w", p.Name, p.MaxAttempts, lastErr)
}

func (p Policy) aborted(attempts int, ctxErr, lastErr error) error {
	if lastErr == nil {
		return fmt.Errorf("%s: retry aborted: %w", p.Name, ctxErr)
	}
	return fmt.Errorf("%s: retry aborted after %d attempts: %w (last error: %v)", p.Name, attempts, ctxErr, lastErr)
}
