// Package retry wraps calls to remote services (memory add, memory search,
// answer generation) with a bounded number of attempts and a constant delay
// between them. The final failure is always surfaced to the caller as a
// *core.RetryExhaustedError.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/hupe1980/memorybench/core"
	"github.com/hupe1980/memorybench/logging"
)

const (
	// DefaultMaxAttempts is the attempt budget including the first call.
	DefaultMaxAttempts = 3
	// DefaultDelay is the constant pause between attempts.
	DefaultDelay = time.Second
)

// Policy configures a retried call.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	// Name identifies the operation in errors and logs.
	Name   string
	Logger logging.Logger
	// OnRetry, if set, is invoked before every delay with the 1-based number
	// of the attempt that just failed.
	OnRetry func(attempt int, err error)
}

// DefaultPolicy returns 3 attempts with a one second delay.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, Delay: DefaultDelay}
}

// Named returns a copy of p labeled with name.
func (p Policy) Named(name string) Policy {
	p.Name = name
	return p
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	if p.Name == "" {
		p.Name = "remote call"
	}
	p.Logger = logging.OrNoOp(p.Logger)
	return p
}

// Do invokes op until it succeeds or the attempt budget is spent.
func Do[T any](ctx context.Context, policy Policy, op func(context.Context) (T, error)) (T, error) {
	p := policy.normalized()
	attempts := 0
	var last error

	res, err := backoff.Retry(ctx, func() (T, error) {
		attempts++
		v, err := op(ctx)
		if err != nil {
			last = err
			if core.IsPermanent(err) || ctx.Err() != nil {
				return v, backoff.Permanent(err)
			}
		}
		return v, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(p.Delay)),
		backoff.WithMaxTries(uint(p.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			p.Logger.Warn("Retrying...", "operation", p.Name, "attempt", attempts, "delay", next, "error", err.Error())
			if p.OnRetry != nil {
				p.OnRetry(attempts, err)
			}
		}),
	)
	if err == nil {
		return res, nil
	}
	if last == nil {
		// Context ended before the first attempt completed.
		last = err
	}
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(last, ctxErr) {
		last = errors.Join(last, ctxErr)
	}
	return res, &core.RetryExhaustedError{Op: p.Name, Attempts: attempts, Err: last}
}

// Run is Do for operations without a result value.
func Run(ctx context.Context, policy Policy, op func(context.Context) error) error {
	_, err := Do(ctx, policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}
