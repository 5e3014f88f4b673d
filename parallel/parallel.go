// Package parallel runs independent units of work (conversations, questions,
// identities) concurrently.
//
// Run executes units on a bounded worker pool and Pair runs exactly two
// tasks side by side. Both wait for every task to finish and return the
// first error only afterwards: a failing unit never cancels its siblings.
package parallel

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// PanicError is returned for a unit that panicked.
type PanicError struct {
	Index int
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("unit %d panicked: %v", e.Index, e.Value)
}

// Run submits every unit to a pool of at most workers goroutines and blocks
// until all of them completed. The returned error is the failure of the
// lowest-indexed failing unit. workers <= 0 means one worker per unit.
func Run[T any](ctx context.Context, units []T, workers int, fn func(ctx context.Context, i int, unit T) error) error {
	if len(units) == 0 {
		return nil
	}
	if workers <= 0 || workers > len(units) {
		workers = len(units)
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	errs := make([]error, len(units))
	var wg sync.WaitGroup
	for i, u := range units {
		wg.Add(1)
		i, u := i, u
		task := func() {
			defer wg.Done()
			errs[i] = guard(i, func() error { return fn(ctx, i, u) })
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			errs[i] = fmt.Errorf("submit unit %d: %w", i, err)
		}
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Pair runs a and b concurrently, waits for both, and returns a's error if
// any, otherwise b's.
func Pair(ctx context.Context, a, b func(context.Context) error) error {
	var wg sync.WaitGroup
	var errA, errB error
	wg.Add(2)
	go func() {
		defer wg.Done()
		errA = guard(0, func() error { return a(ctx) })
	}()
	go func() {
		defer wg.Done()
		errB = guard(1, func() error { return b(ctx) })
	}()
	wg.Wait()
	if errA != nil {
		return errA
	}
	return errB
}

func guard(i int, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Index: i, Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}
