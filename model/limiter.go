package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/memorybench/core"
)

// CallLimitError is returned once a Limited model has spent its budget.
type CallLimitError struct {
	Max int
}

func (e *CallLimitError) Error() string {
	return fmt.Sprintf("model: exceeded max model calls: %d", e.Max)
}

// Limited caps the number of Generate calls forwarded to a model. Calls over
// the budget fail permanently so retry policies give up at once.
type Limited struct {
	next Model
	max  int

	mu    sync.Mutex
	count int
}

var _ Model = (*Limited)(nil)

// NewLimited wraps m. A max of zero allows unlimited calls.
func NewLimited(m Model, max int) *Limited {
	return &Limited{next: m, max: max}
}

func (l *Limited) acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.max > 0 && l.count >= l.max {
		return &CallLimitError{Max: l.max}
	}
	l.count++
	return nil
}

// Generate forwards req while budget remains.
func (l *Limited) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := l.acquire(); err != nil {
		return nil, core.Permanent(err)
	}
	return l.next.Generate(ctx, req)
}

// Info returns the wrapped model's info.
func (l *Limited) Info() Info { return l.next.Info() }

// Count returns the number of forwarded calls.
func (l *Limited) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Remaining returns the calls left, or -1 when unlimited.
func (l *Limited) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.max == 0 {
		return -1
	}
	return l.max - l.count
}
