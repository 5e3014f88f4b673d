package testutil

import (
	"context"
	"sync"

	"github.com/hupe1980/memorybench/core"
)

// AddCall records one Add invocation.
type AddCall struct {
	Identity string
	Messages []core.Message
	Metadata map[string]any
}

// RecordingWriter is a core.MemoryWriter that records every call. Optional
// hooks inject failures; they receive the zero-based number of previous
// calls for the same identity.
type RecordingWriter struct {
	mu      sync.Mutex
	resets  []string
	adds    []AddCall
	perID   map[string]int
	ResetFn func(identity string) error
	AddFn   func(identity string, call int, messages []core.Message) error
}

var _ core.MemoryWriter = (*RecordingWriter)(nil)

// Reset records the reset and consults ResetFn.
func (w *RecordingWriter) Reset(_ context.Context, identity string) error {
	w.mu.Lock()
	w.resets = append(w.resets, identity)
	fn := w.ResetFn
	w.mu.Unlock()
	if fn != nil {
		return fn(identity)
	}
	return nil
}

// Add records the batch and consults AddFn. Failed calls are recorded as well.
func (w *RecordingWriter) Add(_ context.Context, identity string, messages []core.Message, metadata map[string]any) error {
	w.mu.Lock()
	if w.perID == nil {
		w.perID = make(map[string]int)
	}
	call := w.perID[identity]
	w.perID[identity]++
	cp := append([]core.Message(nil), messages...)
	w.adds = append(w.adds, AddCall{Identity: identity, Messages: cp, Metadata: metadata})
	fn := w.AddFn
	w.mu.Unlock()
	if fn != nil {
		return fn(identity, call, messages)
	}
	return nil
}

// Resets returns the identities reset so far.
func (w *RecordingWriter) Resets() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.resets...)
}

// Adds returns every recorded Add call.
func (w *RecordingWriter) Adds() []AddCall {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]AddCall(nil), w.adds...)
}

// AddsFor returns the Add calls of one identity in submission order.
func (w *RecordingWriter) AddsFor(identity string) []AddCall {
	var out []AddCall
	for _, c := range w.Adds() {
		if c.Identity == identity {
			out = append(out, c)
		}
	}
	return out
}

// SearchCall records one search invocation.
type SearchCall struct {
	Identity string
	Query    string
	Options  core.SearchOptions
	Graph    core.GraphQuery
}

// FakeRankedBackend serves canned ranked results per identity.
type FakeRankedBackend struct {
	RecordingWriter
	Results  map[string]*core.RankedResult
	SearchFn func(identity string, call int) error

	smu      sync.Mutex
	searches []SearchCall
}

var _ core.RankedMemoryBackend = (*FakeRankedBackend)(nil)

// SearchMemories returns the canned result of identity.
func (f *FakeRankedBackend) SearchMemories(_ context.Context, identity, query string, opts core.SearchOptions) (*core.RankedResult, error) {
	f.smu.Lock()
	call := countFor(f.searches, identity)
	f.searches = append(f.searches, SearchCall{Identity: identity, Query: query, Options: opts})
	f.smu.Unlock()
	if f.SearchFn != nil {
		if err := f.SearchFn(identity, call); err != nil {
			return nil, err
		}
	}
	if r, ok := f.Results[identity]; ok {
		return r, nil
	}
	return &core.RankedResult{}, nil
}

// Searches returns the recorded searches.
func (f *FakeRankedBackend) Searches() []SearchCall {
	f.smu.Lock()
	defer f.smu.Unlock()
	return append([]SearchCall(nil), f.searches...)
}

// FakeGraphBackend serves canned facts and entities per identity.
type FakeGraphBackend struct {
	RecordingWriter
	Facts    map[string][]core.Fact
	Entities map[string][]core.Entity

	smu      sync.Mutex
	searches []SearchCall
}

var _ core.GraphMemoryBackend = (*FakeGraphBackend)(nil)

// SearchFacts returns the canned facts of identity.
func (f *FakeGraphBackend) SearchFacts(_ context.Context, identity, query string, q core.GraphQuery) ([]core.Fact, error) {
	f.record(SearchCall{Identity: identity, Query: query, Graph: q})
	return f.Facts[identity], nil
}

// SearchEntities returns the canned entities of identity.
func (f *FakeGraphBackend) SearchEntities(_ context.Context, identity, query string, q core.GraphQuery) ([]core.Entity, error) {
	f.record(SearchCall{Identity: identity, Query: query, Graph: q})
	return f.Entities[identity], nil
}

func (f *FakeGraphBackend) record(c SearchCall) {
	f.smu.Lock()
	defer f.smu.Unlock()
	f.searches = append(f.searches, c)
}

// Searches returns the recorded searches.
func (f *FakeGraphBackend) Searches() []SearchCall {
	f.smu.Lock()
	defer f.smu.Unlock()
	return append([]SearchCall(nil), f.searches...)
}

func countFor(calls []SearchCall, identity string) int {
	n := 0
	for _, c := range calls {
		if c.Identity == identity {
			n++
		}
	}
	return n
}
