package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"

	"github.com/hupe1980/memorybench/core"
)

// StoredMemory is the internal representation persisted by InMemoryStore.
type StoredMemory struct {
	ID       string
	Content  string
	Role     core.Role
	Metadata map[string]any
	tokens   map[string]struct{}
}

// InMemoryStore is a naive process-local core.RankedMemoryBackend. Every
// added message becomes one memory; search ranks memories by the share of
// query terms they contain.
//
// Concurrency: protected by RWMutex. Suitable only for tests and offline
// dry runs; it performs no memory extraction.
type InMemoryStore struct {
	mu      sync.RWMutex
	storage map[string][]StoredMemory // identity -> memories in insertion order
}

var _ core.RankedMemoryBackend = (*InMemoryStore)(nil)

// NewInMemoryStore creates a new in-memory memory store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{storage: make(map[string][]StoredMemory)}
}

// Reset removes every memory of identity.
func (m *InMemoryStore) Reset(_ context.Context, identity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.storage, identity)
	return nil
}

// Add stores each message as a memory carrying a copy of metadata.
func (m *InMemoryStore) Add(_ context.Context, identity string, messages []core.Message, metadata map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range messages {
		md := make(map[string]any, len(metadata))
		for k, v := range metadata {
			md[k] = v
		}
		m.storage[identity] = append(m.storage[identity], StoredMemory{
			ID:       uuid.NewString(),
			Content:  msg.Content,
			Role:     msg.Role,
			Metadata: md,
			tokens:   tokenSet(msg.Content),
		})
	}
	return nil
}

// Len returns the number of memories of identity.
func (m *InMemoryStore) Len(identity string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.storage[identity])
}

// SearchMemories scores memories by query term overlap. Ties keep
// insertion order. Filters other than user_id must equal the memory
// metadata. Graph searches return an empty relation list.
func (m *InMemoryStore) SearchMemories(_ context.Context, identity, query string, opts core.SearchOptions) (*core.RankedResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q := tokenSet(query)
	type hit struct {
		mem   StoredMemory
		score float64
	}
	var hits []hit
	for _, stored := range m.storage[identity] {
		if !matches(stored.Metadata, opts.Filters) {
			continue
		}
		score := overlap(q, stored.tokens)
		if score == 0 {
			continue
		}
		hits = append(hits, hit{mem: stored, score: score})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if opts.Limit > 0 && len(hits) > opts.Limit {
		hits = hits[:opts.Limit]
	}

	res := &core.RankedResult{Memories: make([]core.MemoryRecord, 0, len(hits))}
	for _, h := range hits {
		ts, _ := h.mem.Metadata["timestamp"].(string)
		res.Memories = append(res.Memories, core.NewMemoryRecord(h.mem.Content, ts, h.score))
	}
	if opts.Graph {
		res.Relations = []core.Relation{}
	}
	return res, nil
}

func matches(metadata, filters map[string]any) bool {
	for k, v := range filters {
		if k == "user_id" {
			continue
		}
		if metadata[k] != v {
			return false
		}
	}
	return true
}

func overlap(query, doc map[string]struct{}) float64 {
	if len(query) == 0 {
		return 0
	}
	n := 0
	for t := range query {
		if _, ok := doc[t]; ok {
			n++
		}
	}
	return float64(n) / float64(len(query))
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
