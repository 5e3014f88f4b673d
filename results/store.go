package results

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/hupe1980/memorybench/core"
)

const indent = "    "

// Store is the append-only, incrementally flushed result collection of a
// run. It is safe for concurrent use; Append and its flush form a single
// critical section.
type Store struct {
	mu      sync.Mutex
	sink    Sink
	records map[int][]*core.ResultRecord
}

// NewStore returns an empty store writing to sink.
func NewStore(sink Sink) *Store {
	return &Store{sink: sink, records: make(map[int][]*core.ResultRecord)}
}

// Open returns a store seeded with the document previously written to sink.
// A missing document yields an empty store.
func Open(ctx context.Context, sink Sink) (*Store, error) {
	s := NewStore(sink)
	data, err := sink.Read(ctx)
	if errors.Is(err, ErrNotFound) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return s, nil
	}
	var doc map[string][]*core.ResultRecord
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode result document: %w", err)
	}
	for key, recs := range doc {
		idx, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("result document: invalid conversation key %q", key)
		}
		s.records[idx] = recs
	}
	return s, nil
}

// Append adds record under the conversation index and rewrites the whole
// document before returning. If the write fails the record stays in memory
// and is persisted by the next successful flush.
func (s *Store) Append(ctx context.Context, index int, record *core.ResultRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[index] = append(s.records[index], record)
	return s.flushLocked(ctx)
}

// Flush rewrites the document.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(ctx)
}

func (s *Store) flushLocked(ctx context.Context) error {
	data, err := s.marshalLocked()
	if err != nil {
		return err
	}
	if err := s.sink.Write(ctx, data); err != nil {
		return fmt.Errorf("flush results: %w", err)
	}
	return nil
}

// MarshalJSON renders the document with numerically ordered keys.
func (s *Store) MarshalJSON() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.marshalLocked()
}

func (s *Store) marshalLocked() ([]byte, error) {
	keys := make([]int, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	if len(keys) == 0 {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, k := range keys {
		recs := s.records[k]
		if recs == nil {
			recs = []*core.ResultRecord{}
		}
		body, err := json.MarshalIndent(recs, indent, indent)
		if err != nil {
			return nil, fmt.Errorf("encode conversation %d: %w", k, err)
		}
		fmt.Fprintf(&buf, "%s%q: ", indent, strconv.Itoa(k))
		buf.Write(body)
		if i < len(keys)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}")
	return buf.Bytes(), nil
}

// Records returns a copy of the records of one conversation in append order.
func (s *Store) Records(index int) []*core.ResultRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*core.ResultRecord(nil), s.records[index]...)
}

// Len returns the total number of records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, recs := range s.records {
		n += len(recs)
	}
	return n
}

// Has reports whether a record for question exists under index.
func (s *Store) Has(index int, question string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records[index] {
		if r.Question == question {
			return true
		}
	}
	return false
}
