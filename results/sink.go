package results

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound is returned by Sink.Read when no document was written yet.
var ErrNotFound = errors.New("result document not found")

// Sink persists the serialized result document.
type Sink interface {
	// Write replaces the stored document with data.
	Write(ctx context.Context, data []byte) error
	// Read returns the stored document or ErrNotFound.
	Read(ctx context.Context) ([]byte, error)
}

// FileSink stores the document in a local file. Writes go to a sibling temp
// file that is renamed over the target, so readers never observe a torn
// document.
type FileSink struct {
	Path string
}

var _ Sink = (*FileSink)(nil)

// NewFileSink returns a sink writing to path.
func NewFileSink(path string) *FileSink {
	return &FileSink{Path: path}
}

// Write implements Sink.
func (s *FileSink) Write(_ context.Context, data []byte) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", s.Path, err)
	}
	return nil
}

// Read implements Sink.
func (s *FileSink) Read(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	return data, nil
}

// MemorySink is a trivial in-process Sink useful for tests, examples and
// dry runs. Data is copied on write and read.
type MemorySink struct {
	mu     sync.RWMutex
	data   []byte
	writes int
}

var _ Sink = (*MemorySink)(nil)

// NewMemorySink returns an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Write implements Sink.
func (s *MemorySink) Write(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.data = cp
	s.writes++
	return nil
}

// Read implements Sink.
func (s *MemorySink) Read(_ context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(s.data))
	copy(cp, s.data)
	return cp, nil
}

// Writes returns how many times the document was written.
func (s *MemorySink) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}
