package streamcache

import (
	"context"
	"sync"
	"time"
)

// Backend persists cache records. Put, Delete, Clear, and PutMetadata must be
// durable when they return.
type Backend interface {
	// Load returns everything persisted. Data that cannot be parsed at all
	// yields an error wrapping ErrCorruptCache; an undecodable record is
	// reported in Snapshot.Skipped instead.
	Load(ctx context.Context) (Snapshot, error)
	Put(ctx context.Context, rec Record) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	PutMetadata(ctx context.Context, meta Metadata) error
	// ModTime reports when the cache last changed; zero when never written.
	ModTime(ctx context.Context) (time.Time, error)
	Close() error
}

// MemoryBackend keeps records in memory only.
type MemoryBackend struct {
	mu       sync.Mutex
	records  map[string]Record
	meta     Metadata
	modTime  time.Time
	now      func() time.Time
	loadErr  error
	putCalls int
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[string]Record), now: time.Now}
}

// Load implements Backend.
func (m *MemoryBackend) Load(context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return Snapshot{}, m.loadErr
	}
	records := make(map[string]Record, len(m.records))
	for key, rec := range m.records {
		records[key] = rec
	}
	return Snapshot{Records: records, Metadata: m.meta}, nil
}

// Put implements Backend.
func (m *MemoryBackend) Put(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.Key] = rec
	m.putCalls++
	m.touch()
	return nil
}

// Delete implements Backend.
func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	m.touch()
	return nil
}

// Clear implements Backend.
func (m *MemoryBackend) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]Record)
	m.meta = Metadata{}
	m.loadErr = nil
	m.touch()
	return nil
}

// PutMetadata implements Backend.
func (m *MemoryBackend) PutMetadata(_ context.Context, meta Metadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta = meta
	m.touch()
	return nil
}

// ModTime implements Backend.
func (m *MemoryBackend) ModTime(context.Context) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.modTime, nil
}

// Close implements Backend.
func (m *MemoryBackend) Close() error { return nil }

// PutCalls returns how many records were written.
func (m *MemoryBackend) PutCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putCalls
}

// FailLoad makes the next Load calls return err until Clear.
func (m *MemoryBackend) FailLoad(err error) {
	m.mu.Lock()
	m.loadErr = err
	m.mu.Unlock()
}

// touch advances the modification time, strictly increasing even when the
// clock does not move between writes.
func (m *MemoryBackend) touch() {
	next := m.now().UTC()
	if !next.After(m.modTime) {
		next = m.modTime.Add(time.Nanosecond)
	}
	m.modTime = next
}
