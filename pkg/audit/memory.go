package audit

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStorage keeps records in process memory. It backs tests and
// deployments that want the audit surface without a database file.
type MemoryStorage struct {
	mu      sync.RWMutex
	records []*Record
	closed  bool
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Store appends a copy of record.
func (m *MemoryStorage) Store(ctx context.Context, record *Record) error {
	if err := ctx.Err(); err != nil {
		return NewStorageError("memory", "store", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return NewStorageError("memory", "store", ErrClosed)
	}

	cp := *record
	m.records = append(m.records, &cp)
	return nil
}

// Query returns matching records, newest first.
func (m *MemoryStorage) Query(ctx context.Context, filter Filter) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, NewStorageError("memory", "query", ErrClosed)
	}

	var out []*Record
	for _, r := range m.records {
		if filter.matches(r) {
			cp := *r
			out = append(out, &cp)
		}
	}

	slices.SortStableFunc(out, func(a, b *Record) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(out) > filter.limit() {
		out = out[:filter.limit()]
	}
	return out, nil
}

// Count returns the number of matching records.
func (m *MemoryStorage) Count(ctx context.Context, filter Filter) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, NewStorageError("memory", "count", ErrClosed)
	}

	var n int64
	for _, r := range m.records {
		if filter.matches(r) {
			n++
		}
	}
	return n, nil
}

// DeleteBefore removes records created before cutoff.
func (m *MemoryStorage) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, NewStorageError("memory", "delete", ErrClosed)
	}

	before := len(m.records)
	m.records = slices.DeleteFunc(m.records, func(r *Record) bool {
		return r.CreatedAt.Before(cutoff)
	})
	return int64(before - len(m.records)), nil
}

// Ping reports whether the storage is open.
func (m *MemoryStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return NewStorageError("memory", "ping", ErrClosed)
	}
	return nil
}

// Close discards all records.
func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.records = nil
	return nil
}
