package delivery

import (
	"context"
	"errors"
	"sync"
)

// Store persists the pending list as a whole. Update runs fn as one
// read-modify-write step: fn receives the full list and returns the full
// replacement. No field-level writes exist.
type Store interface {
	Load(ctx context.Context) ([]Record, error)
	Update(ctx context.Context, fn func([]Record) ([]Record, error)) error
	Close() error
}

// MemoryStore keeps the list in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	records []Record
	closed  bool
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	return cloneRecords(s.records), nil
}

func (s *MemoryStore) Update(ctx context.Context, fn func([]Record) ([]Record, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	next, err := fn(cloneRecords(s.records))
	if errors.Is(err, errUnchanged) {
		return nil
	}
	if err != nil {
		return err
	}
	s.records = cloneRecords(next)
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func cloneRecords(in []Record) []Record {
	if in == nil {
		return nil
	}
	out := make([]Record, len(in))
	copy(out, in)
	return out
}
