package ledger

import (
	"bytes"
	"context"
	"sync"

	"github.com/ledgerchat/ledgerchat/internal/address"
)

// MemoryStore is an in-process Store. It serializes all mutations under one
// mutex, so the append commit is trivially atomic. Used by tests and as the
// zero-config backend.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

// Get returns the record at addr.
func (s *MemoryStore) Get(ctx context.Context, addr address.Address) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.records[addr.String()]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// PutIfAbsent creates the record at addr.
func (s *MemoryStore) PutIfAbsent(ctx context.Context, addr address.Address, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := addr.String()
	if _, ok := s.records[key]; ok {
		return ErrAlreadyExists
	}
	s.records[key] = append([]byte(nil), value...)
	return nil
}

// Update replaces the record at addr if it currently holds old.
func (s *MemoryStore) Update(ctx context.Context, addr address.Address, old, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := addr.String()
	current, ok := s.records[key]
	if !ok {
		return ErrNotFound
	}
	if !bytes.Equal(current, old) {
		return ErrConflict
	}
	s.records[key] = append([]byte(nil), value...)
	return nil
}

// AppendMessage commits the message record and the counter advance together.
func (s *MemoryStore) AppendMessage(ctx context.Context, counterAddr address.Address, oldCounter, newCounter []byte, msgAddr address.Address, msgValue []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[msgAddr.String()]; ok {
		return ErrAlreadyExists
	}
	current, ok := s.records[counterAddr.String()]
	if !ok {
		return ErrNotFound
	}
	if !bytes.Equal(current, oldCounter) {
		return ErrConflict
	}

	s.records[msgAddr.String()] = append([]byte(nil), msgValue...)
	s.records[counterAddr.String()] = append([]byte(nil), newCounter...)
	return nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
