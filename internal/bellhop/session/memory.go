package session

import (
	"context"
	"sync"
)

// MemoryStore implements Store using an in-memory map. Intended for tests
// and local development; state is lost on restart.
type MemoryStore struct {
	mu        sync.RWMutex
	sessions  map[string]Session
	exchanges []Exchange
}

// Exchange is one recorded inbound-message/reply pair.
type Exchange struct {
	Sender  string
	Inbound string
	Reply   string
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, sender string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[sender], nil
}

// Set implements Store.
func (s *MemoryStore) Set(ctx context.Context, sender string, fields Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sender] = merge(s.sessions[sender], fields)
	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(ctx context.Context, sender string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sender] = Session{}
	return nil
}

// RecordExchange implements Store.
func (s *MemoryStore) RecordExchange(ctx context.Context, sender, inbound, reply string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exchanges = append(s.exchanges, Exchange{Sender: sender, Inbound: inbound, Reply: reply})
	return nil
}

// Exchanges returns a copy of the recorded message log.
func (s *MemoryStore) Exchanges() []Exchange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Exchange, len(s.exchanges))
	copy(out, s.exchanges)
	return out
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = nil
	s.exchanges = nil
	return nil
}
