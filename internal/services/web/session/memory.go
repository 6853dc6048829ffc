package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps records in process memory. Tokens vanish on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates an in-memory store. A positive ttl expires records
// that were not written for that long.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{records: map[string]Record{}, ttl: ttl, now: time.Now}
}

// Get returns the record for sessionID.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (Record, bool, error) {
	if s == nil {
		return Record{}, false, ErrStoreNotConfigured
	}
	sessionID = strings.TrimSpace(sessionID)
	s.mu.RLock()
	record, ok := s.records[sessionID]
	s.mu.RUnlock()
	if !ok {
		return Record{}, false, nil
	}
	if s.ttl > 0 && s.now().Sub(record.UpdatedAt) > s.ttl {
		s.mu.Lock()
		if current, ok := s.records[sessionID]; ok && current.UpdatedAt.Equal(record.UpdatedAt) {
			delete(s.records, sessionID)
		}
		s.mu.Unlock()
		return Record{}, false, nil
	}
	return record, true, nil
}

// Put stores record, replacing any previous one for the same session.
func (s *MemoryStore) Put(_ context.Context, record Record) error {
	if s == nil {
		return ErrStoreNotConfigured
	}
	normalized, ok := Normalize(record, s.now())
	if !ok {
		return errors.New("session id and token are required")
	}
	s.mu.Lock()
	s.records[normalized.SessionID] = normalized
	s.mu.Unlock()
	return nil
}

// Delete removes the record for sessionID. Missing records are not an error.
func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	if s == nil {
		return ErrStoreNotConfigured
	}
	s.mu.Lock()
	delete(s.records, strings.TrimSpace(sessionID))
	s.mu.Unlock()
	return nil
}

// Prune deletes records older than the store ttl and returns how many were
// removed.
func (s *MemoryStore) Prune(_ context.Context) (int64, error) {
	if s == nil {
		return 0, ErrStoreNotConfigured
	}
	if s.ttl <= 0 {
		return 0, nil
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for id, record := range s.records {
		if now.Sub(record.UpdatedAt) > s.ttl {
			delete(s.records, id)
			removed++
		}
	}
	return removed, nil
}

// Close drops every record.
func (s *MemoryStore) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	s.records = map[string]Record{}
	s.mu.Unlock()
	return nil
}

// Len reports how many records are held.
func (s *MemoryStore) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
