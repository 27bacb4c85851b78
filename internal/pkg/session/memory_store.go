// internal/pkg/session/memory_store.go
package session

import (
	"context"
	"sync"
	"time"

	xerrors "admin-console/internal/pkg/errors"
)

// sweepInterval bounds how often Save scans for expired entries.
const sweepInterval = time.Minute

type memoryEntry struct {
	cred      *Credential
	expiresAt time.Time
}

// MemoryStore keeps credentials in process. Used when redis is disabled and
// by single-user clients.
type MemoryStore struct {
	mu        sync.Mutex
	entries   map[string]memoryEntry
	now       func() time.Time
	lastSweep time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Load(_ context.Context, sid string) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[sid]
	if !ok {
		return nil, xerrors.ErrNoSession
	}
	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		delete(s.entries, sid)
		return nil, xerrors.ErrNoSession
	}
	return entry.cred.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, sid string, cred *Credential, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= sweepInterval {
		s.sweep(now)
	}

	delete(s.entries, sid)
	entry := memoryEntry{cred: cred.Clone()}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	s.entries[sid] = entry
	return nil
}

// sweep drops expired entries. Callers hold s.mu.
func (s *MemoryStore) sweep(now time.Time) {
	for sid, entry := range s.entries {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(s.entries, sid)
		}
	}
	s.lastSweep = now
}

func (s *MemoryStore) Delete(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sid)
	return nil
}
