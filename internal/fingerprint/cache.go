package fingerprint

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/BradenHooton/inspireokc/internal/models"
)

// CacheKey is the session storage key holding the serialized fingerprint.
const CacheKey = "device_fingerprint"

// SessionStorage is a string key/value store scoped to one browsing session.
type SessionStorage interface {
	GetItem(key string) (string, bool)
	SetItem(key, value string)
	RemoveItem(key string)
}

// Cache returns the session's fingerprint, generating it at most once.
type Cache struct {
	storage   SessionStorage
	generator *Generator
}

// NewCache creates a Cache over storage.
func NewCache(storage SessionStorage, generator *Generator) *Cache {
	return &Cache{storage: storage, generator: generator}
}

// Get returns the cached fingerprint unchanged when present and well formed,
// even if the underlying signals have changed since. Absent or corrupt
// entries are regenerated and stored.
func (c *Cache) Get(ctx context.Context) (*models.DeviceFingerprint, error) {
	if raw, ok := c.storage.GetItem(CacheKey); ok {
		var fp models.DeviceFingerprint
		if err := json.Unmarshal([]byte(raw), &fp); err == nil && fp.Hash != "" {
			return &fp, nil
		}
		c.storage.RemoveItem(CacheKey)
	}

	fp, err := c.generator.Generate(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(fp); err == nil {
		c.storage.SetItem(CacheKey, string(data))
	}
	return fp, nil
}

// MemoryStorage is an in-memory SessionStorage.
type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: make(map[string]string)}
}

func (m *MemoryStorage) GetItem(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok
}

func (m *MemoryStorage) SetItem(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
}

func (m *MemoryStorage) RemoveItem(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
}

// SessionStore hands out one MemoryStorage per session id.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	now      func() time.Time
}

type sessionEntry struct {
	storage  *MemoryStorage
	lastSeen time.Time
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*sessionEntry),
		now:      time.Now,
	}
}

// Storage returns the storage for sessionID, creating it on first use.
func (s *SessionStore) Storage(sessionID string) SessionStorage {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[sessionID]
	if !ok {
		entry = &sessionEntry{storage: NewMemoryStorage()}
		s.sessions[sessionID] = entry
	}
	entry.lastSeen = s.now()
	return entry.storage
}

// Sweep drops sessions idle for longer than maxIdle and returns how many.
func (s *SessionStore) Sweep(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxIdle)
	removed := 0
	for id, entry := range s.sessions {
		if entry.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
