package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joseph-ayodele/phototranslate/constants"
)

const keyPrefix = "phototranslate:cascade:"

// Cache stores opaque values by key with a time-to-live.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// Key namespaces a cascade result by image content hash and preferred model.
func Key(hashHex string, model constants.OCRModel) string {
	return fmt.Sprintf("%s%s:%s", keyPrefix, strings.ToLower(hashHex), model)
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryCache is the in-process fallback used when no Redis is configured.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	max     int
	now     func() time.Time
}

// NewMemoryCache holds at most max entries; zero means 1024.
func NewMemoryCache(max int) *MemoryCache {
	if max <= 0 {
		max = 1024
	}
	return &MemoryCache{entries: make(map[string]memoryEntry), max: max, now: time.Now}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && m.now().After(e.expires) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.max {
		m.evictLocked()
	}
	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

// evictLocked drops expired entries, or the one closest to expiry when none are.
func (m *MemoryCache) evictLocked() {
	now := m.now()
	var victim string
	var soonest time.Time
	for k, e := range m.entries {
		if !e.expires.IsZero() && now.After(e.expires) {
			delete(m.entries, k)
			continue
		}
		if victim == "" || (!e.expires.IsZero() && (soonest.IsZero() || e.expires.Before(soonest))) {
			victim, soonest = k, e.expires
		}
	}
	if len(m.entries) >= m.max && victim != "" {
		delete(m.entries, victim)
	}
}

func (m *MemoryCache) Close() error { return nil }
