// Package cache holds fully-prepared presentation artifacts keyed by
// identity and locale. Entries have no expiry; they stay valid until the
// underlying campaign config or identity changes, at which point the owner
// invalidates them explicitly.
package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Key identifies one prepared artifact: the paywall identity plus the
// locale it was built for. The same paywall in two locales caches
// independently.
type Key struct {
	Identifier string
	Locale     string
}

// NewKey builds a cache key from request-relevant inputs. It is a pure
// function: two logically identical requests produce the same key.
func NewKey(identifier, locale string) Key {
	return Key{Identifier: identifier, Locale: locale}
}

// Digest returns a stable 64-bit digest of the key, used as a compact
// correlation id in cache and build logs.
func (k Key) Digest() uint64 {
	return xxhash.Sum64String(k.Identifier + ":" + k.Locale)
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s", k.Identifier, k.Locale)
}

type entry[V any] struct {
	value      V
	insertedAt time.Time
}

// Store is a concurrency-safe keyed cache. Entries are replaced, never
// mutated in place.
type Store[V any] struct {
	mu      sync.RWMutex
	entries map[Key]entry[V]
}

// NewStore creates an empty cache.
func NewStore[V any]() *Store[V] {
	return &Store[V]{entries: make(map[Key]entry[V])}
}

// Get returns the cached value for the key, if present.
func (s *Store[V]) Get(key Key) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	return e.value, ok
}

// Put stores the value for the key, replacing any previous entry.
func (s *Store[V]) Put(key Key, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry[V]{value: value, insertedAt: time.Now().UTC()}
}

// Remove deletes the entry for the key, if present.
func (s *Store[V]) Remove(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
}

// RemoveAll deletes every entry, e.g. on campaign refresh or logout.
func (s *Store[V]) RemoveAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[Key]entry[V])
}

// Len returns the number of cached entries.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
