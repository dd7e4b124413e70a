// SPDX-License-Identifier: MPL-2.0

// Package vercache caches tag listings fetched from source hosts so that a
// single plan expansion never asks the same host for the same repository
// twice. Lookups for the same key that race are coalesced into one fetch.
package vercache

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/imagewright/imagewright/internal/version"
)

// Key identifies one tag listing: a repository on a source host plus the
// kind of ref being listed.
type Key struct {
	Org     string
	Project string
	Mode    version.Mode
}

// String renders the key in a stable form usable for coalescing.
func (k Key) String() string {
	return fmt.Sprintf("%s/%s@%s", k.Org, k.Project, k.Mode)
}

// Store holds fetched tag listings. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get returns the cached listing for key, if present.
	Get(key Key) ([]string, bool)
	// Set records the listing for key, replacing any previous entry.
	Set(key Key, names []string)
}

// MemoryStore is an in-process Store backed by a map.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[Key][]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[Key][]string)}
}

// Get implements Store.
func (s *MemoryStore) Get(key Key) ([]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names, ok := s.entries[key]
	return names, ok
}

// Set implements Store.
func (s *MemoryStore) Set(key Key, names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = names
}

// FetchFunc retrieves the tag listing for a key from its source host.
type FetchFunc func(ctx context.Context, key Key) ([]string, error)

// Cache wraps a Store with fetch-on-miss and per-key coalescing. Concurrent
// misses on the same key share one underlying fetch; failed fetches are not
// cached, so the next lookup tries again.
type Cache struct {
	store Store
	fetch FetchFunc
	group singleflight.Group
}

// NewCache returns a Cache that fills store via fetch.
func NewCache(store Store, fetch FetchFunc) *Cache {
	return &Cache{store: store, fetch: fetch}
}

// GetOrFetch returns the listing for key, fetching it if the store has no
// entry. When several goroutines miss on the same key at once, only one
// fetch runs; the rest wait for its result.
func (c *Cache) GetOrFetch(ctx context.Context, key Key) ([]string, error) {
	if names, ok := c.store.Get(key); ok {
		return names, nil
	}

	// The winning call's context governs the shared fetch; callers that
	// joined later still receive its result or error.
	v, err, _ := c.group.Do(key.String(), func() (any, error) {
		if names, ok := c.store.Get(key); ok {
			return names, nil
		}

		names, err := c.fetch(ctx, key)
		if err != nil {
			return nil, err
		}

		c.store.Set(key, names)
		return names, nil
	})
	if err != nil {
		return nil, err
	}

	names, ok := v.([]string)
	if !ok {
		return nil, fmt.Errorf("unexpected cache value type %T for %q", v, key)
	}
	return names, nil
}
