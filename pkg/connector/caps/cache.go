package caps

import (
	"sync"

	"github.com/kasuganosora/fedsql/pkg/connector/domain"
)

// Scope is the sharing scope of a cached capabilities snapshot.
type Scope int

const (
	// ScopeGlobal snapshots come from the connector itself and are shared
	// by every user of the binding.
	ScopeGlobal Scope = iota

	// ScopeUser snapshots were queried over a per-user connection and are
	// valid only for that user.
	ScopeUser
)

// Cache holds immutable capabilities snapshots. Entries are replaced, never
// mutated.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey]domain.Capabilities
}

type cacheKey struct {
	scope Scope
	user  string
}

// NewCache creates an empty capabilities cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]domain.Capabilities)}
}

// Get returns the cached snapshot for the scope, if present. The user is
// ignored for ScopeGlobal.
func (c *Cache) Get(scope Scope, user string) (domain.Capabilities, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.entries[c.key(scope, user)]
	return v, ok
}

// Put stores a snapshot, replacing any previous entry for the scope.
func (c *Cache) Put(scope Scope, user string, caps domain.Capabilities) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[c.key(scope, user)] = caps
}

// Clear drops every cached snapshot.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[cacheKey]domain.Capabilities)
}

func (c *Cache) key(scope Scope, user string) cacheKey {
	if scope == ScopeGlobal {
		user = ""
	}
	return cacheKey{scope: scope, user: user}
}
