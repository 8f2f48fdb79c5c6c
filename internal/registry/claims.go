package registry

import (
	"sort"
	"sync"
)

// Claims tracks device keys currently owned by a session in this process.
type Claims struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewClaims returns an empty claim table.
func NewClaims() *Claims {
	return &Claims{keys: make(map[string]struct{})}
}

// TryClaim claims key. It returns false if key is already claimed.
func (c *Claims) TryClaim(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.keys[key]; ok {
		return false
	}
	c.keys[key] = struct{}{}
	return true
}

// Release drops the claim on key. Releasing an unclaimed key is a no-op.
func (c *Claims) Release(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.keys, key)
}

// Claimed reports whether key is held.
func (c *Claims) Claimed(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.keys[key]
	return ok
}

// Keys returns the claimed keys in sorted order.
func (c *Claims) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.keys))
	for k := range c.keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
