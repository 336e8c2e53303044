package statuscache

import (
	"sync"
	"time"
)

// DefaultTTL bounds how long a progress message stays readable.
const DefaultTTL = 1000 * time.Second

// Cache holds ephemeral per-period progress messages. Entries expire after
// their TTL; a miss means the message is absent or expired, never an error.
type Cache struct {
	mu      sync.RWMutex
	entries map[int64]entry
	now     func() time.Time
}

type entry struct {
	text      string
	expiresAt time.Time
}

// New constructs an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[int64]entry), now: time.Now}
}

// Put stores a progress message for a period. A non-positive ttl falls back
// to DefaultTTL.
func (c *Cache) Put(periodID int64, text string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[periodID] = entry{text: text, expiresAt: c.now().Add(ttl)}
}

// Get returns the current progress message for a period, if present and
// not expired.
func (c *Cache) Get(periodID int64) (string, bool) {
	c.mu.RLock()
	e, ok := c.entries[periodID]
	c.mu.RUnlock()
	if !ok {
		return "", false
	}
	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, periodID)
		c.mu.Unlock()
		return "", false
	}
	return e.text, true
}

// Delete drops the message for a period.
func (c *Cache) Delete(periodID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, periodID)
}
