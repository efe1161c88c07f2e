package executor

import (
	"sync"
	"time"
)

// Dedup blocks a market/outcome from trading again until its window
// expires. Safe for concurrent use.
type Dedup struct {
	mu     sync.Mutex
	window time.Duration
	expiry map[string]time.Time
	now    func() time.Time
}

// NewDedup creates a Dedup with the given window.
func NewDedup(window time.Duration) *Dedup {
	return &Dedup{window: window, expiry: map[string]time.Time{}, now: time.Now}
}

// Recent reports whether key is still inside its window.
func (d *Dedup) Recent(key string) bool {
	d.mu.Lock()
	exp, ok := d.expiry[key]
	d.mu.Unlock()
	return ok && d.now().Before(exp)
}

// Mark starts a new window for key.
func (d *Dedup) Mark(key string) {
	until := d.now().Add(d.window)
	d.mu.Lock()
	d.expiry[key] = until
	d.mu.Unlock()
}

// Cleanup forgets keys whose window has passed.
func (d *Dedup) Cleanup() {
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, exp := range d.expiry {
		if !now.Before(exp) {
			delete(d.expiry, key)
		}
	}
}
