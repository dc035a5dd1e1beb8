// Package cooldown throttles repeat fires of the same (instrument,
// strategy) pair. Entries are created on first successful dispatch and
// updated on every later one; the key space is bounded by the finite
// instrument x strategy product, so nothing is ever evicted.
package cooldown

import (
	"sync"
	"time"
)

type Key struct {
	Instrument string
	Strategy   string
}

type Registry struct {
	mu   sync.Mutex
	last map[Key]time.Time
}

func NewRegistry() *Registry {
	return &Registry{last: make(map[Key]time.Time)}
}

// ShouldFire reports whether the pair may dispatch again. The comparison
// is strict: a pair is still cooling down only while the elapsed time is
// less than the interval. A pair that never fired may always fire.
func (r *Registry) ShouldFire(k Key, interval time.Duration, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	last, ok := r.last[k]
	if !ok {
		return true
	}
	return !(now.Sub(last) < interval)
}

// RecordFired stamps the pair. Callers must only do this after a
// successful dispatch; rejected or failed attempts keep the previous
// stamp so the opportunity can be retried next cycle.
func (r *Registry) RecordFired(k Key, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last[k] = now
}

// LastFired returns the stamp for a pair, if any.
func (r *Registry) LastFired(k Key) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.last[k]
	return t, ok
}
