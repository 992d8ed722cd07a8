package dedup

import (
	"sync"
	"time"
)

// Filter drops repeated IDs inside a TTL window. Used to discard QoS 1
// redeliveries of health observations.
type Filter struct {
	mu      sync.Mutex
	ttl     time.Duration
	cap     int
	expires map[string]time.Time
}

func New(ttl time.Duration, capacity int) *Filter {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if capacity <= 0 {
		capacity = 10000
	}
	return &Filter{ttl: ttl, cap: capacity, expires: make(map[string]time.Time, capacity)}
}

// Fresh reports whether id has not been seen within the TTL, and marks
// it seen. An empty id is always fresh.
func (f *Filter) Fresh(id string) bool {
	if id == "" {
		return true
	}
	now := time.Now()
	f.mu.Lock()
	defer f.mu.Unlock()
	if exp, ok := f.expires[id]; ok && now.Before(exp) {
		return false
	}
	f.expires[id] = now.Add(f.ttl)
	if len(f.expires) > f.cap {
		f.sweep(now)
	}
	return true
}

// sweep evicts expired entries; called with the lock held.
func (f *Filter) sweep(now time.Time) {
	for k, exp := range f.expires {
		if now.After(exp) {
			delete(f.expires, k)
		}
		if len(f.expires) <= f.cap {
			return
		}
	}
}
