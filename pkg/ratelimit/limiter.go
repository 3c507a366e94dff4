// Package ratelimit counts attempts per key inside fixed, self-expiring
// windows. It backs the login brute-force guard.
package ratelimit

import (
	"sync"
	"time"

	"github.com/dricommerce/authcore/pkg/clockx"
)

// Limiter is a fixed-window attempt counter keyed by an arbitrary string,
// typically "endpoint:client-ip". State is in-memory and process-local.
//
// Each key owns its own mutex so operations on different keys never contend.
// A counter removed from the table (success or sweep) is flagged dead under
// its lock; writers that raced the removal retry against a fresh counter.
type Limiter struct {
	clock    clockx.Clock
	counters sync.Map // map[string]*counter
}

type counter struct {
	mu     sync.Mutex
	count  int
	start  time.Time
	window time.Duration
	dead   bool
}

// live reports whether the counter window is still open at now. A window is
// half-open: [start, start+window).
func (c *counter) live(now time.Time, window time.Duration) bool {
	return now.Before(c.start.Add(window))
}

// New returns an empty Limiter reading time from clock.
func New(clock clockx.Clock) *Limiter {
	if clock == nil {
		clock = clockx.System()
	}
	return &Limiter{clock: clock}
}

// Admit records one attempt for key and reports whether it is allowed. The
// first attempt in a window is always admitted; later ones are admitted
// while the post-increment count stays at or below maxAttempts.
func (l *Limiter) Admit(key string, maxAttempts int, window time.Duration) bool {
	for {
		v, ok := l.counters.Load(key)
		if !ok {
			fresh := &counter{count: 1, start: l.clock.Now(), window: window}
			if _, loaded := l.counters.LoadOrStore(key, fresh); !loaded {
				return true
			}
			continue
		}

		c := v.(*counter)
		c.mu.Lock()
		if c.dead {
			c.mu.Unlock()
			continue
		}

		now := l.clock.Now()
		if !c.live(now, window) {
			c.count, c.start, c.window = 1, now, window
			c.mu.Unlock()
			return true
		}

		c.count++
		admitted := c.count <= maxAttempts
		c.mu.Unlock()
		return admitted
	}
}

// Remaining returns how many attempts key has left in its current window.
func (l *Limiter) Remaining(key string, maxAttempts int, window time.Duration) int {
	v, ok := l.counters.Load(key)
	if !ok {
		return maxAttempts
	}

	c := v.(*counter)
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dead || !c.live(l.clock.Now(), window) {
		return maxAttempts
	}
	return max(0, maxAttempts-c.count)
}

// ResetDelay returns the time left until key's window closes, rounded up to
// whole seconds. It is zero when key has no live window.
func (l *Limiter) ResetDelay(key string, window time.Duration) time.Duration {
	v, ok := l.counters.Load(key)
	if !ok {
		return 0
	}

	c := v.(*counter)
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dead {
		return 0
	}
	left := c.start.Add(window).Sub(l.clock.Now())
	if left <= 0 {
		return 0
	}
	return roundUp(left, time.Second)
}

// RecordSuccess forgets key so its next attempt starts a new window.
func (l *Limiter) RecordSuccess(key string) {
	v, ok := l.counters.Load(key)
	if !ok {
		return
	}
	l.remove(key, v.(*counter))
}

// Sweep drops every expired counter and returns how many were removed.
func (l *Limiter) Sweep() int {
	now := l.clock.Now()
	removed := 0

	l.counters.Range(func(k, v any) bool {
		c := v.(*counter)
		c.mu.Lock()
		if !c.dead && !c.live(now, c.window) {
			c.dead = true
			l.counters.CompareAndDelete(k, c)
			removed++
		}
		c.mu.Unlock()
		return true
	})

	return removed
}

// Len returns the number of tracked keys, expired or not.
func (l *Limiter) Len() int {
	n := 0
	l.counters.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (l *Limiter) remove(key string, c *counter) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dead {
		return
	}
	c.dead = true
	l.counters.CompareAndDelete(key, c)
}

func roundUp(d, unit time.Duration) time.Duration {
	if r := d % unit; r != 0 {
		return d + unit - r
	}
	return d
}
