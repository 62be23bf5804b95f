// Package ratelimit implements the per-host token bucket gating outbound
// fetches. Buckets refill to full capacity once a whole minute has elapsed
// since the last refill, regardless of how many minutes passed. The window
// does not slide.
package ratelimit

import (
	"net/url"
	"sync"
	"time"

	"github.com/LBtakeuti/fanfan-worker/internal/event"
)

// Limiter manages one token bucket per hostname. Buckets live for the life
// of the process; a restart resets every host to full capacity.
type Limiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	capacity int
	clock    event.Clock
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// New creates a Limiter with the given per-host-per-minute capacity.
func New(capacity int, clock event.Clock) *Limiter {
	if capacity <= 0 {
		capacity = 6
	}
	return &Limiter{
		buckets:  make(map[string]*bucket),
		capacity: capacity,
		clock:    clock,
	}
}

// Allow consumes one token for the URL's host and reports whether the fetch
// may proceed. Unparseable URLs fail closed.
func (l *Limiter) Allow(rawURL string) bool {
	host := hostOf(rawURL)
	if host == "" {
		return false
	}

	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[host]
	if !ok {
		b = &bucket{tokens: l.capacity, lastRefill: now}
		l.buckets[host] = b
	}
	if now.Sub(b.lastRefill) >= time.Minute {
		b.tokens = l.capacity
		b.lastRefill = now
	}
	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
