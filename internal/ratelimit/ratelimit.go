// Package ratelimit implements a fixed-window request counter keyed by an
// opaque client identifier.
package ratelimit

import (
	"strings"
	"sync"
	"time"
)

// Result is the outcome of a single Check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long the caller should wait before the window
// resets, rounded up to whole seconds and never below one second.
func (r Result) RetryAfter(now time.Time) time.Duration {
	d := r.ResetAt.Sub(now)
	if d <= 0 {
		return time.Second
	}
	secs := (d + time.Second - 1) / time.Second
	return secs * time.Second
}

type counter struct {
	count   int
	resetAt time.Time
}

// Limiter keeps one counter per key. Stale counters are not evicted; they are
// replaced on the next request for the same key.
type Limiter struct {
	mu       sync.Mutex
	now      func() time.Time
	counters map[string]counter
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// New returns an empty Limiter.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		now:      time.Now,
		counters: make(map[string]counter),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check records one request for key and reports whether it fits within
// maxRequests per window. The window for a key starts at its first request and
// resets once the current time passes resetAt.
func (l *Limiter) Check(key string, maxRequests int, window time.Duration) Result {
	key = strings.TrimSpace(key)
	if key == "" {
		key = "unknown"
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.counters[key]
	if !ok || now.After(c.resetAt) {
		c = counter{count: 1, resetAt: now.Add(window)}
		l.counters[key] = c
		return Result{
			Allowed:   c.count <= maxRequests,
			Limit:     maxRequests,
			Remaining: max(maxRequests-1, 0),
			ResetAt:   c.resetAt,
		}
	}

	if c.count >= maxRequests {
		return Result{Allowed: false, Limit: maxRequests, Remaining: 0, ResetAt: c.resetAt}
	}

	c.count++
	l.counters[key] = c
	return Result{
		Allowed:   true,
		Limit:     maxRequests,
		Remaining: maxRequests - c.count,
		ResetAt:   c.resetAt,
	}
}

// Now returns the limiter's current time.
func (l *Limiter) Now() time.Time {
	return l.now()
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counters)
}

// Reset drops the counter for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.counters, strings.TrimSpace(key))
}

// Key namespaces a client identifier per endpoint, e.g. Key("waitlist", ip).
func Key(scope, client string) string {
	return scope + ":" + client
}
