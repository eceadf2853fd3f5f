package ratelimit

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func TestCheckFixedWindow(t *testing.T) {
	clock := newClock()
	l := New(WithClock(clock.Now))
	window := 60 * time.Second

	for i := 1; i <= 3; i++ {
		res := l.Check("10.0.0.1", 3, window)
		if !res.Allowed {
			t.Fatalf("call %d: expected allowed", i)
		}
		if res.Remaining != 3-i {
			t.Fatalf("call %d: expected remaining %d, got %d", i, 3-i, res.Remaining)
		}
	}

	res := l.Check("10.0.0.1", 3, window)
	if res.Allowed {
		t.Fatal("4th call should be rejected")
	}
	if res.Remaining != 0 {
		t.Fatalf("expected remaining 0, got %d", res.Remaining)
	}
	wantReset := clock.Now().Add(window)
	if !res.ResetAt.Equal(wantReset) {
		t.Fatalf("resetAt changed: got %v want %v", res.ResetAt, wantReset)
	}

	clock.Advance(window + time.Millisecond)
	res = l.Check("10.0.0.1", 3, window)
	if !res.Allowed || res.Remaining != 2 {
		t.Fatalf("expected fresh window, got %+v", res)
	}
	if !res.ResetAt.Equal(clock.Now().Add(window)) {
		t.Fatalf("expected new resetAt, got %v", res.ResetAt)
	}
}

func TestCheckWindowDoesNotResetEarly(t *testing.T) {
	clock := newClock()
	l := New(WithClock(clock.Now))
	window := time.Minute

	l.Check("k", 1, window)
	clock.Advance(window)
	if res := l.Check("k", 1, window); res.Allowed {
		t.Fatal("window must not reset before now passes resetAt")
	}
	clock.Advance(time.Nanosecond)
	if res := l.Check("k", 1, window); !res.Allowed {
		t.Fatal("window should reset once resetAt has passed")
	}
}

func TestCheckKeysAreIndependent(t *testing.T) {
	l := New(WithClock(newClock().Now))
	if !l.Check(Key("waitlist", "1.1.1.1"), 1, time.Minute).Allowed {
		t.Fatal("expected first waitlist call allowed")
	}
	if !l.Check(Key("contact", "1.1.1.1"), 1, time.Minute).Allowed {
		t.Fatal("contact namespace must not share the waitlist counter")
	}
	if l.Check(Key("waitlist", "1.1.1.1"), 1, time.Minute).Allowed {
		t.Fatal("expected second waitlist call rejected")
	}
	if got := l.Len(); got != 2 {
		t.Fatalf("expected 2 tracked keys, got %d", got)
	}
	l.Reset(Key("waitlist", "1.1.1.1"))
	if !l.Check(Key("waitlist", "1.1.1.1"), 1, time.Minute).Allowed {
		t.Fatal("expected allowed after reset")
	}
}

func TestCheckConcurrentNeverExceedsLimit(t *testing.T) {
	l := New(WithClock(newClock().Now))
	const (
		limit   = 10
		callers = 50
	)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Check("shared", limit, time.Minute).Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if allowed != limit {
		t.Fatalf("expected exactly %d allowed, got %d", limit, allowed)
	}
}

func TestRetryAfter(t *testing.T) {
	now := newClock().Now()
	cases := []struct {
		reset time.Time
		want  time.Duration
	}{
		{now.Add(30 * time.Second), 30 * time.Second},
		{now.Add(1500 * time.Millisecond), 2 * time.Second},
		{now, time.Second},
		{now.Add(-time.Second), time.Second},
	}
	for _, tc := range cases {
		got := Result{ResetAt: tc.reset}.RetryAfter(now)
		if got != tc.want {
			t.Fatalf("RetryAfter(%v)=%v want %v", tc.reset.Sub(now), got, tc.want)
		}
	}
}

func TestEmptyKeyFallsBackToUnknown(t *testing.T) {
	l := New(WithClock(newClock().Now))
	l.Check("  ", 1, time.Minute)
	if l.Check("", 1, time.Minute).Allowed {
		t.Fatal("blank keys should share the unknown bucket")
	}
}
