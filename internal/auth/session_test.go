package auth

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func TestSessionExpiresAfterTTL(t *testing.T) {
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := &stepClock{now: start}
	store := NewSessionStore(30*time.Minute, WithSessionClock(clock.Now))

	sess, err := store.Create("admin")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("expected session id")
	}
	if !sess.ExpiresAt.Equal(start.Add(30 * time.Minute)) {
		t.Fatalf("unexpected expiry %v", sess.ExpiresAt)
	}

	clock.Set(start.Add(29 * time.Minute))
	if !store.IsValid(sess.ID) {
		t.Fatal("session should be valid at T+29m")
	}

	clock.Set(start.Add(30 * time.Minute))
	if !store.IsValid(sess.ID) {
		t.Fatal("session should be valid exactly at expiry")
	}

	clock.Set(start.Add(31 * time.Minute))
	if store.IsValid(sess.ID) {
		t.Fatal("session should be invalid at T+31m")
	}
	if store.Len() != 0 {
		t.Fatalf("expired session should be deleted on check, len=%d", store.Len())
	}
}

func TestSessionActivityDoesNotExtendExpiry(t *testing.T) {
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := &stepClock{now: start}
	store := NewSessionStore(30*time.Minute, WithSessionClock(clock.Now))
	sess, _ := store.Create("admin")

	clock.Set(start.Add(20 * time.Minute))
	got, err := store.Lookup(sess.ID)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !got.LastActivity.Equal(start.Add(20 * time.Minute)) {
		t.Fatalf("expected lastActivity refreshed, got %v", got.LastActivity)
	}
	if !got.ExpiresAt.Equal(sess.ExpiresAt) {
		t.Fatalf("expiresAt must not slide: %v != %v", got.ExpiresAt, sess.ExpiresAt)
	}

	clock.Set(start.Add(31 * time.Minute))
	if store.IsValid(sess.ID) {
		t.Fatal("activity must not keep a session alive past its hard expiry")
	}
}

func TestSessionInvalidate(t *testing.T) {
	store := NewSessionStore(time.Hour)
	sess, err := store.Create("admin")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	store.Invalidate(sess.ID)
	if store.IsValid(sess.ID) {
		t.Fatal("session should be invalid after Invalidate")
	}
	if _, err := store.Lookup(sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionCreateSweepsExpired(t *testing.T) {
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := &stepClock{now: start}
	store := NewSessionStore(10*time.Minute, WithSessionClock(clock.Now))

	for i := 0; i < 3; i++ {
		if _, err := store.Create("admin"); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	clock.Set(start.Add(11 * time.Minute))
	if _, err := store.Create("admin"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("expected expired sessions swept, len=%d", store.Len())
	}
}

func TestSessionIDsAreUniqueAndOpaque(t *testing.T) {
	store := NewSessionStore(time.Hour)
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		sess, err := store.Create("admin")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if len(sess.ID) < 40 {
			t.Fatalf("session id too short: %q", sess.ID)
		}
		if _, dup := seen[sess.ID]; dup {
			t.Fatalf("duplicate session id %q", sess.ID)
		}
		seen[sess.ID] = struct{}{}
	}
}

func TestSessionCreateFailsWithoutEntropy(t *testing.T) {
	store := NewSessionStore(time.Hour, WithSessionRandom(bytes.NewReader(nil)))
	if _, err := store.Create("admin"); err == nil {
		t.Fatal("expected error when entropy source is exhausted")
	}
	if _, err := NewSessionStore(time.Hour).Create("  "); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected blank username rejected, got %v", err)
	}
}

func TestSessionUnknownID(t *testing.T) {
	store := NewSessionStore(0)
	if store.TTL() != DefaultSessionTTL {
		t.Fatalf("expected default ttl, got %v", store.TTL())
	}
	if store.IsValid("") || store.IsValid("nope") {
		t.Fatal("unknown ids must be invalid")
	}
}
