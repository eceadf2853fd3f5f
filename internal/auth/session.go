package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// DefaultSessionTTL is the hard lifetime of an admin session.
const DefaultSessionTTL = 30 * time.Minute

// SessionCookieName is the cookie carrying the admin session id.
const SessionCookieName = "admin_session"

const sessionIDBytes = 32

// Session is an admin login. ExpiresAt is fixed at creation; LastActivity is
// bookkeeping only and never extends the session.
type Session struct {
	ID           string
	Username     string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	LastActivity time.Time
}

// SessionStore keeps admin sessions in process memory.
type SessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	random   io.Reader
	sessions map[string]*Session
}

// SessionOption configures a SessionStore.
type SessionOption func(*SessionStore)

// WithSessionClock overrides the time source.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *SessionStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSessionRandom overrides the entropy source used for session ids.
func WithSessionRandom(r io.Reader) SessionOption {
	return func(s *SessionStore) {
		if r != nil {
			s.random = r
		}
	}
}

// NewSessionStore returns an empty store issuing sessions that live for ttl
// (DefaultSessionTTL when ttl <= 0).
func NewSessionStore(ttl time.Duration, opts ...SessionOption) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	s := &SessionStore{
		ttl:      ttl,
		now:      time.Now,
		random:   rand.Reader,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the lifetime given to new sessions.
func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}

// Create starts a session for username and sweeps expired sessions.
func (s *SessionStore) Create(username string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Session{}, fmt.Errorf("create session: %w", ErrInvalidCredentials)
	}
	id, err := s.newID()
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess := &Session{
		ID:           id,
		Username:     username,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
		LastActivity: now,
	}
	s.sessions[id] = sess
	s.sweepLocked(now)
	return *sess, nil
}

// IsValid reports whether id names a live session. A live session has its
// LastActivity refreshed; an expired one is deleted.
func (s *SessionStore) IsValid(id string) bool {
	_, err := s.Lookup(id)
	return err == nil
}

// Lookup returns the live session for id, refreshing LastActivity.
func (s *SessionStore) Lookup(id string) (Session, error) {
	if id == "" {
		return Session{}, ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	now := s.now()
	if now.After(sess.ExpiresAt) {
		delete(s.sessions, id)
		return Session{}, ErrSessionNotFound
	}
	sess.LastActivity = now
	return *sess, nil
}

// Invalidate deletes the session immediately.
func (s *SessionStore) Invalidate(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len returns the number of stored sessions, including expired ones that have
// not been swept yet.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) sweepLocked(now time.Time) {
	for id, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			delete(s.sessions, id)
		}
	}
}

func (s *SessionStore) newID() (string, error) {
	buf := make([]byte, sessionIDBytes)
	if _, err := io.ReadFull(s.random, buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
