package auth

import (
	"errors"
	"fmt"
	"net/http"
)

// Authenticator resolves the admin behind a request. It returns
// ErrNoCredentials when the request carries nothing it understands, so a
// Chain can move on to the next strategy.
type Authenticator interface {
	Authenticate(r *http.Request) (Principal, error)
}

// Challenger is implemented by authenticators that advertise a scheme through
// WWW-Authenticate.
type Challenger interface {
	Challenge() string
}

// SessionAuthenticator accepts a live session cookie.
type SessionAuthenticator struct {
	Sessions   *SessionStore
	CookieName string
}

func (a SessionAuthenticator) Authenticate(r *http.Request) (Principal, error) {
	name := a.CookieName
	if name == "" {
		name = SessionCookieName
	}
	cookie, err := r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return Principal{}, ErrNoCredentials
	}
	sess, err := a.Sessions.Lookup(cookie.Value)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}
	return Principal{
		Username:  sess.Username,
		Method:    MethodSession,
		SessionID: sess.ID,
		ExpiresAt: sess.ExpiresAt,
	}, nil
}

// BasicAuthenticator checks an HTTP Basic header against the configured
// credentials. It never creates a session.
type BasicAuthenticator struct {
	Credentials Credentials
	Realm       string
}

func (a BasicAuthenticator) Authenticate(r *http.Request) (Principal, error) {
	if r.Header.Get("Authorization") == "" {
		return Principal{}, ErrNoCredentials
	}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return Principal{}, ErrInvalidCredentials
	}
	if !a.Credentials.Verify(user, pass) {
		return Principal{}, ErrInvalidCredentials
	}
	return Principal{Username: a.Credentials.Username, Method: MethodBasic}, nil
}

func (a BasicAuthenticator) Challenge() string {
	realm := a.Realm
	if realm == "" {
		realm = "Admin Area"
	}
	return fmt.Sprintf(`Basic realm=%q, charset="UTF-8"`, realm)
}

// Chain tries each authenticator in order; the first success wins.
type Chain []Authenticator

// Authenticate returns the first principal found, or an error wrapping
// ErrUnauthorized. The error also wraps ErrNoCredentials when no strategy
// found anything to check.
func (c Chain) Authenticate(r *http.Request) (Principal, error) {
	presented := false
	for _, a := range c {
		p, err := a.Authenticate(r)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrNoCredentials) {
			presented = true
		}
	}
	if !presented {
		return Principal{}, fmt.Errorf("%w: %w", ErrUnauthorized, ErrNoCredentials)
	}
	return Principal{}, fmt.Errorf("%w: %w", ErrUnauthorized, ErrInvalidCredentials)
}

// Challenges collects WWW-Authenticate values from the chain's members.
func (c Chain) Challenges() []string {
	var out []string
	for _, a := range c {
		if ch, ok := a.(Challenger); ok {
			out = append(out, ch.Challenge())
		}
	}
	return out
}
