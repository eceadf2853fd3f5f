package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	csrfIssuer = "formgate-csrf"

	// CSRFCookieName holds the nonce a form token is bound to.
	CSRFCookieName = "csrf_nonce"

	// DefaultCSRFTTL bounds how long a rendered form stays submittable.
	DefaultCSRFTTL = 2 * time.Hour
)

// CSRF issues and verifies anti-forgery tokens. A token is an HS256 JWT whose
// subject is a random nonce; the nonce also travels in an HTTP-only cookie and
// Verify requires the two to match.
type CSRF struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCSRF returns a CSRF signer. An empty secret yields a disabled signer.
func NewCSRF(secret string, ttl time.Duration, now func() time.Time) *CSRF {
	if ttl <= 0 {
		ttl = DefaultCSRFTTL
	}
	if now == nil {
		now = time.Now
	}
	return &CSRF{
		secret: []byte(strings.TrimSpace(secret)),
		ttl:    ttl,
		now:    now,
	}
}

// Enabled reports whether tokens are enforced.
func (c *CSRF) Enabled() bool {
	return c != nil && len(c.secret) > 0
}

// CSRFToken is a freshly issued token with the nonce it is bound to.
type CSRFToken struct {
	Token     string
	Nonce     string
	ExpiresAt time.Time
}

// Issue signs a token bound to a new nonce.
func (c *CSRF) Issue() (CSRFToken, error) {
	if !c.Enabled() {
		return CSRFToken{}, errors.New("csrf secret is not configured")
	}
	now := c.now().UTC()
	nonce := uuid.NewString()
	claims := jwt.RegisteredClaims{
		Issuer:    csrfIssuer,
		Subject:   nonce,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return CSRFToken{}, fmt.Errorf("sign csrf token: %w", err)
	}
	return CSRFToken{Token: signed, Nonce: nonce, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Verify checks the token signature, expiry and that it was issued for nonce.
func (c *CSRF) Verify(token, nonce string) error {
	if !c.Enabled() {
		return nil
	}
	token = strings.TrimSpace(token)
	if token == "" || nonce == "" {
		return ErrInvalidCSRF
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(csrfIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCSRF, err)
	}
	if subtle.ConstantTimeCompare([]byte(claims.Subject), []byte(nonce)) != 1 {
		return ErrInvalidCSRF
	}
	return nil
}
