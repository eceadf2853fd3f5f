package auth

import (
	"crypto/subtle"
	"strings"
)

// Credentials is the configured admin account. PasswordHash (bcrypt) wins
// over Password when both are set.
type Credentials struct {
	Username     string
	Password     string
	PasswordHash string
}

// Configured reports whether an admin account exists at all.
func (c Credentials) Configured() bool {
	return strings.TrimSpace(c.Username) != "" && (c.PasswordHash != "" || c.Password != "")
}

// Verify checks a username/password pair. Both halves are always compared so
// a wrong username costs the same as a wrong password.
func (c Credentials) Verify(username, password string) bool {
	if !c.Configured() {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.Username)) == 1

	var passOK bool
	if c.PasswordHash != "" {
		passOK = VerifyPassword(c.PasswordHash, password) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(c.Password)) == 1
	}
	return userOK && passOK
}
