package auth

import "errors"

var (
	ErrNoCredentials      = errors.New("auth: no credentials presented")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrUnauthorized       = errors.New("auth: unauthorized")
	ErrSessionNotFound    = errors.New("auth: session not found")
	ErrInvalidCSRF        = errors.New("auth: invalid csrf token")
)
