package auth

import "errors"

var (
	ErrNotFound           = errors.New("auth: not found")
	ErrEmailTaken         = errors.New("auth: email already registered")
	ErrInvalidInput       = errors.New("auth: invalid input")
	ErrWeakPassword       = errors.New("auth: password too weak")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrInvalidToken       = errors.New("auth: invalid token")
	ErrUnauthorized       = errors.New("auth: unauthorized")

	// ErrProviderUnavailable means provider sign-in was requested but no
	// IdentityVerifier is configured.
	ErrProviderUnavailable = errors.New("auth: provider sign-in not configured")
)
