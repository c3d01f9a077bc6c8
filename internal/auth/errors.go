package auth

import "errors"

var (
	// ErrUnauthorized is the single outcome for every failed credential or
	// token check. Callers never learn which check failed, so the error
	// cannot be used as an oracle to distinguish expired tokens from wrong
	// scopes or bad passwords.
	ErrUnauthorized = errors.New("could not validate credentials")

	// ErrInvalidToken is returned for malformed or unverifiable email
	// verification tokens. Maps to HTTP 422 at the edge.
	ErrInvalidToken = errors.New("invalid token")

	// ErrInvalidScope is returned when a structurally valid token carries
	// the wrong scope claim for the requested use.
	ErrInvalidScope = errors.New("invalid scope for token")

	// ErrUserNotFound is the contract error a UserStore returns when no row
	// matches the given email.
	ErrUserNotFound = errors.New("user not found")

	// ErrCacheMiss is the contract error a UserCache returns when no entry
	// exists for a key. A miss is never treated as "user does not exist".
	ErrCacheMiss = errors.New("cache miss")
)
