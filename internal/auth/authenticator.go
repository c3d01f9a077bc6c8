// Package auth implements the token lifecycle of the service: password
// hashing, signed token issuance and verification, and the orchestrator that
// resolves a bearer token into an authenticated Principal using a Redis
// cache in front of the authoritative user store.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ykravets/contacts-api/internal/model"
)

// Principal is the authenticated identity handed to request handlers. It is
// a transient copy of the user row; the database remains the authoritative
// record and the copy never carries credential material.
type Principal struct {
	ID        uint64    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar,omitempty"`
	Confirmed bool      `json:"confirmed"`
	CreatedAt time.Time `json:"created_at"`
}

// PrincipalOf builds the identity view of a user row.
func PrincipalOf(u model.User) Principal {
	return Principal{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Avatar:    u.Avatar,
		Confirmed: u.Confirmed,
		CreatedAt: u.CreatedAt,
	}
}

// UserStore is the authoritative user lookup collaborator. Implementations
// return ErrUserNotFound when no row matches the email; any other error is
// treated as a backend failure and surfaced to the caller.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
	SaveRefreshToken(ctx context.Context, userID uint64, token string) error
	MarkConfirmed(ctx context.Context, email string) error
}

// UserCache holds Principal snapshots with a bounded lifetime. Get returns
// ErrCacheMiss when no entry exists; any other error means the cache is
// unreachable and the Authenticator degrades to a direct store lookup.
type UserCache interface {
	Get(ctx context.Context, key string) (Principal, error)
	Put(ctx context.Context, key string, p Principal, ttl time.Duration) error
}

// DefaultCacheTTL bounds the staleness window of cached principals.
const DefaultCacheTTL = 900 * time.Second

// CacheKey returns the cache key for a token subject.
func CacheKey(subject string) string { return "user:" + subject }

// TokenPair is the credential pair returned by a successful login.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Authenticator composes the token codec, password hasher, user store and
// session cache. It is constructed once at process start with its
// collaborators injected and is safe for concurrent use: all mutable state
// lives in the external cache and database.
type Authenticator struct {
	codec    *TokenCodec
	hasher   Hasher
	users    UserStore
	cache    UserCache
	cacheTTL time.Duration
}

// NewAuthenticator wires an Authenticator. cache may be nil, which disables
// caching and sends every verification to the user store. A non-positive
// cacheTTL selects DefaultCacheTTL.
func NewAuthenticator(codec *TokenCodec, hasher Hasher, users UserStore, cache UserCache, cacheTTL time.Duration) *Authenticator {
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &Authenticator{codec: codec, hasher: hasher, users: users, cache: cache, cacheTTL: cacheTTL}
}

// Authenticate resolves a bearer access token into a Principal. The decode
// must succeed before any cache or database access: an invalid token
// short-circuits immediately. On a cache miss the authoritative store is
// consulted and the cache populated; a cache transport failure is recovered
// by skipping the cache entirely. Store failures are surfaced wrapped so
// the edge can answer with a 5xx instead of a misleading 401.
func (a *Authenticator) Authenticate(ctx context.Context, bearer string) (Principal, error) {
	claims, err := a.codec.Decode(bearer, ScopeAccess)
	if err != nil {
		return Principal{}, ErrUnauthorized
	}
	subject := claims.Subject
	if subject == "" {
		return Principal{}, ErrUnauthorized
	}

	key := CacheKey(subject)
	cacheUp := a.cache != nil
	if cacheUp {
		p, err := a.cache.Get(ctx, key)
		switch {
		case err == nil:
			return p, nil
		case errors.Is(err, ErrCacheMiss):
			// fall through to the store and populate below
		default:
			cacheUp = false
			log.Printf("auth: user cache unavailable, falling back to store: %v", err)
		}
	}

	u, err := a.users.GetByEmail(ctx, subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Principal{}, ErrUnauthorized
		}
		return Principal{}, fmt.Errorf("user lookup: %w", err)
	}

	p := PrincipalOf(u)
	if cacheUp {
		// Populate only after a fully successful lookup. Concurrent
		// populations of the same key write equivalent snapshots, so
		// last-write-wins is fine.
		if err := a.cache.Put(ctx, key, p, a.cacheTTL); err != nil {
			log.Printf("auth: user cache put failed: %v", err)
		}
	}
	return p, nil
}

// Login verifies the email/password pair and issues a fresh token pair. An
// unknown email, an unconfirmed account and a wrong password are all
// reported as the same ErrUnauthorized. The refresh token is persisted on
// the user row, superseding any previously issued one.
func (a *Authenticator) Login(ctx context.Context, email, password string) (TokenPair, error) {
	u, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return TokenPair{}, ErrUnauthorized
		}
		return TokenPair{}, fmt.Errorf("user lookup: %w", err)
	}
	if !u.Confirmed {
		return TokenPair{}, ErrUnauthorized
	}
	if !a.hasher.Verify(password, u.PasswordHash) {
		return TokenPair{}, ErrUnauthorized
	}

	access, err := a.codec.IssueAccessToken(u.Email, 0)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := a.codec.IssueRefreshToken(u.Email, 0)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	if err := a.users.SaveRefreshToken(ctx, u.ID, refresh); err != nil {
		return TokenPair{}, fmt.Errorf("persist refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a valid refresh token for a new access token. Only the
// single stored refresh token is accepted: presenting a superseded one
// clears the stored token and fails, so a leaked old token cannot keep a
// session alive. The refresh token itself is not rotated here.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := a.codec.Decode(refreshToken, ScopeRefresh)
	if err != nil {
		return "", ErrUnauthorized
	}
	u, err := a.users.GetByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", ErrUnauthorized
		}
		return "", fmt.Errorf("user lookup: %w", err)
	}
	if u.RefreshToken == "" || u.RefreshToken != refreshToken {
		if err := a.users.SaveRefreshToken(ctx, u.ID, ""); err != nil {
			log.Printf("auth: clearing superseded refresh token failed: %v", err)
		}
		return "", ErrUnauthorized
	}
	access, err := a.codec.IssueAccessToken(u.Email, 0)
	if err != nil {
		return "", fmt.Errorf("issue access token: %w", err)
	}
	return access, nil
}

// ConfirmEmail verifies an email verification token and returns its subject.
// The caller marks the account confirmed through the user store.
func (a *Authenticator) ConfirmEmail(token string) (string, error) {
	return a.codec.DecodeEmailToken(token)
}
