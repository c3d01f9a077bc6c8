package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Scope tags a token with its intended use. The wire values are embedded in
// the signed claims, so a refresh token can never be replayed where an
// access token is required and vice versa.
type Scope string

const (
	ScopeAccess  Scope = "access_token"
	ScopeRefresh Scope = "refresh_token"
)

// Default token lifetimes, used when the configured or per-call TTL is zero.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 15 * 24 * time.Hour
	DefaultEmailTTL   = 7 * 24 * time.Hour
)

// Claims are the signed statements carried by every token: subject, issued
// at, expiry and scope. Email verification tokens carry no scope, which
// keeps them decodable only by the scope-less email path.
type Claims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies the bearer tokens of this service. Tokens
// are self-contained: verification needs only the shared secret and the
// current time, no server-side session table.
type TokenCodec struct {
	secret     []byte
	method     jwt.SigningMethod
	algorithm  string
	accessTTL  time.Duration
	refreshTTL time.Duration
	emailTTL   time.Duration
}

// NewTokenCodec builds a codec for the given HMAC signing algorithm
// (HS256/HS384/HS512) and process-wide secret. Zero TTLs select the
// defaults (15m access, 15d refresh, 7d email verification).
func NewTokenCodec(secret, algorithm string, accessTTL, refreshTTL, emailTTL time.Duration) (*TokenCodec, error) {
	if secret == "" {
		return nil, errors.New("token codec: empty signing secret")
	}
	method := jwt.GetSigningMethod(algorithm)
	if method == nil {
		return nil, fmt.Errorf("token codec: unknown signing algorithm %q", algorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("token codec: algorithm %q is not an HMAC method", algorithm)
	}
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	if emailTTL <= 0 {
		emailTTL = DefaultEmailTTL
	}
	return &TokenCodec{
		secret:     []byte(secret),
		method:     method,
		algorithm:  method.Alg(),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		emailTTL:   emailTTL,
	}, nil
}

// IssueAccessToken signs a short-lived access token for subject. A non-zero
// ttl overrides the configured lifetime.
func (c *TokenCodec) IssueAccessToken(subject string, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = c.accessTTL
	}
	return c.issue(subject, ScopeAccess, ttl)
}

// IssueRefreshToken signs a long-lived refresh token for subject. A non-zero
// ttl overrides the configured lifetime.
func (c *TokenCodec) IssueRefreshToken(subject string, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = c.refreshTTL
	}
	return c.issue(subject, ScopeRefresh, ttl)
}

// IssueEmailToken signs an email verification token for subject. Email
// tokens carry no scope claim, matching the confirmation link format the
// service has always produced.
func (c *TokenCodec) IssueEmailToken(subject string) (string, error) {
	return c.issue(subject, "", c.emailTTL)
}

func (c *TokenCodec) issue(subject string, scope Scope, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Scope: string(scope),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
}

// Decode verifies signature and expiry of raw and asserts that its scope
// matches want. A structurally valid token with the wrong scope fails with
// ErrInvalidScope even though its signature checks out.
func (c *TokenCodec) Decode(raw string, want Scope) (*Claims, error) {
	claims, err := c.parse(raw)
	if err != nil {
		return nil, err
	}
	if claims.Scope != string(want) {
		return nil, ErrInvalidScope
	}
	return claims, nil
}

// DecodeEmailToken verifies raw without scope enforcement and returns its
// subject. Any failure is normalized to ErrInvalidToken.
func (c *TokenCodec) DecodeEmailToken(raw string) (string, error) {
	claims, err := c.parse(raw)
	if err != nil {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func (c *TokenCodec) parse(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithValidMethods([]string{c.algorithm}))
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
