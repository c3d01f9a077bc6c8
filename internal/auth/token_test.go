package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T) *TokenCodec {
	t.Helper()
	c, err := NewTokenCodec("test-secret", "HS256", 0, 0, 0)
	require.NoError(t, err)
	return c
}

func TestNewTokenCodecValidation(t *testing.T) {
	t.Parallel()

	_, err := NewTokenCodec("", "HS256", 0, 0, 0)
	require.Error(t, err, "empty secret must be rejected")

	_, err = NewTokenCodec("s", "HS999", 0, 0, 0)
	require.Error(t, err, "unknown algorithm must be rejected")

	_, err = NewTokenCodec("s", "RS256", 0, 0, 0)
	require.Error(t, err, "non-HMAC algorithm must be rejected")
}

func TestAccessTokenRoundTrip(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t)

	raw, err := c.IssueAccessToken("alice@example.com", 0)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	claims, err := c.Decode(raw, ScopeAccess)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", claims.Subject)
	require.Equal(t, string(ScopeAccess), claims.Scope)

	lifetime := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	require.Equal(t, DefaultAccessTTL, lifetime)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t)

	raw, err := c.IssueRefreshToken("alice@example.com", 0)
	require.NoError(t, err)

	claims, err := c.Decode(raw, ScopeRefresh)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", claims.Subject)
	require.Equal(t, string(ScopeRefresh), claims.Scope)

	lifetime := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	require.Equal(t, DefaultRefreshTTL, lifetime)
}

func TestEmailTokenRoundTrip(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t)

	raw, err := c.IssueEmailToken("alice@example.com")
	require.NoError(t, err)

	subject, err := c.DecodeEmailToken(raw)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", subject)

	claims, err := c.parse(raw)
	require.NoError(t, err)
	require.Empty(t, claims.Scope, "email tokens carry no scope claim")
	require.Equal(t, DefaultEmailTTL, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestDecodeRejectsWrongScope(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t)

	access, err := c.IssueAccessToken("a@b.c", 0)
	require.NoError(t, err)
	refresh, err := c.IssueRefreshToken("a@b.c", 0)
	require.NoError(t, err)
	email, err := c.IssueEmailToken("a@b.c")
	require.NoError(t, err)

	_, err = c.Decode(access, ScopeRefresh)
	require.ErrorIs(t, err, ErrInvalidScope, "access token must not pass as refresh")

	_, err = c.Decode(refresh, ScopeAccess)
	require.ErrorIs(t, err, ErrInvalidScope, "refresh token must not pass as access")

	_, err = c.Decode(email, ScopeAccess)
	require.ErrorIs(t, err, ErrInvalidScope, "scope-less email token must not pass as access")
}

func TestDecodeRejectsExpired(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t)

	raw, err := c.IssueAccessToken("a@b.c", -time.Second)
	require.NoError(t, err)

	_, err = c.Decode(raw, ScopeAccess)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestDecodeRejectsTamperedSignature(t *testing.T) {
	t.Parallel()

	issuer, err := NewTokenCodec("secret-one", "HS256", 0, 0, 0)
	require.NoError(t, err)
	verifier, err := NewTokenCodec("secret-two", "HS256", 0, 0, 0)
	require.NoError(t, err)

	raw, err := issuer.IssueAccessToken("a@b.c", 0)
	require.NoError(t, err)

	_, err = verifier.Decode(raw, ScopeAccess)
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrInvalidScope), "signature failure, not a scope failure")
}

func TestDecodeRejectsMalformed(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t)

	for _, raw := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		_, err := c.Decode(raw, ScopeAccess)
		require.Error(t, err, "raw=%q", raw)
	}

	_, err := c.DecodeEmailToken("garbage")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssueHonorsTTLOverride(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t)

	raw, err := c.IssueAccessToken("a@b.c", time.Hour)
	require.NoError(t, err)

	claims, err := c.Decode(raw, ScopeAccess)
	require.NoError(t, err)
	require.Equal(t, time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}
