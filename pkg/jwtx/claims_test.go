package jwtx_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aussiebroadwan/storefront/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestParseUnverified(t *testing.T) {
	t.Parallel()
	now := time.Now()

	tok, err := jwtx.SignHS256(jwtx.NewClaims(jwtx.TokenTypeAccess, "42", "alice", "a@example.com", time.Minute, now), secret)
	require.NoError(t, err)

	claims, err := jwtx.ParseUnverified(tok)
	require.NoError(t, err)
	require.Equal(t, jwtx.UserID("42"), claims.UserID)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, jwtx.TokenTypeAccess, claims.TokenType)

	t.Run("malformed", func(t *testing.T) {
		_, err := jwtx.ParseUnverified("opaque-token")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})
}

func TestUserIDAcceptsNumberOrString(t *testing.T) {
	t.Parallel()

	var c jwtx.Claims
	require.NoError(t, json.Unmarshal([]byte(`{"user_id": 7}`), &c))
	require.Equal(t, jwtx.UserID("7"), c.UserID)

	require.NoError(t, json.Unmarshal([]byte(`{"user_id": "abc"}`), &c))
	require.Equal(t, jwtx.UserID("abc"), c.UserID)

	out, err := json.Marshal(jwtx.UserID("7"))
	require.NoError(t, err)
	require.JSONEq(t, `7`, string(out))
}

func TestExpiresWithin(t *testing.T) {
	t.Parallel()
	now := time.Now()

	c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(20 * time.Second))}}
	require.True(t, c.ExpiresWithin(30*time.Second, now))
	require.False(t, c.ExpiresWithin(5*time.Second, now))

	require.False(t, (&jwtx.Claims{}).ExpiresWithin(time.Hour, now))
}

func TestVerifyHS256(t *testing.T) {
	t.Parallel()
	now := time.Now()

	t.Run("valid", func(t *testing.T) {
		tok, err := jwtx.SignHS256(jwtx.NewClaims(jwtx.TokenTypeRefresh, "1", "bob", "", time.Minute, now), secret)
		require.NoError(t, err)
		c, err := jwtx.VerifyHS256(tok, secret)
		require.NoError(t, err)
		require.NoError(t, c.ValidateTokenType(jwtx.TokenTypeRefresh))
		require.ErrorIs(t, c.ValidateTokenType(jwtx.TokenTypeAccess), jwtx.ErrTokenType)
	})

	t.Run("expired", func(t *testing.T) {
		tok, err := jwtx.SignHS256(jwtx.NewClaims(jwtx.TokenTypeAccess, "1", "bob", "", -time.Minute, now), secret)
		require.NoError(t, err)
		_, err = jwtx.VerifyHS256(tok, secret)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		tok, err := jwtx.SignHS256(jwtx.NewClaims(jwtx.TokenTypeAccess, "1", "bob", "", time.Minute, now), secret)
		require.NoError(t, err)
		_, err = jwtx.VerifyHS256(tok, []byte("other"))
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})
}

func TestValidateIssuer(t *testing.T) {
	c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{Issuer: "storefront-api"}}

	t.Run("matching issuer", func(t *testing.T) {
		require.NoError(t, c.ValidateIssuer("storefront-api"))
	})

	t.Run("empty expected issuer", func(t *testing.T) {
		require.NoError(t, c.ValidateIssuer(""))
	})

	t.Run("mismatched issuer", func(t *testing.T) {
		require.ErrorIs(t, c.ValidateIssuer("other"), jwtx.ErrIssuer)
	})
}

func TestValidateAudience(t *testing.T) {
	c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{Audience: []string{"web", "mobile"}}}

	t.Run("contains match", func(t *testing.T) {
		require.NoError(t, c.ValidateAudience([]string{"foo", "mobile"}))
	})

	t.Run("no match", func(t *testing.T) {
		require.ErrorIs(t, c.ValidateAudience([]string{"admin"}), jwtx.ErrAudience)
	})

	t.Run("empty expected list", func(t *testing.T) {
		require.NoError(t, c.ValidateAudience(nil))
	})
}

func TestValidateExpiryWithLeeway(t *testing.T) {
	now := time.Now().UTC()

	t.Run("valid with leeway", func(t *testing.T) {
		c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(-10 * time.Second))}}
		require.NoError(t, c.ValidateExpiryWithLeeway(now, 30*time.Second))
	})

	t.Run("expired beyond leeway", func(t *testing.T) {
		c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(-2 * time.Minute))}}
		require.ErrorIs(t, c.ValidateExpiryWithLeeway(now, 30*time.Second), jwtx.ErrExpired)
	})

	t.Run("not yet valid", func(t *testing.T) {
		c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{NotBefore: jwt.NewNumericDate(now.Add(time.Minute))}}
		require.ErrorIs(t, c.ValidateExpiryWithLeeway(now, 0), jwtx.ErrNotYetValid)
	})
}
