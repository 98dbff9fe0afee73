package auth

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	j := NewJWTer("secret", "formcraft", 0)
	assert.Equal(t, DefaultTTL, j.TTL())

	tok, err := j.Issue("user_1", "user")
	require.NoError(t, err)

	c, err := j.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "user_1", c.UserID)
	assert.Equal(t, "user", c.Role)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), c.ExpiresAt.Time, time.Minute)
}

func TestIssue_PayloadUsesUserIDClaim(t *testing.T) {
	tok, err := NewJWTer("secret", "formcraft", time.Hour).Issue("form-owner", "user")
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, "form-owner", payload["userId"])
}

func TestParse_Rejects(t *testing.T) {
	j := NewJWTer("secret", "formcraft", time.Hour)
	tok, err := j.Issue("user_1", "user")
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewJWTer("other", "formcraft", time.Hour).Parse(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("wrong issuer", func(t *testing.T) {
		_, err := NewJWTer("secret", "someone-else", time.Hour).Parse(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("expired beyond leeway", func(t *testing.T) {
		old := NewJWTer("secret", "formcraft", time.Hour)
		old.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		expired, err := old.Issue("user_1", "user")
		require.NoError(t, err)
		_, err = j.Parse(expired)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("expired within leeway", func(t *testing.T) {
		old := NewJWTer("secret", "formcraft", time.Hour)
		old.now = func() time.Time { return time.Now().Add(-time.Hour - 30*time.Second) }
		late, err := old.Issue("user_1", "user")
		require.NoError(t, err)
		_, err = j.Parse(late)
		assert.NoError(t, err)
	})
	t.Run("none alg", func(t *testing.T) {
		raw := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "user_1"})
		s, err := raw.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = j.Parse(s)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("garbage", func(t *testing.T) {
		_, err := j.Parse("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestIssue_EmptySecret(t *testing.T) {
	_, err := NewJWTer("", "x", time.Hour).Issue("u", "user")
	assert.ErrorIs(t, err, ErrNoSecret)
}
