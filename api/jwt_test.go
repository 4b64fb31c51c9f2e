package api

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leenicide/bread-made-easy/models"
)

func signTestToken(t *testing.T, key ed25519.PrivateKey, claims JWT) string {
	t.Helper()
	token := jwt.NewWithClaims(&jwt.SigningMethodEd25519{}, claims)
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func testClaims(expiresIn time.Duration) JWT {
	now := time.Now()
	return JWT{
		Username: "jordan",
		Role:     models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Subject:   uuid.NewString(),
			ID:        uuid.NewString(),
		},
	}
}

func TestParseAndValidateJWT(t *testing.T) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		claims := testClaims(time.Hour)
		parsed, err := ParseAndValidateJWT(signTestToken(t, key, claims), key)
		require.NoError(t, err)
		assert.Equal(t, "jordan", parsed.Username)
		assert.Equal(t, models.RoleAdmin, parsed.Role)
		assert.Equal(t, claims.Subject, parsed.Subject)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		_, err := ParseAndValidateJWT(signTestToken(t, key, testClaims(-time.Hour)), key)
		assert.Error(t, err)
	})

	t.Run("rejects token signed by another key", func(t *testing.T) {
		_, otherKey, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)
		_, err = ParseAndValidateJWT(signTestToken(t, otherKey, testClaims(time.Hour)), key)
		assert.Error(t, err)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := ParseAndValidateJWT("not-a-token", key)
		assert.Error(t, err)
	})
}
