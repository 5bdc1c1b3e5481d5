package entra

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/different-technology/entra-be-auth/pkg/errors"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestDecodeIDTokenClaims(t *testing.T) {
	t.Run("ValidToken", func(t *testing.T) {
		idToken := signToken(t, jwt.MapClaims{
			"preferred_username": "Jane.Doe@Example.COM",
			"name":               "Jane Doe",
		})

		claims, err := DecodeIDTokenClaims(idToken)
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", claims.DisplayName())
	})

	t.Run("MalformedToken", func(t *testing.T) {
		_, err := DecodeIDTokenClaims("not-a-token")
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeMalformedToken))
	})

	t.Run("GarbagePayload", func(t *testing.T) {
		_, err := DecodeIDTokenClaims("aGVhZGVy.bm90LWpzb24.c2ln")
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeMalformedToken))
	})
}

func TestClaimsIdentifier(t *testing.T) {
	t.Run("PreferredUsernameWins", func(t *testing.T) {
		claims := Claims{
			"preferred_username": "Jane.Doe@Example.COM",
			"email":              "other@example.com",
		}
		id, err := claims.Identifier()
		require.NoError(t, err)
		assert.Equal(t, "jane.doe@example.com", id)
	})

	t.Run("EmailFallback", func(t *testing.T) {
		claims := Claims{"email": "Fallback@Example.com"}
		id, err := claims.Identifier()
		require.NoError(t, err)
		assert.Equal(t, "fallback@example.com", id)
	})

	t.Run("EmptyPreferredUsernameFallsBack", func(t *testing.T) {
		claims := Claims{"preferred_username": "", "email": "a@b.example"}
		id, err := claims.Identifier()
		require.NoError(t, err)
		assert.Equal(t, "a@b.example", id)
	})

	t.Run("NeitherPresent", func(t *testing.T) {
		claims := Claims{"name": "Jane Doe"}
		_, err := claims.Identifier()
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeNoEmailClaim))
	})

	t.Run("NonStringClaimIgnored", func(t *testing.T) {
		claims := Claims{"preferred_username": 42}
		_, err := claims.Identifier()
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeNoEmailClaim))
	})
}
