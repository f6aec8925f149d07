package jwtclaims_test

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/linemk/price-guess/internal/jwtclaims"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("any-secret"))
	require.NoError(t, err)
	return token
}

func TestDecode(t *testing.T) {
	token := createTestToken(t, jwt.MapClaims{
		"sub":         "u42",
		"roles":       []string{"player"},
		"permissions": []string{"guess.create", "guess.read"},
	})

	claims, err := jwtclaims.Decode(token)

	require.NoError(t, err)
	assert.Equal(t, "u42", claims.Subject)
	assert.True(t, claims.HasAnyRole([]string{"admin", "player"}))
	assert.False(t, claims.HasAnyRole([]string{"admin"}))
	assert.True(t, claims.HasAnyRole(nil))
	assert.True(t, claims.HasPermissions([]string{"guess.create"}))
	assert.False(t, claims.HasPermissions([]string{"guess.create", "users.delete"}))
}

func TestDecode_Garbage(t *testing.T) {
	_, err := jwtclaims.Decode("invalid.token.value")
	assert.Error(t, err)
	assert.Empty(t, jwtclaims.UserID("garbage"))
}
