package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)

	token, err := svc.GenerateToken("user-1")
	require.NoError(t, err)

	userID, err := svc.ValidateToken(*token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", *userID)
}

func TestJWTService_Rejects(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)

	expired, err := NewJWTService("secret", -time.Minute).GenerateToken("user-1")
	require.NoError(t, err)
	_, err = svc.ValidateToken(*expired)
	assert.Error(t, err)

	foreign, err := NewJWTService("other", time.Hour).GenerateToken("user-1")
	require.NoError(t, err)
	_, err = svc.ValidateToken(*foreign)
	assert.Error(t, err)

	wrongIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user-1",
		"iss":     "someone-else",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(wrongIssuer)
	assert.Error(t, err)

	_, err = svc.ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestJWTService_Disabled(t *testing.T) {
	svc := NewJWTService("", time.Hour)

	_, err := svc.GenerateToken("user-1")
	assert.ErrorIs(t, err, ErrTokenAuthDisabled)
	_, err = svc.ValidateToken("anything")
	assert.ErrorIs(t, err, ErrTokenAuthDisabled)
}
