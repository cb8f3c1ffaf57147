package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialMinterRequiresSecret(t *testing.T) {
	_, err := NewCredentialMinter("")
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestMintRecorderTokenClaims(t *testing.T) {
	minter, err := NewCredentialMinter("top-secret")
	require.NoError(t, err)

	signed, err := minter.MintRecorderToken("room-42", "rec-uid-1", time.Hour)
	require.NoError(t, err)

	claims := &RecorderClaims{}
	token, err := jwt.ParseWithClaims(signed, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("top-secret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	require.True(t, token.Valid)

	assert.Equal(t, "room-42", claims.Channel)
	assert.Equal(t, "subscriber", claims.Role, "recorder credential must be subscribe-only")
	assert.Equal(t, "rec-uid-1", claims.Subject)

	ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	assert.Equal(t, time.Hour, ttl)
}

func TestMintRecorderTokenRejectsWrongSecret(t *testing.T) {
	minter, err := NewCredentialMinter("top-secret")
	require.NoError(t, err)

	signed, err := minter.MintRecorderToken("room-42", "rec-uid-1", time.Hour)
	require.NoError(t, err)

	_, err = jwt.ParseWithClaims(signed, &RecorderClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte("other-secret"), nil
	})
	assert.Error(t, err)
}
