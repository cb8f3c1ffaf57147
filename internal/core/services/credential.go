package services

import (
	"errors"
	"time"

	"liveclass/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
)

var ErrEmptySecret = errors.New("recorder token secret must not be empty")

// RecorderClaims scope a minted credential to one channel with
// subscribe-only rights.
type RecorderClaims struct {
	Channel string `json:"channel"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

type jwtCredentialMinter struct {
	secret []byte
}

// NewCredentialMinter builds a minter issuing HS256 recorder tokens. Tokens
// are tied to a single acquire/start call and are not reusable afterwards.
func NewCredentialMinter(secret string) (ports.CredentialMinter, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &jwtCredentialMinter{secret: []byte(secret)}, nil
}

func (m *jwtCredentialMinter) MintRecorderToken(channelName, recorderUID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &RecorderClaims{
		Channel: channelName,
		Role:    "subscriber",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   recorderUID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}
