// Package auth implements the connection gatekeeper: bearer-token
// verification for both the REST surface and the websocket handshake.
// Tokens are HS256-signed JWTs minted by the external account system; this
// package only verifies them and rejects banned or unknown users.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload carried inside an access token.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// ErrInvalidToken covers absent, malformed, expired, and badly signed
// tokens. The caller never learns which; a failed handshake is terminal.
var ErrInvalidToken = errors.New("authentication error")

// GenerateToken creates a signed JWT for a user. The login flow that calls
// this in production is external; it is exported for seeding and tests.
func GenerateToken(secret []byte, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "anonchat",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateToken parses and validates the signature and expiry of a JWT
// string, returning its claims. Any failure maps to ErrInvalidToken.
func ValidateToken(secret []byte, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
