// Package auth issues and verifies the bearer session tokens handed to
// clients after registration and login.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/messagely/messagely/internal/shared"
)

// Claims carries the session payload: the registered claims plus the
// username. Nothing else goes into the token — no password hash, no phone.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// GenerateToken mints an HS256-signed session token for username. Exactly
// zero validityDuration produces a token without an expiry claim; a negative
// one produces an already-expired token. The default server config always
// sets a positive validity.
func GenerateToken(username string, secretKey []byte, validityDuration time.Duration) (string, error) {
	claims := Claims{Username: username}
	if validityDuration != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(validityDuration))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", fmt.Errorf("error signing token: %w", err)
	}

	return tokenString, nil
}

// GetUsernameFromToken verifies tokenString and returns the embedded
// username. Any failure — bad signature, expiry, malformed payload,
// unexpected signing algorithm — comes back as shared.ErrorInvalidToken so
// callers can treat the bearer as anonymous without inspecting the cause.
func GetUsernameFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secretKey, nil
	})
	if err != nil {
		return "", errors.Join(shared.ErrorInvalidToken, err)
	}

	if !token.Valid || claims.Username == "" {
		return "", shared.ErrorInvalidToken
	}

	return claims.Username, nil
}
