// Package auth holds the credentials machinery of the web service:
// password hashing, signed access tokens and the cipher that seals stored
// model credentials.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken = errors.New("could not validate credentials")
	ErrDecrypt      = errors.New("decryption failed with all available keys")
	ErrKeySize      = errors.New("key must be 32 bytes (AES-256)")
	ErrMissingKey   = errors.New("key is required")
)

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
