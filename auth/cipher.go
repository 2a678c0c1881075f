package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// Cipher seals secrets with AES-256-GCM. New secrets use the active key;
// opening also tries the fallback keys so keys can be rotated without
// re-encrypting stored data first.
type Cipher struct {
	active    []byte
	fallbacks [][]byte
}

// NewCipher builds a Cipher from base64 keys, each decoding to 32 bytes.
func NewCipher(active string, fallbacks ...string) (*Cipher, error) {
	if active == "" {
		return nil, fmt.Errorf("%w: encryption key", ErrMissingKey)
	}
	key, err := decodeKey(active)
	if err != nil {
		return nil, err
	}

	c := &Cipher{active: key}
	for i, f := range fallbacks {
		fk, err := decodeKey(f)
		if err != nil {
			return nil, fmt.Errorf("fallback key %d: %w", i, err)
		}
		c.fallbacks = append(c.fallbacks, fk)
	}
	return c, nil
}

// GenerateKey returns a fresh random key in the form NewCipher accepts.
func GenerateKey() (string, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(key), nil
}

// Seal encrypts plaintext and returns it base64 encoded.
func (c *Cipher) Seal(plaintext string) (string, error) {
	gcm, err := newGCM(c.active)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal under the active or any fallback
// key.
func (c *Cipher) Open(sealed string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	for _, key := range append([][]byte{c.active}, c.fallbacks...) {
		if plain, err := open(data, key); err == nil {
			return string(plain), nil
		}
	}
	return "", ErrDecrypt
}

func open(data, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(data) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, body := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// decodeKey accepts standard or URL-safe base64, padded or not.
func decodeKey(s string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{
		base64.URLEncoding, base64.StdEncoding,
		base64.RawURLEncoding, base64.RawStdEncoding,
	} {
		if key, err := enc.DecodeString(s); err == nil {
			if len(key) != 32 {
				return nil, fmt.Errorf("%w: got %d", ErrKeySize, len(key))
			}
			return key, nil
		}
	}
	return nil, fmt.Errorf("%w: not base64", ErrKeySize)
}
