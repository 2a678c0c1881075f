package auth_test

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/studyplan/auth"
)

func TestPassword(t *testing.T) {
	hash, err := auth.HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.True(t, auth.CheckPassword(hash, "correct horse"))
	assert.False(t, auth.CheckPassword(hash, "wrong horse"))
	assert.False(t, auth.CheckPassword("not-a-hash", "correct horse"))
}

func TestTokens_IssueVerify(t *testing.T) {
	tokens, err := auth.NewTokens("secret", 0)
	require.NoError(t, err)
	assert.Equal(t, auth.DefaultTokenTTL, tokens.TTL())

	tok, err := tokens.Issue(42)
	require.NoError(t, err)

	id, err := tokens.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestTokens_Rejects(t *testing.T) {
	tokens, err := auth.NewTokens("secret", time.Hour)
	require.NoError(t, err)
	other, err := auth.NewTokens("other-secret", time.Hour)
	require.NoError(t, err)

	issued := time.Now()
	expired, err := tokens.WithClock(func() time.Time { return issued.Add(-2 * time.Hour) }).Issue(1)
	require.NoError(t, err)
	forged, err := other.Issue(1)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"expired", expired},
		{"wrong secret", forged},
		{"garbage", "not.a.token"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tokens.Verify(tt.token)
			assert.ErrorIs(t, err, auth.ErrInvalidToken)
		})
	}
}

func TestNewTokens_RequiresSecret(t *testing.T) {
	_, err := auth.NewTokens("", time.Hour)
	assert.ErrorIs(t, err, auth.ErrMissingKey)
}

func TestCipher_SealOpen(t *testing.T) {
	key, err := auth.GenerateKey()
	require.NoError(t, err)

	c, err := auth.NewCipher(key)
	require.NoError(t, err)

	sealed, err := c.Seal("AIza-secret-key")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "AIza")

	again, err := c.Seal("AIza-secret-key")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must differ per seal")

	plain, err := c.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "AIza-secret-key", plain)
}

func TestCipher_Rotation(t *testing.T) {
	oldKey, _ := auth.GenerateKey()
	newKey, _ := auth.GenerateKey()

	old, err := auth.NewCipher(oldKey)
	require.NoError(t, err)
	sealed, err := old.Seal("value")
	require.NoError(t, err)

	rotated, err := auth.NewCipher(newKey, oldKey)
	require.NoError(t, err)
	plain, err := rotated.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "value", plain)

	fresh, err := auth.NewCipher(newKey)
	require.NoError(t, err)
	_, err = fresh.Open(sealed)
	assert.ErrorIs(t, err, auth.ErrDecrypt)
}

func TestNewCipher_Errors(t *testing.T) {
	short := base64.StdEncoding.EncodeToString([]byte("too short"))
	valid, _ := auth.GenerateKey()

	tests := []struct {
		name      string
		active    string
		fallbacks []string
		want      error
	}{
		{"missing", "", nil, auth.ErrMissingKey},
		{"short", short, nil, auth.ErrKeySize},
		{"not base64", strings.Repeat("!", 44), nil, auth.ErrKeySize},
		{"bad fallback", valid, []string{short}, auth.ErrKeySize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.NewCipher(tt.active, tt.fallbacks...)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCipher_OpenGarbage(t *testing.T) {
	key, _ := auth.GenerateKey()
	c, err := auth.NewCipher(key)
	require.NoError(t, err)

	for _, in := range []string{"%%%", "", base64.StdEncoding.EncodeToString([]byte("abc"))} {
		_, err := c.Open(in)
		assert.ErrorIs(t, err, auth.ErrDecrypt, in)
	}
}
