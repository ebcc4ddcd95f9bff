package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	t.Run("hashes and verifies", func(t *testing.T) {
		hash, err := HashPassword("correct horse battery", 4)
		require.NoError(t, err)
		assert.NotEqual(t, "correct horse battery", hash)
		assert.NoError(t, CheckPassword("correct horse battery", hash))
		assert.ErrorIs(t, CheckPassword("wrong", hash), ErrInvalidPassword)
	})

	t.Run("enforces length bounds", func(t *testing.T) {
		_, err := HashPassword("short", 4)
		assert.ErrorIs(t, err, ErrPasswordTooShort)

		_, err = HashPassword(strings.Repeat("x", 73), 4)
		assert.ErrorIs(t, err, ErrPasswordTooLong)
	})
}

func TestGenerateSessionSecret(t *testing.T) {
	first, err := GenerateSessionSecret()
	require.NoError(t, err)
	second, err := GenerateSessionSecret()
	require.NoError(t, err)

	assert.Len(t, first, 64) // 32 bytes hex-encoded
	assert.NotEqual(t, first, second)
}
