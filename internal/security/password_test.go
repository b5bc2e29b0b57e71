package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.NoError(t, CheckPassword(hash, "correct horse battery staple"))
	assert.Error(t, CheckPassword(hash, "wrong password"))
}

func TestHashPassword_UniquePerCall(t *testing.T) {
	h1, err := HashPassword("password123")
	require.NoError(t, err)

	h2, err := HashPassword("password123")
	require.NoError(t, err)

	// bcrypt salts, so two hashes of the same input must differ
	assert.NotEqual(t, h1, h2)
}
