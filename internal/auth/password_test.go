package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_SaltedPerCall(t *testing.T) {
	h1, err := HashPassword("secret1", 4)
	require.NoError(t, err)
	h2, err := HashPassword("secret1", 4)
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2, "same input must hash differently on each call")
	assert.True(t, CheckPassword("secret1", h1))
	assert.True(t, CheckPassword("secret1", h2))
}

func TestHashPassword_RejectsEmpty(t *testing.T) {
	_, err := HashPassword("", 4)
	assert.Error(t, err)
}

func TestHashPassword_OutOfRangeCostFallsBack(t *testing.T) {
	h, err := HashPassword("secret1", 99)
	require.NoError(t, err)
	assert.True(t, CheckPassword("secret1", h))
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("secret1", 4)
	require.NoError(t, err)

	assert.True(t, CheckPassword("secret1", hash))
	assert.False(t, CheckPassword("wrong", hash))
	assert.False(t, CheckPassword("", hash), "empty candidate must be false, not an error")
	assert.False(t, CheckPassword("secret1", ""), "empty hash must be false, not an error")
	assert.False(t, CheckPassword("secret1", "not-a-bcrypt-hash"))
}
