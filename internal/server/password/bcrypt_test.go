package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newHasher(t *testing.T) *Bcrypt {
	t.Helper()
	h, err := NewBcrypt(bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func TestBcrypt_HashVerifyRoundTrip(t *testing.T) {
	h := newHasher(t)

	for _, p := range []string{"Secret1!", "", "пароль", strings.Repeat("x", 72)} {
		hash, err := h.Hash(p)
		require.NoError(t, err)
		assert.NotEqual(t, p, hash)

		ok, err := h.Verify(p, hash)
		require.NoError(t, err)
		assert.True(t, ok, "password %q must verify against its own hash", p)
	}
}

func TestBcrypt_HashIsSalted(t *testing.T) {
	h := newHasher(t)

	a, err := h.Hash("Secret1!")
	require.NoError(t, err)
	b, err := h.Hash("Secret1!")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "$2a$04$"))
}

func TestBcrypt_VerifyMismatch(t *testing.T) {
	h := newHasher(t)

	hash, err := h.Hash("Secret1!")
	require.NoError(t, err)

	ok, err := h.Verify("Secret2!", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBcrypt_VerifyMalformedHash(t *testing.T) {
	h := newHasher(t)

	ok, err := h.Verify("Secret1!", "not-a-hash")
	require.Error(t, err)
	assert.False(t, ok)
}

func TestBcrypt_RejectsLongPassword(t *testing.T) {
	h := newHasher(t)

	_, err := h.Hash(strings.Repeat("x", 73))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestNewBcrypt_InvalidCost(t *testing.T) {
	_, err := NewBcrypt(bcrypt.MinCost - 1)
	assert.ErrorIs(t, err, ErrInvalidCost)

	_, err = NewBcrypt(bcrypt.MaxCost + 1)
	assert.ErrorIs(t, err, ErrInvalidCost)
}
