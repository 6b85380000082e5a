package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func fastArgon2() *Argon2Hasher {
	return NewArgon2Hasher(Argon2Params{Memory: 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
}

func TestBcryptHasher_RoundTrip(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.True(t, isBcrypt(hash))
	assert.NotEqual(t, "s3cret", hash)

	ok, err := h.Verify("s3cret", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBcryptHasher_Salted(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestBcryptHasher_MalformedHash(t *testing.T) {
	_, err := NewBcryptHasher(bcrypt.MinCost).Verify("x", "not-a-hash")
	assert.ErrorIs(t, err, ErrUnsupportedHash)
}

func TestArgon2Hasher_RoundTrip(t *testing.T) {
	h := fastArgon2()

	hash, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$"), hash)

	ok, err := h.Verify("s3cret", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArgon2Hasher_MalformedHash(t *testing.T) {
	h := fastArgon2()

	tests := []string{
		"",
		"$argon2id$",
		"$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=1$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$garbage$c2FsdA$a2V5",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$a2V5",
	}
	for _, hash := range tests {
		_, err := h.Verify("x", hash)
		assert.ErrorIs(t, err, ErrUnsupportedHash, hash)
	}
}

func TestMultiHasher_VerifiesBothFormats(t *testing.T) {
	bcryptHash, err := NewBcryptHasher(bcrypt.MinCost).Hash("pw")
	require.NoError(t, err)
	argonHash, err := fastArgon2().Hash("pw")
	require.NoError(t, err)

	m, err := NewHasher(AlgorithmArgon2id)
	require.NoError(t, err)

	for _, hash := range []string{bcryptHash, argonHash} {
		ok, err := m.Verify("pw", hash)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	_, err = m.Verify("pw", "plaintext")
	assert.ErrorIs(t, err, ErrUnsupportedHash)
}

func TestNewHasher_PrimaryAlgorithm(t *testing.T) {
	m, err := NewHasher("")
	require.NoError(t, err)
	assert.IsType(t, &BcryptHasher{}, m.primary)

	m, err = NewHasher(AlgorithmArgon2id)
	require.NoError(t, err)
	assert.IsType(t, &Argon2Hasher{}, m.primary)

	_, err = NewHasher("md5")
	assert.Error(t, err)
}
