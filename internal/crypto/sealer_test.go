package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(b byte) *[32]byte {
	var k [32]byte
	for i := range k {
		k[i] = b
	}
	return &k
}

func TestSecretboxSealer_RoundTrip(t *testing.T) {
	s := NewSecretboxSealer(testKey(7))

	sealed, err := s.Seal("IGQVJ-long-lived")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, sealedPrefix))
	assert.NotContains(t, sealed, "IGQVJ")

	again, err := s.Seal("IGQVJ-long-lived")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must differ per seal")

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "IGQVJ-long-lived", plain)
}

func TestSecretboxSealer_Edges(t *testing.T) {
	s := NewSecretboxSealer(testKey(7))

	sealed, err := s.Seal("")
	require.NoError(t, err)
	assert.Empty(t, sealed)

	legacy, err := s.Open("plain-token")
	require.NoError(t, err)
	assert.Equal(t, "plain-token", legacy)

	other, err := NewSecretboxSealer(testKey(9)).Seal("secret")
	require.NoError(t, err)
	_, err = s.Open(other)
	assert.ErrorIs(t, err, ErrCorruptCiphertext)

	_, err = s.Open(sealedPrefix + "!!")
	assert.ErrorIs(t, err, ErrCorruptCiphertext)
}

func TestNewSealer(t *testing.T) {
	assert.IsType(t, PlainSealer{}, NewSealer(nil))
	assert.IsType(t, &SecretboxSealer{}, NewSealer(testKey(1)))
}
