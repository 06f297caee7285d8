// Package crypto seals platform credentials before they are persisted.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	sealedPrefix = "sbx1:"
	nonceSize    = 24
)

var ErrCorruptCiphertext = errors.New("crypto: corrupt sealed value")

// Sealer encrypts and decrypts credential strings.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// SecretboxSealer seals values with NaCl secretbox under a fixed key.
type SecretboxSealer struct {
	key *[32]byte
}

func NewSecretboxSealer(key *[32]byte) *SecretboxSealer {
	return &SecretboxSealer{key: key}
}

// Seal returns a prefixed base64 string. Empty input stays empty.
func (s *SecretboxSealer) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("crypto: read nonce: %w", err)
	}
	out := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, s.key)
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(out), nil
}

// Open reverses Seal. Values without the seal prefix are returned unchanged so
// credentials written before sealing was enabled stay readable.
func (s *SecretboxSealer) Open(sealed string) (string, error) {
	if !strings.HasPrefix(sealed, sealedPrefix) {
		return sealed, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(sealed, sealedPrefix))
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrCorruptCiphertext
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, s.key)
	if !ok {
		return "", ErrCorruptCiphertext
	}
	return string(plain), nil
}

// PlainSealer stores values as they are.
type PlainSealer struct{}

func (PlainSealer) Seal(plaintext string) (string, error) { return plaintext, nil }
func (PlainSealer) Open(sealed string) (string, error)    { return sealed, nil }

// NewSealer returns a SecretboxSealer for a non-nil key and a PlainSealer otherwise.
func NewSealer(key *[32]byte) Sealer {
	if key == nil {
		return PlainSealer{}
	}
	return NewSecretboxSealer(key)
}
