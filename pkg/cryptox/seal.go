package cryptox

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Argon2id parameters used to stretch a passphrase into a sealing key.
// These follow the OWASP minimum for argon2id (19 MiB, 2 passes).
const (
	sealIterations  = 2
	sealMemory      = 19 * 1024
	sealParallelism = 1

	// SaltSize is the minimum salt length accepted by NewSealer.
	SaltSize = 16
)

var (
	// ErrDecrypt is returned when a sealed blob fails authentication, which
	// is what a wrong passphrase or a tampered value looks like.
	ErrDecrypt = errors.New("cryptox: decryption failed")

	ErrEmptyPassphrase = errors.New("cryptox: empty passphrase")
	ErrShortSalt       = errors.New("cryptox: salt too short")
)

// Sealer encrypts small values at rest with XChaCha20-Poly1305. The key is
// derived once from a passphrase and salt, so a Sealer is cheap to reuse.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives a key from passphrase and salt with argon2id.
func NewSealer(passphrase string, salt []byte) (*Sealer, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	if len(salt) < SaltSize {
		return nil, ErrShortSalt
	}

	key := argon2.IDKey(
		[]byte(passphrase),
		salt,
		sealIterations,
		sealMemory,
		sealParallelism,
		chacha20poly1305.KeySize,
	)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	return &Sealer{aead: aead}, nil
}

// Seal encrypts plaintext. aad is authenticated but not encrypted; callers
// pass the storage key so a blob cannot be moved to another key.
// The output format is: [24-byte nonce][ciphertext][16-byte tag]
func (s *Sealer) Seal(plaintext, aad []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return s.aead.Seal(nonce, nonce, plaintext, aad), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed, aad []byte) ([]byte, error) {
	nonceSize := s.aead.NonceSize()
	if len(sealed) < nonceSize+s.aead.Overhead() {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}

	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrDecrypt
	}

	return plaintext, nil
}
