// Package secure seals the destination address before it is stored.
// Trips keep the sealed bytes in a BYTEA column; only the owner-facing
// trip detail path opens them again.
package secure

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// keyInfo binds derived keys to this use so the same master key can
	// never be reused for another purpose by accident.
	keyInfo = "sanchara-trips/dest-address/v1"

	aesKeySize = 32
)

var (
	// ErrBadKey means the configured key is not 64 hex characters.
	ErrBadKey = errors.New("secure: key must be 32 bytes hex encoded")

	// ErrOpenFailed means the sealed bytes were truncated or tampered with.
	ErrOpenFailed = errors.New("secure: open failed")
)

// Box seals and opens short strings with AES-256-GCM. The key is derived
// from the configured master key with HKDF-SHA256, and each sealed value
// carries its own random nonce as a prefix.
type Box struct {
	aead cipher.AEAD
}

// NewBox builds a Box from a 64-character hex master key.
func NewBox(hexKey string) (*Box, error) {
	master, err := hex.DecodeString(hexKey)
	if err != nil || len(master) != aesKeySize {
		return nil, ErrBadKey
	}

	key := make([]byte, aesKeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("secure.NewBox: derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secure.NewBox: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secure.NewBox: %w", err)
	}
	return &Box{aead: aead}, nil
}

// Seal encrypts plaintext. An empty plaintext yields nil so that callers
// can store "no address" as a NULL column.
func (b *Box) Seal(plaintext string) ([]byte, error) {
	if plaintext == "" {
		return nil, nil
	}
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("secure.Box.Seal: nonce: %w", err)
	}
	return b.aead.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

// Open decrypts bytes produced by Seal. Nil or empty input returns the
// empty string, mirroring Seal's treatment of empty plaintext.
func (b *Box) Open(sealed []byte) (string, error) {
	if len(sealed) == 0 {
		return "", nil
	}
	ns := b.aead.NonceSize()
	if len(sealed) < ns+b.aead.Overhead() {
		return "", ErrOpenFailed
	}
	plain, err := b.aead.Open(nil, sealed[:ns], sealed[ns:], nil)
	if err != nil {
		return "", ErrOpenFailed
	}
	return string(plain), nil
}
