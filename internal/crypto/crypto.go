// Package crypto seals small local files (session token, stored lab report
// descriptor) with AES-256-GCM.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// sealedPrefix marks a sealed payload so plaintext files written before a key
// was configured can still be read.
var sealedPrefix = []byte("gemseal:v1:")

var (
	ErrInvalidKey = errors.New("SESSION_ENCRYPTION_KEY must be 32 bytes")
	// ErrCiphertextTooShort means the payload cannot even hold a nonce
	ErrCiphertextTooShort = errors.New("sealed payload is truncated")
	// ErrDecryptionFailed covers a wrong key, tampering and a purpose mismatch
	ErrDecryptionFailed = errors.New("sealed payload could not be opened")
	// ErrSealedWithoutKey is returned when a sealed payload is read by a nil Sealer
	ErrSealedWithoutKey = errors.New("payload is sealed but no encryption key is configured")
)

// Sealer seals and opens byte payloads. A nil *Sealer passes data through
// unchanged. Payloads sealed for one purpose do not open under another.
type Sealer struct {
	gcm     cipher.AEAD
	purpose []byte
}

// NewSealer creates a Sealer with the given 32-byte key
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != 32 {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Sealer{gcm: gcm}, nil
}

// For returns a Sealer sharing the key whose payloads are bound to purpose,
// e.g. "session" or "lab-report-draft". For on a nil Sealer returns nil.
func (s *Sealer) For(purpose string) *Sealer {
	if s == nil {
		return nil
	}
	return &Sealer{gcm: s.gcm, purpose: []byte(purpose)}
}

// NewSealerIfConfigured returns nil, nil for an empty key
func NewSealerIfConfigured(key []byte) (*Sealer, error) {
	if len(key) == 0 {
		return nil, nil
	}
	return NewSealer(key)
}

// Seal encrypts plaintext into a prefixed, base64 encoded payload
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	if s == nil {
		return plaintext, nil
	}

	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := s.gcm.Seal(nonce, nonce, plaintext, s.purpose)

	out := make([]byte, 0, len(sealedPrefix)+base64.StdEncoding.EncodedLen(len(ciphertext)))
	out = append(out, sealedPrefix...)
	out = base64.StdEncoding.AppendEncode(out, ciphertext)
	return out, nil
}

// Open reverses Seal. Unprefixed input is returned as-is.
func (s *Sealer) Open(payload []byte) ([]byte, error) {
	if !IsSealed(payload) {
		return payload, nil
	}
	payload = bytes.TrimSpace(payload)
	if s == nil {
		return nil, ErrSealedWithoutKey
	}

	ciphertext, err := base64.StdEncoding.DecodeString(string(payload[len(sealedPrefix):]))
	if err != nil {
		return nil, fmt.Errorf("failed to decode sealed payload: %w", err)
	}

	nonceSize := s.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, ErrCiphertextTooShort
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := s.gcm.Open(nil, nonce, ciphertext, s.purpose)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}

// IsSealed reports whether payload was produced by Seal
func IsSealed(payload []byte) bool {
	return bytes.HasPrefix(bytes.TrimSpace(payload), sealedPrefix)
}
