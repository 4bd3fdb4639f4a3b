package sessions

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// MinSecretLength is the shortest accepted secret, in bytes (256 bits).
const MinSecretLength = 32

const (
	sealedKeyInfo = "loginmanager cookie encryption"
	signedKeyInfo = "loginmanager cookie signing"
)

// cookieEncoding rejects non-canonical base64, so no two strings open to the same bytes.
var cookieEncoding = base64.RawURLEncoding.Strict()

// Envelope protects a cookie value. Seal output must be a valid cookie value;
// Open must fail closed with ErrInvalidCookie on anything Seal did not produce
// for the same name.
type Envelope interface {
	Seal(name string, plaintext []byte) (string, error)
	Open(name string, value string) ([]byte, error)
}

// deriveKey hashes the secret with SHA-256 and expands it with HKDF, so
// envelopes using a different info string never share key material.
func deriveKey(secret []byte, info string) ([]byte, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: got %d bytes", ErrSecretTooShort, len(secret))
	}

	digest := sha256.Sum256(secret)
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, digest[:], nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("sessions: failed to derive key: %w", err)
	}

	return key, nil
}

// SealedEnvelope encrypts and authenticates cookie values with AES-256-GCM.
// The cookie name is bound as associated data. The value is opaque to the
// client.
type SealedEnvelope struct {
	aead cipher.AEAD
}

func NewSealedEnvelope(secret []byte) (*SealedEnvelope, error) {
	key, err := deriveKey(secret, sealedKeyInfo)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("sessions: failed to create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("sessions: failed to initialise AES-GCM: %w", err)
	}

	return &SealedEnvelope{aead: aead}, nil
}

// Seal returns base64url(nonce || ciphertext || tag).
func (e *SealedEnvelope) Seal(name string, plaintext []byte) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("sessions: failed to generate nonce: %w", err)
	}

	sealed := e.aead.Seal(nonce, nonce, plaintext, []byte(name))
	return cookieEncoding.EncodeToString(sealed), nil
}

func (e *SealedEnvelope) Open(name string, value string) ([]byte, error) {
	raw, err := cookieEncoding.DecodeString(value)
	if err != nil {
		return nil, ErrInvalidCookie
	}

	nonceSize := e.aead.NonceSize()
	if len(raw) < nonceSize+e.aead.Overhead() {
		return nil, ErrInvalidCookie
	}

	plaintext, err := e.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], []byte(name))
	if err != nil {
		return nil, ErrInvalidCookie
	}

	return plaintext, nil
}

// NewEnvelope builds the envelope selected by name: "sealed" or "signed".
func NewEnvelope(name string, secret []byte) (Envelope, error) {
	switch name {
	case "", "sealed":
		return NewSealedEnvelope(secret)
	case "signed":
		return NewSignedEnvelope(secret)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEnvelope, name)
	}
}
