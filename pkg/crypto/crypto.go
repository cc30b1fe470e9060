package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
)

var ErrCiphertextTooShort = errors.New("ciphertext too short")

// Sealer encrypts and authenticates small payloads with AES-256-GCM.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives a 32 byte key from passphrase.
func NewSealer(passphrase string) (*Sealer, error) {
	key := DeriveKey(passphrase)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

// Encrypt returns base64(nonce || ciphertext).
func (s *Sealer) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := s.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt and fails if the payload was tampered with.
func (s *Sealer) Decrypt(data string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}
	n := s.aead.NonceSize()
	if len(raw) < n {
		return nil, ErrCiphertextTooShort
	}
	return s.aead.Open(nil, raw[:n], raw[n:], nil)
}

// DeriveKey stretches any passphrase to an AES-256 key.
func DeriveKey(passphrase string) [32]byte {
	return sha256.Sum256([]byte(passphrase))
}
