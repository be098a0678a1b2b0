// Package cryptoenv implements the password-based authenticated-encryption
// envelope shared by catalog/opt-in persistence and signal-bus framing.
//
// The envelope is: salt (16 bytes) || nonce (24 bytes) || ciphertext. The key
// is derived from the password with Argon2id; the body is sealed with
// XChaCha20-Poly1305. Both primitives come from golang.org/x/crypto, already
// a dependency of this module — no homegrown cipher construction.
package cryptoenv

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	saltSize = 16
	keySize  = chacha20poly1305.KeySize

	argonTime    = 3
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 2
)

// ErrDecrypt is returned when a ciphertext fails to authenticate — wrong
// password, truncated envelope, or tampered data. Callers loading the
// catalog at startup must treat this as fatal.
var ErrDecrypt = errors.New("cryptoenv: decryption failed")

// Seal encrypts plaintext under password, producing a self-contained
// envelope that Open can later decrypt given the same password.
func Seal(password string, plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("cryptoenv: generate salt: %w", err)
	}

	aead, err := newAEAD(password, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("cryptoenv: generate nonce: %w", err)
	}

	out := make([]byte, 0, saltSize+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, plaintext, nil)
	return out, nil
}

// Open decrypts an envelope produced by Seal. Returns ErrDecrypt on any
// authentication failure so callers can distinguish "wrong password /
// corrupted file" from other I/O errors.
func Open(password string, envelope []byte) ([]byte, error) {
	if len(envelope) < saltSize+chacha20poly1305.NonceSizeX {
		return nil, ErrDecrypt
	}
	salt := envelope[:saltSize]
	rest := envelope[saltSize:]

	aead, err := newAEAD(password, salt)
	if err != nil {
		return nil, err
	}

	nonceSize := aead.NonceSize()
	if len(rest) < nonceSize {
		return nil, ErrDecrypt
	}
	nonce, ciphertext := rest[:nonceSize], rest[nonceSize:]

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

func newAEAD(password string, salt []byte) (interface {
	NonceSize() int
	Overhead() int
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
}, error) {
	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, keySize)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("cryptoenv: construct aead: %w", err)
	}
	return aead, nil
}
