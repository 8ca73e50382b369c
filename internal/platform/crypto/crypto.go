// Package crypto provides authenticated encryption, content hashing, and key
// derivation for medical record payloads. Records are encrypted with
// AES-256-GCM and stored as a single self-describing blob
// (nonce || ciphertext || tag), so the nonce never needs to be persisted
// separately.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the AES-256 key size in bytes.
	KeySize = 32
	// NonceSize is the GCM nonce size in bytes (96 bits, the recommended default).
	NonceSize = 12
	// TagSize is the GCM authentication tag size in bytes (128 bits).
	TagSize = 16
)

// ErrInvalidKey is returned when a key is not exactly KeySize bytes.
var ErrInvalidKey = errors.New("crypto: key must be 32 bytes")

// ErrDecryptionFailed is returned when a blob cannot be decrypted: it is too
// short to hold a nonce and tag, the authentication tag does not verify
// (tampering or wrong key), or the plaintext is not valid UTF-8. The cause is
// deliberately not distinguished to the caller.
var ErrDecryptionFailed = errors.New("crypto: decryption failed")

// Encrypt encrypts plaintext with AES-256-GCM under the given 32-byte key and
// returns nonce || ciphertext || tag as one contiguous blob. A fresh random
// nonce is drawn for every call. No associated data is bound.
func Encrypt(plaintext string, key []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("crypto: generate nonce: %w", err)
	}

	// Seal appends ciphertext+tag to the nonce slice, yielding the on-disk layout.
	return aead.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

// Decrypt splits blob into its 12-byte nonce and ciphertext+tag remainder,
// verifies the tag, and returns the original plaintext.
func Decrypt(blob, key []byte) (string, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}

	if len(blob) < NonceSize+TagSize {
		return "", ErrDecryptionFailed
	}

	nonce, ciphertext := blob[:NonceSize], blob[NonceSize:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	if !utf8.Valid(plaintext) {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// HashContent returns the SHA-256 digest of the UTF-8 bytes of plaintext as
// 64 lowercase hex characters. Pure and deterministic; this is the fingerprint
// anchored with the access oracle and must never be recomputed from ciphertext.
func HashContent(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// keyDerivationSalt is a fixed application-wide salt. Deriving every record
// key from one master secret with a static salt is an MVP placeholder for a
// managed secret store; it guarantees key length, not per-tenant separation.
var keyDerivationSalt = []byte("meditrust-record-key-v1")

const keyDerivationIterations = 100_000

// DeriveKey derives the 32-byte record encryption key from the operator
// supplied master secret using PBKDF2-HMAC-SHA256. Deterministic: the same
// secret always yields the same key.
func DeriveKey(masterSecret string) []byte {
	return pbkdf2.Key([]byte(masterSecret), keyDerivationSalt, keyDerivationIterations, KeySize, sha256.New)
}

// GenerateKey returns a fresh random 32-byte key. Used by tests and tooling.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("crypto: generate key: %w", err)
	}
	return key, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
