package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

// pbkdf2Iterations follows current OWASP guidance for PBKDF2-SHA256.
const pbkdf2Iterations = 600_000

// secureSalt is a fixed application salt. The derived key only protects
// values at rest in a local store, so per-installation salts would add
// management complexity without a matching threat model.
var secureSalt = []byte("crudkit.store.v1")

// SecureStore wraps another Store and encrypts every value with AES-GCM
// using a key derived from a passphrase. It backs the password gate's
// preference for encrypted persistence.
type SecureStore struct {
	inner Store
	aead  cipher.AEAD
}

// NewSecureStore derives an encryption key from secret and wraps inner.
func NewSecureStore(inner Store, secret string) (*SecureStore, error) {
	if secret == "" {
		return nil, fmt.Errorf("secure store: secret is required")
	}

	key := pbkdf2.Key([]byte(secret), secureSalt, pbkdf2Iterations, 32, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secure store: create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secure store: create AEAD: %w", err)
	}

	return &SecureStore{inner: inner, aead: aead}, nil
}

// Set encrypts value and stores nonce||ciphertext in the inner store.
func (s *SecureStore) Set(key string, value []byte, ttl time.Duration) error {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("secure store: generate nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, value, nil)
	return s.inner.Set(key, sealed, ttl)
}

// Get retrieves and decrypts a value. A value that cannot be decrypted
// (wrong secret, truncated record) is treated as missing.
func (s *SecureStore) Get(key string) ([]byte, error) {
	sealed, err := s.inner.Get(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < s.aead.NonceSize() {
		return nil, ErrNotFound
	}
	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrNotFound
	}
	return plain, nil
}

// Delete removes a value by its key.
func (s *SecureStore) Delete(key string) error {
	return s.inner.Delete(key)
}

// Exists checks if a key exists.
func (s *SecureStore) Exists(key string) (bool, error) {
	return s.inner.Exists(key)
}

// Close closes the inner store.
func (s *SecureStore) Close() error {
	return s.inner.Close()
}
