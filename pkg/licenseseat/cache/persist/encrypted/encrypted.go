// Package encrypted wraps any persist.Persister to encrypt the blob at
// rest with ChaCha20-Poly1305, keyed from a passphrase the host
// supplies. Grounded on the AES-encrypted local validation-state file
// pattern used for tamper-evident license caches: a random nonce is
// prepended to each ciphertext so Save never reuses one.
package encrypted

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/licenseseat/sdk-go/pkg/licenseseat/cache/persist"
)

// Persister transparently encrypts/decrypts data passed to an inner
// persist.Persister.
type Persister struct {
	inner persist.Persister
	key   [chacha20poly1305.KeySize]byte
}

// New derives a 256-bit key from passphrase via SHA-256 and wraps inner.
func New(inner persist.Persister, passphrase string) *Persister {
	return &Persister{inner: inner, key: sha256.Sum256([]byte(passphrase))}
}

// Load reads and decrypts the inner blob.
func (p *Persister) Load() ([]byte, bool, error) {
	raw, ok, err := p.inner.Load()
	if err != nil || !ok {
		return nil, ok, err
	}

	aead, err := chacha20poly1305.New(p.key[:])
	if err != nil {
		return nil, false, fmt.Errorf("encrypted: init cipher: %w", err)
	}
	if len(raw) < aead.NonceSize() {
		return nil, false, fmt.Errorf("encrypted: ciphertext too short")
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, false, fmt.Errorf("encrypted: decrypt: %w", err)
	}
	return plaintext, true, nil
}

// Save encrypts data with a fresh random nonce and writes it through the
// inner persister.
func (p *Persister) Save(data []byte) error {
	aead, err := chacha20poly1305.New(p.key[:])
	if err != nil {
		return fmt.Errorf("encrypted: init cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("encrypted: generate nonce: %w", err)
	}

	ciphertext := aead.Seal(nonce, nonce, data, nil)
	return p.inner.Save(ciphertext)
}
