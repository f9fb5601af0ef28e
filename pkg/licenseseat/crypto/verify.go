// Package crypto checks Ed25519 signatures over server-supplied canonical
// byte sequences. It never re-serializes a payload itself.
package crypto

import (
	"crypto/ed25519"
	"crypto/subtle"
	"encoding/base64"
	"errors"
)

// Error codes surfaced by Verify, matching the crypto error taxonomy.
var (
	ErrInvalidKey          = errors.New("invalid_key")
	ErrInvalidSignature    = errors.New("invalid_signature")
	ErrVerificationFailed  = errors.New("verification_failed")
)

// Verify decodes signatureB64 (base64url, padding optional) and checks it
// against message using publicKey. It never performs network I/O and is
// deterministic: identical inputs always yield the identical result.
func Verify(publicKey []byte, signatureB64 string, message []byte) (valid bool, err error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return false, ErrInvalidKey
	}

	sig, decErr := decodeBase64URL(signatureB64)
	if decErr != nil {
		return false, ErrVerificationFailed
	}
	if len(sig) != ed25519.SignatureSize {
		return false, ErrInvalidSignature
	}

	defer func() {
		// ed25519.Verify panics on malformed inputs in some edge cases
		// (e.g. a public key slice that was mutated concurrently); this
		// package guarantees a strict boolean return instead.
		if recover() != nil {
			valid, err = false, ErrVerificationFailed
		}
	}()

	return ed25519.Verify(ed25519.PublicKey(publicKey), message, sig), nil
}

// ConstantTimeEquals compares two byte slices in constant time. Unequal
// lengths never panic and always return false.
func ConstantTimeEquals(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

func decodeBase64URL(s string) ([]byte, error) {
	if b, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.URLEncoding.DecodeString(s)
}
