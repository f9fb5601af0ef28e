package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"testing"
)

func TestVerify(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	message := []byte(`{"license_key":"ABC-123","exp":1999999999}`)
	sig := ed25519.Sign(priv, message)
	sigB64 := base64.RawURLEncoding.EncodeToString(sig)
	sigB64Padded := base64.URLEncoding.EncodeToString(sig)

	otherPub, _, _ := ed25519.GenerateKey(rand.Reader)

	tests := []struct {
		name      string
		publicKey []byte
		sig       string
		message   []byte
		wantValid bool
		wantErr   error
	}{
		{"valid raw-url signature", pub, sigB64, message, true, nil},
		{"valid padded-url signature", pub, sigB64Padded, message, true, nil},
		{"tampered message", pub, sigB64, []byte("tampered"), false, nil},
		{"wrong public key", otherPub, sigB64, message, false, nil},
		{"malformed base64", pub, "not-base64!!!", message, false, ErrVerificationFailed},
		{"wrong key length", []byte("short"), sigB64, message, false, ErrInvalidKey},
		{"wrong signature length", pub, base64.RawURLEncoding.EncodeToString([]byte("short")), message, false, ErrInvalidSignature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, err := Verify(tt.publicKey, tt.sig, tt.message)
			if valid != tt.wantValid {
				t.Errorf("valid = %v, want %v", valid, tt.wantValid)
			}
			if tt.wantErr != nil && err != tt.wantErr {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConstantTimeEquals(t *testing.T) {
	if !ConstantTimeEquals([]byte("abc"), []byte("abc")) {
		t.Error("expected equal byte slices to compare equal")
	}
	if ConstantTimeEquals([]byte("abc"), []byte("abd")) {
		t.Error("expected differing byte slices to compare unequal")
	}
	if ConstantTimeEquals([]byte("abc"), []byte("ab")) {
		t.Error("expected differing-length byte slices to compare unequal without panicking")
	}
}
