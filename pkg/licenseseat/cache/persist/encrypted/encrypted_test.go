package encrypted

import "testing"

type memPersister struct {
	data []byte
	ok   bool
}

func (p *memPersister) Load() ([]byte, bool, error) { return p.data, p.ok, nil }
func (p *memPersister) Save(data []byte) error {
	p.data = append([]byte(nil), data...)
	p.ok = true
	return nil
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	inner := &memPersister{}
	p := New(inner, "correct horse battery staple")

	if err := p.Save([]byte(`{"k":"v"}`)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, ok, err := p.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !ok {
		t.Fatal("ok should be true after Save")
	}
	if string(data) != `{"k":"v"}` {
		t.Errorf("data = %q, want %q", data, `{"k":"v"}`)
	}
}

func TestInnerBlobIsNotPlaintext(t *testing.T) {
	inner := &memPersister{}
	p := New(inner, "passphrase")
	if err := p.Save([]byte(`{"key":"ABC-123"}`)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if string(inner.data) == `{"key":"ABC-123"}` {
		t.Fatal("inner persister received plaintext; Save should encrypt before delegating")
	}
}

func TestLoad_MissingIsNotError(t *testing.T) {
	inner := &memPersister{}
	p := New(inner, "passphrase")
	data, ok, err := p.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || data != nil {
		t.Errorf("got (%v, %v), want (nil, false)", data, ok)
	}
}

func TestLoad_WrongPassphraseFails(t *testing.T) {
	inner := &memPersister{}
	writer := New(inner, "correct passphrase")
	if err := writer.Save([]byte("secret")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reader := New(inner, "wrong passphrase")
	if _, _, err := reader.Load(); err == nil {
		t.Fatal("expected decryption to fail with the wrong passphrase")
	}
}

func TestSave_NeverReusesNonce(t *testing.T) {
	inner := &memPersister{}
	p := New(inner, "passphrase")

	if err := p.Save([]byte("same plaintext")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	first := append([]byte(nil), inner.data...)

	if err := p.Save([]byte("same plaintext")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	second := inner.data

	if string(first) == string(second) {
		t.Fatal("encrypting identical plaintext twice produced identical ciphertext; nonce is not being randomized")
	}
}

func TestLoad_TruncatedCiphertextErrors(t *testing.T) {
	inner := &memPersister{data: []byte("x"), ok: true}
	p := New(inner, "passphrase")
	if _, _, err := p.Load(); err == nil {
		t.Fatal("expected an error for ciphertext shorter than the nonce size")
	}
}
