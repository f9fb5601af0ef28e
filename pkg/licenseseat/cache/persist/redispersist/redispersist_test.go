package redispersist

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestLoad_MissingKeyIsNotError(t *testing.T) {
	p := New(newTestClient(t), "licenseseat_")
	data, ok, err := p.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || data != nil {
		t.Errorf("got (%v, %v), want (nil, false)", data, ok)
	}
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	p := New(newTestClient(t), "licenseseat_")
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

func TestNew_KeyIsPrefixed(t *testing.T) {
	p := New(newTestClient(t), "myapp_")
	if p.Key != "myapp_cache" {
		t.Errorf("Key = %q, want %q", p.Key, "myapp_cache")
	}
}

func TestSave_OverwritesPriorBlob(t *testing.T) {
	p := New(newTestClient(t), "licenseseat_")
	if err := p.Save([]byte("first")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := p.Save([]byte("second")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, _, err := p.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("data = %q, want %q", data, "second")
	}
}
