package clockmonitor

import "testing"

type memStore struct {
	value int64
	ok    bool
}

func (s *memStore) Load() (int64, bool, error) { return s.value, s.ok, nil }
func (s *memStore) Save(v int64) error         { s.value = v; s.ok = true; return nil }

func TestObserve_AdvancesAndPersists(t *testing.T) {
	store := &memStore{}
	m := New(store, 1000)

	if tampered := m.Observe(10_000); tampered {
		t.Fatal("first observation should never be tampered")
	}
	if got := m.LastSeen(); got != 10_000 {
		t.Errorf("LastSeen() = %d, want 10000", got)
	}
	if store.value != 10_000 {
		t.Errorf("store not updated: got %d", store.value)
	}

	if tampered := m.Observe(20_000); tampered {
		t.Fatal("forward jump should not be tampered")
	}
}

func TestObserve_DetectsTamperBeyondTolerance(t *testing.T) {
	m := New(nil, 1000)
	m.Observe(50_000)

	if tampered := m.Observe(48_000); !tampered {
		t.Fatal("backward jump beyond tolerance should be tampered")
	}
	if !m.IsTampered() {
		t.Fatal("IsTampered() should report true after a tamper detection")
	}
}

func TestObserve_WithinToleranceIsNotTamper(t *testing.T) {
	m := New(nil, 1000)
	m.Observe(50_000)

	if tampered := m.Observe(49_500); tampered {
		t.Fatal("backward jump within tolerance should not be tampered")
	}
}

func TestObserve_StaysTamperedUntilReset(t *testing.T) {
	m := New(nil, 1000)
	m.Observe(50_000)
	m.Observe(10_000) // trips tamper

	if tampered := m.Observe(60_000); !tampered {
		t.Fatal("tamper flag should stick even after a later well-formed observation")
	}

	m.Reset()
	if m.IsTampered() {
		t.Fatal("Reset() should clear the tamper flag")
	}
	if got := m.LastSeen(); got != 0 {
		t.Errorf("Reset() should clear last-seen, got %d", got)
	}
}

func TestNew_LoadsPriorValue(t *testing.T) {
	store := &memStore{value: 5_000, ok: true}
	m := New(store, 0)
	if got := m.LastSeen(); got != 5_000 {
		t.Errorf("New() did not load prior value: got %d", got)
	}
}

func TestNew_DefaultsSkewTolerance(t *testing.T) {
	m := New(nil, 0)
	if m.skewTolerance != DefaultSkewTolerance {
		t.Errorf("skewTolerance = %d, want default %d", m.skewTolerance, DefaultSkewTolerance)
	}
}
