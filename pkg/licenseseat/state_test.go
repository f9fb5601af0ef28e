package licenseseat

import "testing"

func TestDerivedStatusType(t *testing.T) {
	tests := []struct {
		state State
		want  StatusType
	}{
		{StateActive, StatusTypeActive},
		{StateOfflineActive, StatusOfflineValid},
		{StateInvalid, StatusInvalid},
		{StateValidating, StatusPending},
		{StateUninitialized, StatusPending},
		{StateActivationFailed, StatusInvalid},
		{StateNoLicense, StatusInactive},
	}
	for _, tt := range tests {
		if got := derivedStatusType(tt.state); got != tt.want {
			t.Errorf("derivedStatusType(%q) = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestSetStateAndGetState_RoundTrip(t *testing.T) {
	c := &Client{}
	c.setState(StateActive, "")
	state, reason := c.getState()
	if state != StateActive || reason != "" {
		t.Errorf("got (%q, %q), want (%q, \"\")", state, reason, StateActive)
	}

	c.setState(StateInvalid, ReasonRevoked)
	state, reason = c.getState()
	if state != StateInvalid || reason != ReasonRevoked {
		t.Errorf("got (%q, %q), want (%q, %q)", state, reason, StateInvalid, ReasonRevoked)
	}
}

func TestGetState_DefaultsToUninitializedBeforeAnySet(t *testing.T) {
	c := &Client{}
	state, reason := c.getState()
	if state != StateUninitialized || reason != "" {
		t.Errorf("got (%q, %q), want (%q, \"\")", state, reason, StateUninitialized)
	}
}
