package wiiremote

import "testing"

func TestRegistry(t *testing.T) {
	r := NewRegistry(2)
	if !r.Add(CandidateDevice{Address: wiimote}) {
		t.Fatal("Add() refused the first device")
	}
	if r.Add(CandidateDevice{Address: wiimote, Name: "again"}) {
		t.Error("Add() accepted a duplicate address")
	}
	if !r.Add(CandidateDevice{Address: otherRemote}) {
		t.Error("Add() refused the second device")
	}
	if r.Add(CandidateDevice{Address: Address{1}}) {
		t.Error("Add() went past capacity")
	}
	if !r.Full() || r.Len() != 2 {
		t.Errorf("Len() = %d Full() = %v, want 2 true", r.Len(), r.Full())
	}

	dev, ok := r.Lookup(otherRemote)
	if !ok {
		t.Fatal("Lookup() missed a stored device")
	}
	dev.State = NameResolved
	if r.At(1).State != NameResolved {
		t.Error("Lookup() did not return the stored entry")
	}
	if _, ok := r.Lookup(Address{1}); ok {
		t.Error("Lookup() found an unknown device")
	}

	devices := r.Devices()
	devices[0].Name = "changed"
	if r.At(0).Name != "" {
		t.Error("Devices() shares storage with the registry")
	}

	r.Clear()
	if r.Len() != 0 || r.Index(wiimote) != -1 {
		t.Error("Clear() kept devices")
	}
}

func TestRegistryMinimumCapacity(t *testing.T) {
	r := NewRegistry(0)
	if !r.Add(CandidateDevice{Address: wiimote}) {
		t.Error("zero capacity registry should still hold one device")
	}
}

func TestDiscoveryStateString(t *testing.T) {
	tests := []struct {
		state DiscoveryState
		want  string
	}{
		{NameNeeded, "NameNeeded"},
		{NameRequested, "NameRequested"},
		{NameResolved, "NameResolved"},
		{DiscoveryState(7), "DiscoveryState(7)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
