package wiiremote

import (
	"fmt"

	"golang.org/x/exp/slices"
)

type DiscoveryState uint8

const (
	NameNeeded DiscoveryState = iota
	NameRequested
	NameResolved
)

func (s DiscoveryState) String() string {
	switch s {
	case NameNeeded:
		return "NameNeeded"
	case NameRequested:
		return "NameRequested"
	case NameResolved:
		return "NameResolved"
	default:
		return fmt.Sprintf("DiscoveryState(%d)", uint8(s))
	}
}

type CandidateDevice struct {
	Address                Address
	PageScanRepetitionMode uint8
	ClockOffset            uint16
	ClassOfDevice          uint32
	Name                   string
	State                  DiscoveryState
	NameAttempts           int
}

// Registry holds the devices found by the current inquiry round, in
// discovery order, at most one entry per address.
type Registry struct {
	devices  []CandidateDevice
	capacity int
}

func NewRegistry(capacity int) *Registry {
	if capacity < 1 {
		capacity = 1
	}
	return &Registry{
		devices:  make([]CandidateDevice, 0, capacity),
		capacity: capacity,
	}
}

// Add appends dev unless its address is already known or the registry is
// full. It reports whether dev was stored.
func (r *Registry) Add(dev CandidateDevice) bool {
	if len(r.devices) >= r.capacity || r.Index(dev.Address) >= 0 {
		return false
	}
	r.devices = append(r.devices, dev)
	return true
}

func (r *Registry) Index(addr Address) int {
	return slices.IndexFunc(r.devices, func(d CandidateDevice) bool {
		return d.Address == addr
	})
}

// Lookup returns the stored entry for addr. The pointer is valid until the
// next Add or Clear.
func (r *Registry) Lookup(addr Address) (*CandidateDevice, bool) {
	i := r.Index(addr)
	if i < 0 {
		return nil, false
	}
	return &r.devices[i], true
}

func (r *Registry) At(i int) *CandidateDevice {
	return &r.devices[i]
}

func (r *Registry) Len() int {
	return len(r.devices)
}

func (r *Registry) Full() bool {
	return len(r.devices) >= r.capacity
}

func (r *Registry) Devices() []CandidateDevice {
	return slices.Clone(r.devices)
}

func (r *Registry) Clear() {
	r.devices = r.devices[:0]
}
