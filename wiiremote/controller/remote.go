package controller

import "sync/atomic"

// Remote is the last known state of the paired remote. The session side
// writes it, the application loop reads it; every field is a single atomic
// cell so the two sides never share a lock.
type Remote struct {
	ready   atomic.Bool
	buttons atomic.Uint32
	led     atomic.Uint32
}

func NewRemote() *Remote {
	return &Remote{}
}

func (r *Remote) IsReady() bool {
	return r.ready.Load()
}

func (r *Remote) Buttons() uint16 {
	return uint16(r.buttons.Load())
}

func (r *Remote) Led() uint8 {
	return uint8(r.led.Load())
}

func (r *Remote) StoreReady(ready bool) {
	r.ready.Store(ready)
}

func (r *Remote) StoreButtons(buttons uint16) {
	r.buttons.Store(uint32(buttons))
}

func (r *Remote) StoreLed(pattern uint8) {
	r.led.Store(uint32(pattern))
}
