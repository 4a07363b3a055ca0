// Package wiiremote drives a Bluetooth HID host session with a Wii remote:
// inquiry and name resolution, service directory lookup, opening the HID
// control and interrupt channels, decoding button reports and sending the
// player LED command.
package wiiremote

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"dio.wtf/wiiremote/wiiremote/controller"
	"dio.wtf/wiiremote/wiiremote/log"
	R "dio.wtf/wiiremote/wiiremote/report"
)

const eventQueueSize = 64

type Options struct {
	Capacity           int
	InquiryDuration    time.Duration
	MaxNameAttempts    int
	NegotiationTimeout time.Duration
	MTU                uint16
	PinCode            string
	Listener           Listener
}

func DefaultOptions() Options {
	return Options{
		Capacity:           1,
		InquiryDuration:    6400 * time.Millisecond,
		MaxNameAttempts:    3,
		NegotiationTimeout: 10 * time.Second,
		MTU:                MinMTU,
		PinCode:            "0000",
	}
}

// Host owns the discovery and session state. Events are applied one at a
// time by Run (or Dispatch); the accessors and SetLed are safe to call from
// any goroutine.
type Host struct {
	opts      Options
	transport Transport
	listener  Listener
	events    chan Event

	registry  *Registry
	discovery *Discovery
	session   *Negotiator
	remote    *controller.Remote

	// channel used by SetLed, valid while remote is ready
	ledChannel atomic.Uint32

	stage Stage
	armed uint64
	timer *time.Timer
}

func NewHost(transport Transport, opts Options) *Host {
	if nil == opts.Listener {
		opts.Listener = nopListener{}
	}
	registry := NewRegistry(opts.Capacity)
	return &Host{
		opts:      opts,
		transport: transport,
		listener:  opts.Listener,
		events:    make(chan Event, eventQueueSize),
		registry:  registry,
		discovery: NewDiscovery(registry, transport, opts.InquiryDuration, opts.MaxNameAttempts),
		session:   NewNegotiator(transport, opts.MTU),
		remote:    controller.NewRemote(),
	}
}

// Post queues ev for the dispatch goroutine.
func (h *Host) Post(ev Event) {
	h.events <- ev
}

func (h *Host) Run(ctx context.Context) error {
	defer h.stopTimer()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-h.events:
			h.Dispatch(ev)
		}
	}
}

// Dispatch applies one event. It must only be called from a single
// goroutine, the one running Run if there is one.
func (h *Host) Dispatch(ev Event) {
	switch e := ev.(type) {
	case PowerStateChanged:
		h.powerStateChanged(e.On)
	case InquiryResult:
		h.discovery.InquiryResult(e)
	case InquiryComplete:
		h.handoff(h.discovery.InquiryComplete())
	case NameRequestComplete:
		h.handoff(h.discovery.NameResult(e))
	case PinCodeRequest:
		log.InfoF("Pin code request - using '%s'", h.opts.PinCode)
		if err := h.transport.PinCodeResponse(e.Address, h.opts.PinCode); nil != err {
			log.ErrorF("pin code response: %v", err)
		}
	case UserConfirmationRequest:
		log.InfoF("SSP User Confirmation Auto accept: %06d", e.Value)
		if err := h.transport.ConfirmUser(e.Address, true); nil != err {
			log.ErrorF("user confirmation: %v", err)
		}
	case DirectoryAttributeChunk:
		h.settle(h.session.AttributeChunk(e))
	case DirectoryQueryComplete:
		h.settle(h.session.DirectoryQueryComplete(e))
	case ChannelOpened:
		h.settle(h.session.ChannelOpened(e))
	case ChannelData:
		h.channelData(e)
	case ChannelClosed:
		h.settle(h.session.ChannelClosed(e.CID))
	case LinkLost:
		h.settle(h.session.LinkLost(e.Address))
	case NegotiationTimeout:
		h.settle(h.session.Timeout(e.Generation))
	default:
		log.WarnF("unhandled event %T", ev)
	}

	if stage := h.session.Stage(); stage != h.stage {
		h.stage = stage
		h.listener.StageChanged(stage)
	}
	h.armTimeout()
}

func (h *Host) powerStateChanged(on bool) {
	if on {
		log.Info("Bluetooth powered on")
		h.startScan()
		return
	}
	log.Info("Bluetooth powered off")
	if h.session.LinkLost(h.session.Peer()) == disconnected {
		h.remote.StoreReady(false)
		h.listener.Disconnected(h.peer())
	}
	h.registry.Clear()
}

func (h *Host) startScan() {
	h.handoff(h.discovery.StartScan())
}

func (h *Host) handoff(addr Address, ok bool) {
	if ok {
		h.settle(h.session.BeginDirectoryQuery(addr))
	}
}

func (h *Host) settle(o outcome) {
	switch o {
	case connected:
		h.ledChannel.Store(uint32(h.session.InterruptChannel()))
		h.remote.StoreReady(true)
		log.InfoF("HID Host connected to %s", h.session.Peer())
		h.listener.Connected(h.peer())
		if led := h.remote.Led(); led != 0 {
			h.sendLed(led)
		}
	case disconnected:
		h.remote.StoreReady(false)
		h.listener.Disconnected(h.peer())
		h.restart()
	case aborted:
		h.restart()
	case stalled:
		log.WarnF("session with %s stopped: %v", h.session.Peer(), h.session.Err())
	}
}

// restart forgets every candidate and starts over with a fresh inquiry.
func (h *Host) restart() {
	h.registry.Clear()
	h.startScan()
}

func (h *Host) peer() Peer {
	p := Peer{
		Address:     h.session.Peer(),
		ServiceName: h.session.ServiceName(),
		Descriptor:  append([]byte(nil), h.session.Descriptor()...),
	}
	if dev, ok := h.registry.Lookup(p.Address); ok {
		p.Name = dev.Name
	}
	return p
}

func (h *Host) armTimeout() {
	generation := h.session.Generation()
	if generation == h.armed {
		return
	}
	h.armed = generation
	h.stopTimer()
	if h.opts.NegotiationTimeout <= 0 || !h.session.negotiating() {
		return
	}
	h.timer = time.AfterFunc(h.opts.NegotiationTimeout, func() {
		h.Post(NegotiationTimeout{Generation: generation})
	})
}

func (h *Host) stopTimer() {
	if nil != h.timer {
		h.timer.Stop()
		h.timer = nil
	}
}

func (h *Host) IsReady() bool {
	return h.remote.IsReady()
}

func (h *Host) Buttons() uint16 {
	return h.remote.Buttons()
}

func (h *Host) Led() uint8 {
	return h.remote.Led()
}

// Registry exposes the candidate list to the dispatch goroutine, mainly for
// tests.
func (h *Host) Registry() *Registry {
	return h.registry
}

func (h *Host) Session() *Negotiator {
	return h.session
}

// SetLed records pattern and, with a session up, sends it to the remote.
// A failed send is handled as a lost link on the dispatch goroutine.
func (h *Host) SetLed(pattern uint8) error {
	h.remote.StoreLed(pattern)
	if !h.remote.IsReady() {
		return nil
	}
	return h.sendLed(pattern)
}

func (h *Host) sendLed(pattern uint8) error {
	cid := ChannelID(h.ledChannel.Load())
	out := R.PlayerLeds(pattern)
	log.DebugF("%s", out)
	if err := h.transport.Send(cid, out); nil != err {
		log.ErrorF("send LED report: %v", err)
		h.remote.StoreReady(false)
		go h.Post(ChannelClosed{CID: cid})
		return fmt.Errorf("set led: %w", err)
	}
	return nil
}
