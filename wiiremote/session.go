package wiiremote

import (
	"errors"
	"fmt"

	"dio.wtf/wiiremote/wiiremote/log"
	"dio.wtf/wiiremote/wiiremote/sdp"
)

const (
	// MaxAttributeSize bounds a reassembled directory attribute value.
	MaxAttributeSize = 300
	// MaxDescriptorSize bounds the stored HID report descriptor.
	MaxDescriptorSize = 300
	// MinMTU is the smallest MTU accepted on the HID channels.
	MinMTU uint16 = 48
)

var (
	ErrDirectoryQuery      = errors.New("session: directory query failed")
	ErrControlPSMMissing   = errors.New("session: no HID control PSM in directory record")
	ErrInterruptPSMMissing = errors.New("session: no HID interrupt PSM in directory record")
	ErrChannelRejected     = errors.New("session: channel open failed")
	ErrNegotiationTimeout  = errors.New("session: negotiation timed out")
	ErrLinkLost            = errors.New("session: link lost")
)

type Stage uint8

const (
	Idle Stage = iota
	QueryingDirectory
	OpeningControl
	OpeningInterrupt
	Ready
)

func (s Stage) String() string {
	switch s {
	case Idle:
		return "Idle"
	case QueryingDirectory:
		return "QueryingDirectory"
	case OpeningControl:
		return "OpeningControl"
	case OpeningInterrupt:
		return "OpeningInterrupt"
	case Ready:
		return "Ready"
	default:
		return fmt.Sprintf("Stage(%d)", uint8(s))
	}
}

// outcome tells the host what to do after a negotiator step.
type outcome uint8

const (
	proceed      outcome = iota // nothing beyond the step itself
	connected                   // both channels are up
	aborted                     // negotiation failed, rescan from scratch
	stalled                     // negotiation failed, wait for outside help
	disconnected                // an established session went away
)

type channel struct {
	psm   uint16
	known bool
	cid   ChannelID
	// opening or open
	active bool
}

// attribute reassembles one directory attribute value from chunks.
type attribute struct {
	id       uint16
	total    int
	received int
	// set when the value can not be stored; chunks are dropped until the
	// next attribute starts
	dropped bool
	buf     [MaxAttributeSize]byte
}

// Negotiator walks one remote from directory query to two open HID
// channels. All methods run on the dispatch goroutine.
type Negotiator struct {
	transport Transport
	mtu       uint16

	stage      Stage
	generation uint64
	peer       Address
	control    channel
	interrupt  channel

	attr        attribute
	descriptor  []byte
	serviceName string

	err error
}

func NewNegotiator(transport Transport, mtu uint16) *Negotiator {
	if mtu < MinMTU {
		mtu = MinMTU
	}
	return &Negotiator{
		transport:  transport,
		mtu:        mtu,
		descriptor: make([]byte, 0, MaxDescriptorSize),
	}
}

func (n *Negotiator) Stage() Stage {
	return n.stage
}

// Generation changes on every stage transition. A timer armed for one
// generation is stale once it differs.
func (n *Negotiator) Generation() uint64 {
	return n.generation
}

// Err returns why the last negotiation stopped, or nil.
func (n *Negotiator) Err() error {
	return n.err
}

func (n *Negotiator) Peer() Address {
	return n.peer
}

func (n *Negotiator) ControlPSM() (uint16, bool) {
	return n.control.psm, n.control.known
}

func (n *Negotiator) InterruptPSM() (uint16, bool) {
	return n.interrupt.psm, n.interrupt.known
}

func (n *Negotiator) ControlChannel() ChannelID {
	return n.control.cid
}

func (n *Negotiator) InterruptChannel() ChannelID {
	return n.interrupt.cid
}

func (n *Negotiator) Descriptor() []byte {
	return n.descriptor
}

func (n *Negotiator) ServiceName() string {
	return n.serviceName
}

func (n *Negotiator) negotiating() bool {
	return n.stage == QueryingDirectory || n.stage == OpeningControl || n.stage == OpeningInterrupt
}

func (n *Negotiator) enter(stage Stage) {
	log.DebugF("session %s -> %s", n.stage, stage)
	n.stage = stage
	n.generation++
}

// BeginDirectoryQuery starts negotiating with addr. It is a no-op unless
// the negotiator is Idle.
func (n *Negotiator) BeginDirectoryQuery(addr Address) outcome {
	if n.stage != Idle {
		log.WarnF("ignore directory query for %s while %s", addr, n.stage)
		return proceed
	}
	n.peer = addr
	n.control = channel{}
	n.interrupt = channel{}
	n.attr = attribute{}
	n.descriptor = n.descriptor[:0]
	n.serviceName = ""
	n.err = nil
	n.enter(QueryingDirectory)

	if err := n.transport.QueryDirectory(addr, sdp.ServiceClassHID); nil != err {
		return n.abort(fmt.Errorf("%w: %v", ErrDirectoryQuery, err))
	}
	return proceed
}

func (n *Negotiator) AttributeChunk(ev DirectoryAttributeChunk) outcome {
	if n.stage != QueryingDirectory {
		log.DebugF("ignore attribute 0x%04X while %s", ev.AttributeID, n.stage)
		return proceed
	}

	a := &n.attr
	if ev.Offset == 0 {
		*a = attribute{id: ev.AttributeID, total: ev.Total}
		if ev.Total > MaxAttributeSize {
			log.ErrorF("SDP attribute value size exceeded: available %d, required %d", MaxAttributeSize, ev.Total)
			a.dropped = true
		}
	}
	if a.dropped {
		return proceed
	}
	if ev.AttributeID != a.id || ev.Total != a.total || ev.Offset != a.received || ev.Offset+len(ev.Data) > a.total {
		log.WarnF("SDP attribute 0x%04X chunk out of sequence at %d", ev.AttributeID, ev.Offset)
		a.dropped = true
		return proceed
	}

	a.received += copy(a.buf[a.received:a.total], ev.Data)
	if a.received == a.total {
		n.attributeComplete(a.id, a.buf[:a.total])
		a.dropped = true
	}
	return proceed
}

func (n *Negotiator) attributeComplete(id uint16, value []byte) {
	switch id {
	case sdp.ProtocolDescriptorList:
		if psm, ok := sdp.ControlPSM(value); ok {
			n.control.psm, n.control.known = psm, true
			log.InfoF("HID Control PSM: 0x%04x", psm)
		}
	case sdp.AdditionalProtocolDescriptorLists:
		if psm, ok := sdp.InterruptPSM(value); ok {
			n.interrupt.psm, n.interrupt.known = psm, true
			log.InfoF("HID Interrupt PSM: 0x%04x", psm)
		}
	case sdp.HIDDescriptorList:
		if desc, ok := sdp.HIDDescriptor(value); ok {
			if len(desc) > MaxDescriptorSize {
				desc = desc[:MaxDescriptorSize]
			}
			n.descriptor = append(n.descriptor[:0], desc...)
			log.InfoF("HID Descriptor: %d bytes", len(n.descriptor))
		}
	case sdp.ServiceName:
		if name, ok := sdp.TextValue(value); ok {
			n.serviceName = name
			log.InfoF("HID Service: '%s'", name)
		}
	default:
		log.DebugF("ignore SDP attribute 0x%04X", id)
	}
}

func (n *Negotiator) DirectoryQueryComplete(ev DirectoryQueryComplete) outcome {
	if n.stage != QueryingDirectory {
		return proceed
	}
	switch {
	case !ev.Status.Ok():
		return n.stall(fmt.Errorf("%w: status 0x%02x", ErrDirectoryQuery, uint8(ev.Status)))
	case !n.control.known:
		return n.stall(ErrControlPSMMissing)
	case !n.interrupt.known:
		return n.stall(ErrInterruptPSMMissing)
	}

	n.enter(OpeningControl)
	return n.open(&n.control, "control")
}

func (n *Negotiator) open(ch *channel, what string) outcome {
	log.InfoF("Connecting HID %s channel 0x%04x of %s", what, ch.psm, n.peer)
	cid, err := n.transport.OpenChannel(n.peer, ch.psm, n.mtu)
	if nil != err {
		return n.abort(fmt.Errorf("%w: %s: %v", ErrChannelRejected, what, err))
	}
	ch.cid, ch.active = cid, true
	return proceed
}

func (n *Negotiator) ChannelOpened(ev ChannelOpened) outcome {
	switch {
	case n.stage == OpeningControl && n.control.active && ev.CID == n.control.cid:
		if !ev.Status.Ok() {
			return n.abort(fmt.Errorf("%w: control: status 0x%02x", ErrChannelRejected, uint8(ev.Status)))
		}
		log.InfoF("HID Control channel established, cid 0x%04x", uint16(ev.CID))
		n.enter(OpeningInterrupt)
		return n.open(&n.interrupt, "interrupt")

	case n.stage == OpeningInterrupt && n.interrupt.active && ev.CID == n.interrupt.cid:
		if !ev.Status.Ok() {
			return n.abort(fmt.Errorf("%w: interrupt: status 0x%02x", ErrChannelRejected, uint8(ev.Status)))
		}
		log.InfoF("HID Interrupt channel established, cid 0x%04x", uint16(ev.CID))
		n.enter(Ready)
		return connected

	default:
		log.DebugF("ignore channel 0x%04x opened while %s", uint16(ev.CID), n.stage)
		return proceed
	}
}

// ChannelClosed treats the loss of either HID channel as loss of the link.
func (n *Negotiator) ChannelClosed(cid ChannelID) outcome {
	if !n.owns(cid) {
		return proceed
	}
	if cid == n.control.cid {
		n.control.active = false
	} else {
		n.interrupt.active = false
	}
	return n.lose(fmt.Errorf("%w: channel 0x%04x closed", ErrLinkLost, uint16(cid)))
}

func (n *Negotiator) LinkLost(addr Address) outcome {
	if n.stage == Idle || addr != n.peer {
		return proceed
	}
	return n.lose(fmt.Errorf("%w: %s", ErrLinkLost, addr))
}

func (n *Negotiator) Timeout(generation uint64) outcome {
	if generation != n.generation || !n.negotiating() {
		return proceed
	}
	return n.abort(fmt.Errorf("%w in %s", ErrNegotiationTimeout, n.stage))
}

func (n *Negotiator) owns(cid ChannelID) bool {
	return (n.control.active && cid == n.control.cid) || (n.interrupt.active && cid == n.interrupt.cid)
}

func (n *Negotiator) lose(err error) outcome {
	if n.stage == Ready {
		log.InfoF("HID session with %s lost", n.peer)
		n.err = err
		n.closeChannels()
		n.enter(Idle)
		return disconnected
	}
	if n.negotiating() {
		return n.abort(err)
	}
	return proceed
}

// abort gives up on the current peer; the host forgets it and rescans.
func (n *Negotiator) abort(err error) outcome {
	log.ErrorF("%v", err)
	n.err = err
	n.closeChannels()
	n.enter(Idle)
	return aborted
}

// stall gives up without a rescan.
func (n *Negotiator) stall(err error) outcome {
	log.ErrorF("%v", err)
	n.err = err
	n.closeChannels()
	n.enter(Idle)
	return stalled
}

// closeChannels closes whatever is open and forgets both PSMs and CIDs.
func (n *Negotiator) closeChannels() {
	for _, ch := range []*channel{&n.interrupt, &n.control} {
		if ch.active {
			if err := n.transport.CloseChannel(ch.cid); nil != err {
				log.DebugF("close channel 0x%04x: %v", uint16(ch.cid), err)
			}
		}
		*ch = channel{}
	}
}
