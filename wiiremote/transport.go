package wiiremote

import "time"

// ChannelID names an L2CAP channel opened through a Transport. IDs are
// never reused within one Transport.
type ChannelID uint16

// Transport is the radio side. Every method except Send is called from the
// dispatch goroutine only and must not block on the remote; completions come
// back as events. Send may be called from any goroutine.
type Transport interface {
	StartInquiry(duration time.Duration) error
	RequestName(addr Address, pageScanRepetitionMode uint8, clockOffset uint16) error
	QueryDirectory(addr Address, serviceClass uint16) error
	OpenChannel(addr Address, psm uint16, mtu uint16) (ChannelID, error)
	CloseChannel(cid ChannelID) error
	Send(cid ChannelID, data []byte) error
	PinCodeResponse(addr Address, pin string) error
	ConfirmUser(addr Address, accept bool) error
}

// Listener is notified from the dispatch goroutine.
type Listener interface {
	StageChanged(stage Stage)
	Connected(peer Peer)
	Disconnected(peer Peer)
}

// Peer describes the remote a session was negotiated with.
type Peer struct {
	Address     Address
	Name        string
	ServiceName string
	Descriptor  []byte
}

type nopListener struct{}

func (nopListener) StageChanged(Stage) {}
func (nopListener) Connected(Peer)     {}
func (nopListener) Disconnected(Peer)  {}
