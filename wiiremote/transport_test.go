package wiiremote

import (
	"fmt"
	"sync"
	"time"
)

type call struct {
	op   string
	addr Address
	psm  uint16
	mtu  uint16
	cid  ChannelID
	arg  string
	data []byte
}

func (c call) String() string {
	return fmt.Sprintf("%s(%s psm=0x%04x cid=%d %s)", c.op, c.addr, c.psm, c.cid, c.arg)
}

type mockTransport struct {
	mu      sync.Mutex
	calls   []call
	nextCID ChannelID

	inquiryErr error
	nameErr    error
	queryErr   error
	sendErr    error
	openErr    map[uint16]error
}

func newMockTransport() *mockTransport {
	return &mockTransport{nextCID: 0x40, openErr: map[uint16]error{}}
}

func (m *mockTransport) record(c call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

func (m *mockTransport) StartInquiry(duration time.Duration) error {
	m.record(call{op: "inquiry", arg: duration.String()})
	return m.inquiryErr
}

func (m *mockTransport) RequestName(addr Address, mode uint8, clockOffset uint16) error {
	m.record(call{op: "name", addr: addr, arg: fmt.Sprintf("%d 0x%04x", mode, clockOffset)})
	return m.nameErr
}

func (m *mockTransport) QueryDirectory(addr Address, serviceClass uint16) error {
	m.record(call{op: "query", addr: addr, arg: fmt.Sprintf("0x%04x", serviceClass)})
	return m.queryErr
}

func (m *mockTransport) OpenChannel(addr Address, psm uint16, mtu uint16) (ChannelID, error) {
	m.record(call{op: "open", addr: addr, psm: psm, mtu: mtu})
	if err := m.openErr[psm]; nil != err {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextCID++
	return m.nextCID, nil
}

func (m *mockTransport) CloseChannel(cid ChannelID) error {
	m.record(call{op: "close", cid: cid})
	return nil
}

func (m *mockTransport) Send(cid ChannelID, data []byte) error {
	m.record(call{op: "send", cid: cid, data: append([]byte(nil), data...)})
	return m.sendErr
}

func (m *mockTransport) PinCodeResponse(addr Address, pin string) error {
	m.record(call{op: "pin", addr: addr, arg: pin})
	return nil
}

func (m *mockTransport) ConfirmUser(addr Address, accept bool) error {
	m.record(call{op: "confirm", addr: addr, arg: fmt.Sprint(accept)})
	return nil
}

func (m *mockTransport) ops() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ops := make([]string, len(m.calls))
	for i, c := range m.calls {
		ops[i] = c.op
	}
	return ops
}

func (m *mockTransport) last(op string) (call, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.calls) - 1; i >= 0; i-- {
		if m.calls[i].op == op {
			return m.calls[i], true
		}
	}
	return call{}, false
}

func (m *mockTransport) count(op string) int {
	n := 0
	for _, o := range m.ops() {
		if o == op {
			n++
		}
	}
	return n
}

func (m *mockTransport) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

type recordingListener struct {
	stages       []Stage
	connected    []Peer
	disconnected []Peer
}

func (l *recordingListener) StageChanged(s Stage) { l.stages = append(l.stages, s) }
func (l *recordingListener) Connected(p Peer)     { l.connected = append(l.connected, p) }
func (l *recordingListener) Disconnected(p Peer)  { l.disconnected = append(l.disconnected, p) }
