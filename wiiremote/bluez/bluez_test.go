package bluez

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	W "dio.wtf/wiiremote/wiiremote"
	"dio.wtf/wiiremote/wiiremote/sdp"
	"github.com/godbus/dbus/v5"
	"golang.org/x/sys/unix"
)

const testAdapterPath = dbus.ObjectPath("/org/bluez/hci0")

var wiimote = W.Address{0x00, 0x1F, 0x32, 0xAA, 0xBB, 0xCC}

type eventLog struct {
	mu     sync.Mutex
	events []W.Event
	ch     chan W.Event
}

func newEventLog() *eventLog {
	return &eventLog{ch: make(chan W.Event, 64)}
}

func (l *eventLog) post(ev W.Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
	l.ch <- ev
}

func (l *eventLog) next(t *testing.T) W.Event {
	t.Helper()
	select {
	case ev := <-l.ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event posted")
		return nil
	}
}

func newTestTransport(post func(W.Event)) *Transport {
	return &Transport{
		adapterPath: testAdapterPath,
		post:        post,
		channels:    make(map[W.ChannelID]*channel),
		nextCID:     firstChannelID,
		replies:     make(map[W.Address]chan agentReply),
	}
}

func TestDevicePath(t *testing.T) {
	path := devicePath(testAdapterPath, wiimote)
	if path != "/org/bluez/hci0/dev_00_1F_32_AA_BB_CC" {
		t.Errorf("devicePath() = %s", path)
	}
	addr, ok := addressFromPath(testAdapterPath, path)
	if !ok || addr != wiimote {
		t.Errorf("addressFromPath() = %s %v, want %s", addr, ok, wiimote)
	}
	if _, ok := addressFromPath(testAdapterPath, "/org/bluez/hci1/dev_00_1F_32_AA_BB_CC"); ok {
		t.Error("addressFromPath() accepted a device of another adapter")
	}
	if _, ok := addressFromPath(testAdapterPath, "/org/bluez/hci0/dev_00_1F"); ok {
		t.Error("addressFromPath() accepted a truncated address")
	}
}

func TestSockaddr(t *testing.T) {
	sa := sockaddr(wiimote, 0x0013)
	if sa.PSM != 0x0013 || sa.AddrType != unix.BDADDR_BREDR {
		t.Errorf("sockaddr() = psm 0x%04x type %d", sa.PSM, sa.AddrType)
	}
	if sa.Addr != [6]uint8(wiimote) {
		t.Errorf("sockaddr().Addr = % X, want % X", sa.Addr, wiimote)
	}
}

func TestConnectStatus(t *testing.T) {
	tests := []struct {
		err  error
		want W.Status
	}{
		{nil, W.StatusSuccess},
		{fmt.Errorf("unix.Connect %w", unix.ECONNREFUSED), W.StatusRefused},
		{fmt.Errorf("unix.Connect %w", unix.EHOSTDOWN), W.StatusPageTimeout},
		{fmt.Errorf("unix.Connect %w", unix.ETIMEDOUT), W.StatusPageTimeout},
		{errors.New("other"), W.StatusFailed},
	}
	for _, tt := range tests {
		if got := connectStatus(tt.err); got != tt.want {
			t.Errorf("connectStatus(%v) = 0x%02x, want 0x%02x", tt.err, got, tt.want)
		}
	}
}

func TestInquiryResult(t *testing.T) {
	props := map[string]dbus.Variant{
		"Address": dbus.MakeVariant("00:1F:32:AA:BB:CC"),
		"Name":    dbus.MakeVariant("Nintendo RVL-CNT-01"),
		"Class":   dbus.MakeVariant(uint32(0x002504)),
		"RSSI":    dbus.MakeVariant(int16(-52)),
	}
	ev, err := inquiryResult(props)
	if nil != err {
		t.Fatalf("inquiryResult() error = %v", err)
	}
	if ev.Address != wiimote || ev.ClassOfDevice != 0x002504 {
		t.Errorf("inquiryResult() = %s 0x%06x", ev.Address, ev.ClassOfDevice)
	}
	if !ev.HasName || ev.Name != "Nintendo RVL-CNT-01" {
		t.Errorf("name = %q %v", ev.Name, ev.HasName)
	}
	if !ev.HasRSSI || ev.RSSI != -52 {
		t.Errorf("rssi = %d %v", ev.RSSI, ev.HasRSSI)
	}

	ev, err = inquiryResult(map[string]dbus.Variant{"Address": dbus.MakeVariant("00:1F:32:AA:BB:CC")})
	if nil != err {
		t.Fatalf("inquiryResult() error = %v", err)
	}
	if ev.HasName || ev.HasRSSI {
		t.Errorf("inquiryResult() = %+v, want no name and no rssi", ev)
	}
}

func TestPostAttribute(t *testing.T) {
	events := newEventLog()
	tr := newTestTransport(events.post)

	value := make([]byte, 150)
	for i := range value {
		value[i] = byte(i)
	}
	tr.postAttribute(sdp.Attribute{ID: sdp.HIDDescriptorList, Value: value})
	tr.postAttribute(sdp.Attribute{ID: sdp.ServiceName})

	if len(events.events) != 4 {
		t.Fatalf("posted %d chunks, want 4", len(events.events))
	}
	var got []byte
	for i, off := range []int{0, 64, 128} {
		chunk := events.events[i].(W.DirectoryAttributeChunk)
		if chunk.Offset != off || chunk.Total != 150 || chunk.AttributeID != sdp.HIDDescriptorList {
			t.Errorf("chunk %d = offset %d total %d", i, chunk.Offset, chunk.Total)
		}
		got = append(got, chunk.Data...)
	}
	if string(got) != string(value) {
		t.Error("chunks do not add up to the value")
	}
	if empty := events.events[3].(W.DirectoryAttributeChunk); empty.Total != 0 || len(empty.Data) != 0 {
		t.Errorf("empty attribute chunk = %+v", empty)
	}
}

func TestAgentPinCode(t *testing.T) {
	var tr *Transport
	tr = newTestTransport(func(ev W.Event) {
		req := ev.(W.PinCodeRequest)
		go tr.PinCodeResponse(req.Address, "0000")
	})
	a := &pairingAgent{t: tr}

	pin, derr := a.RequestPinCode(devicePath(testAdapterPath, wiimote))
	if nil != derr {
		t.Fatalf("RequestPinCode() error = %v", derr)
	}
	if pin != "0000" {
		t.Errorf("RequestPinCode() = %q, want %q", pin, "0000")
	}
}

func TestAgentConfirmation(t *testing.T) {
	for _, accept := range []bool{true, false} {
		var tr *Transport
		tr = newTestTransport(func(ev W.Event) {
			req := ev.(W.UserConfirmationRequest)
			if req.Value != 123456 {
				t.Errorf("passkey = %d, want 123456", req.Value)
			}
			go tr.ConfirmUser(req.Address, accept)
		})
		a := &pairingAgent{t: tr}

		derr := a.RequestConfirmation(devicePath(testAdapterPath, wiimote), 123456)
		if accept != (nil == derr) {
			t.Errorf("RequestConfirmation() with accept=%v returned %v", accept, derr)
		}
	}
}

func TestAgentRejectsForeignDevice(t *testing.T) {
	tr := newTestTransport(func(W.Event) { t.Error("request posted for a foreign device") })
	a := &pairingAgent{t: tr}
	if _, derr := a.RequestPinCode("/org/bluez/hci1/dev_00_1F_32_AA_BB_CC"); nil == derr {
		t.Error("RequestPinCode() accepted a device of another adapter")
	}
}

func TestAnswerWithoutRequest(t *testing.T) {
	tr := newTestTransport(nil)
	if err := tr.PinCodeResponse(wiimote, "0000"); !errors.Is(err, errNoPending) {
		t.Errorf("PinCodeResponse() = %v, want %v", err, errNoPending)
	}
}

func TestChannelReadAndSend(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_SEQPACKET, 0)
	if nil != err {
		t.Skipf("socketpair: %v", err)
	}
	remote := fds[1]

	events := newEventLog()
	tr := newTestTransport(events.post)
	ch := &channel{cid: 0x41, psm: 0x13, fd: fds[0]}
	tr.channels[ch.cid] = ch
	go tr.read(ch, ch.fd)

	if _, err := unix.Write(remote, []byte{0xA1, 0x30, 0x00, 0x08}); nil != err {
		t.Fatalf("write: %v", err)
	}
	data, ok := events.next(t).(W.ChannelData)
	if !ok || data.CID != 0x41 || string(data.Payload) != string([]byte{0xA1, 0x30, 0x00, 0x08}) {
		t.Fatalf("posted %#v, want the report on cid 0x41", data)
	}

	if err := tr.Send(0x41, []byte{0xA2, 0x11, 0x10}); nil != err {
		t.Fatalf("Send() error = %v", err)
	}
	buf := make([]byte, 16)
	n, err := unix.Read(remote, buf)
	if nil != err || string(buf[:n]) != string([]byte{0xA2, 0x11, 0x10}) {
		t.Fatalf("remote read % X, %v", buf[:n], err)
	}

	unix.Close(remote)
	closed, ok := events.next(t).(W.ChannelClosed)
	if !ok || closed.CID != 0x41 {
		t.Fatalf("posted %#v, want ChannelClosed for cid 0x41", closed)
	}
	if err := tr.Send(0x41, []byte{0xA2}); !errors.Is(err, errClosed) {
		t.Errorf("Send() after close = %v, want %v", err, errClosed)
	}
}

func TestSendWhileReaderCloses(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_SEQPACKET, 0)
	if nil != err {
		t.Skipf("socketpair: %v", err)
	}

	events := newEventLog()
	tr := newTestTransport(events.post)
	ch := &channel{cid: 0x43, psm: 0x13, fd: fds[0]}
	tr.channels[ch.cid] = ch
	go tr.read(ch, ch.fd)

	done := make(chan error, 1)
	go func() {
		for {
			err := tr.Send(0x43, []byte{0xA2, 0x11, 0x10})
			if errors.Is(err, unix.EBADF) || errors.Is(err, errClosed) {
				done <- err
				return
			}
		}
	}()

	unix.Close(fds[1])
	if closed, ok := events.next(t).(W.ChannelClosed); !ok || closed.CID != 0x43 {
		t.Fatalf("posted %#v, want ChannelClosed for cid 0x43", closed)
	}
	select {
	case err := <-done:
		if !errors.Is(err, errClosed) {
			t.Errorf("Send() = %v, want %v", err, errClosed)
		}
	case <-time.After(time.Second):
		t.Fatal("Send() kept succeeding after the channel closed")
	}

	tr.mu.Lock()
	fd := ch.fd
	tr.mu.Unlock()
	if fd != -1 {
		t.Errorf("fd = %d after close, want -1", fd)
	}
}

func TestCloseChannelQuiet(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_SEQPACKET, 0)
	if nil != err {
		t.Skipf("socketpair: %v", err)
	}
	defer unix.Close(fds[1])

	events := newEventLog()
	tr := newTestTransport(events.post)
	ch := &channel{cid: 0x42, psm: 0x11, fd: fds[0]}
	tr.channels[ch.cid] = ch
	done := make(chan struct{})
	go func() {
		tr.read(ch, ch.fd)
		close(done)
	}()

	if err := tr.CloseChannel(0x42); nil != err {
		t.Fatalf("CloseChannel() error = %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reader did not stop")
	}
	if len(events.events) != 0 {
		t.Errorf("posted %v after a host initiated close", events.events)
	}
}

func TestCloseChannelWhileConnecting(t *testing.T) {
	tr := newTestTransport(nil)
	tr.channels[0x43] = &channel{cid: 0x43, fd: -1}
	if err := tr.CloseChannel(0x43); nil != err {
		t.Fatalf("CloseChannel() error = %v", err)
	}
	if _, ok := tr.channels[0x43]; ok {
		t.Error("pending channel kept after close")
	}
	if err := tr.CloseChannel(0x43); !errors.Is(err, errClosed) {
		t.Errorf("second CloseChannel() = %v, want %v", err, errClosed)
	}
}

func TestBufferPool(t *testing.T) {
	buf := allocBuffer()
	if len(*buf) != bufferSize {
		t.Fatalf("len = %d, want %d", len(*buf), bufferSize)
	}
	*buf = (*buf)[:3]
	freeBuffer(buf)
	if again := allocBuffer(); len(*again) != bufferSize {
		t.Errorf("reused buffer len = %d, want %d", len(*again), bufferSize)
	}
}
