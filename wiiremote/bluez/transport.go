package bluez

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	W "dio.wtf/wiiremote/wiiremote"
	"dio.wtf/wiiremote/wiiremote/log"
	"dio.wtf/wiiremote/wiiremote/sdp"
	"github.com/godbus/dbus/v5"
	"github.com/muka/go-bluetooth/bluez/profile/adapter"
	"github.com/muka/go-bluetooth/bluez/profile/device"
	"golang.org/x/sys/unix"
)

const (
	firstChannelID W.ChannelID = 0x0040
	// attribute values are handed to the core in pieces of this size, the
	// way a streaming SDP client would deliver them
	attributeChunkSize = 64
)

var (
	errAdapterNotFound = errors.New("bluez: adapter not found")
	errClosed          = errors.New("bluez: channel closed")
	errNoPending       = errors.New("bluez: no pending agent request")
)

type channel struct {
	cid W.ChannelID
	psm uint16
	// -1 until connected
	fd     int
	closed bool
}

// Transport carries out the host's commands through BlueZ and raw L2CAP
// sockets, posting the results back as events.
type Transport struct {
	conn        *dbus.Conn
	adapter     *adapter.Adapter1
	adapterPath dbus.ObjectPath
	post        func(W.Event)
	signals     chan *dbus.Signal
	done        chan struct{}

	inquiring atomic.Bool

	mu       sync.Mutex
	channels map[W.ChannelID]*channel
	nextCID  W.ChannelID
	replies  map[W.Address]chan agentReply
}

func NewTransport(adapterID string) (*Transport, error) {
	objects, err := getManagedObjects()
	if nil != err {
		return nil, fmt.Errorf("bluez: managed objects: %w", err)
	}
	path := dbus.ObjectPath("/org/bluez/" + adapterID)
	if _, ok := objects[path][adapter.Adapter1Interface]; !ok {
		return nil, fmt.Errorf("%w: %s", errAdapterNotFound, adapterID)
	}

	a, err := adapter.NewAdapter1(path)
	if nil != err {
		return nil, err
	}
	conn, err := dbus.SystemBus()
	if nil != err {
		return nil, fmt.Errorf("bluez: connect to system bus: %w", err)
	}
	log.DebugF("Using adapter under object path: %s", path)
	return &Transport{
		conn:        conn,
		adapter:     a,
		adapterPath: path,
		signals:     make(chan *dbus.Signal, 16),
		done:        make(chan struct{}),
		channels:    make(map[W.ChannelID]*channel),
		nextCID:     firstChannelID,
		replies:     make(map[W.Address]chan agentReply),
	}, nil
}

// Start registers the pairing agent, begins watching BlueZ and powers the
// adapter. Every event is delivered through post.
func (t *Transport) Start(post func(W.Event)) error {
	t.post = post
	if err := t.registerAgent(); nil != err {
		return err
	}

	for _, match := range []string{
		"type='signal',interface='" + propsIface + "',member='PropertiesChanged',path_namespace='" + string(t.adapterPath) + "'",
		"type='signal',interface='" + objectManagerIface + "',member='InterfacesAdded'",
	} {
		if call := t.conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, match); nil != call.Err {
			return fmt.Errorf("bluez: add match: %w", call.Err)
		}
	}
	t.conn.Signal(t.signals)
	go t.watch()

	powered, err := t.adapter.GetPowered()
	if nil != err {
		return fmt.Errorf("bluez: read power state: %w", err)
	}
	if powered {
		t.post(W.PowerStateChanged{On: true})
		return nil
	}
	log.Info("Powering on adapter...")
	if err := t.adapter.SetPowered(true); nil != err {
		return fmt.Errorf("bluez: power on: %w", err)
	}
	return nil
}

func (t *Transport) Close() error {
	close(t.done)
	t.conn.RemoveSignal(t.signals)
	if t.inquiring.CompareAndSwap(true, false) {
		t.adapter.StopDiscovery()
	}

	t.mu.Lock()
	for cid := range t.channels {
		t.closeLocked(cid)
	}
	t.mu.Unlock()
	return t.unregisterAgent()
}

func (t *Transport) watch() {
	for {
		select {
		case <-t.done:
			return
		case sig, ok := <-t.signals:
			if !ok {
				return
			}
			t.handleSignal(sig)
		}
	}
}

func (t *Transport) handleSignal(sig *dbus.Signal) {
	switch sig.Name {
	case ifacesAddedSignal:
		if len(sig.Body) < 2 {
			return
		}
		path, _ := sig.Body[0].(dbus.ObjectPath)
		ifaces, _ := sig.Body[1].(map[string]map[string]dbus.Variant)
		if props, ok := ifaces[device.Device1Interface]; ok {
			t.deviceSeen(path, props)
		}

	case propsChangedSignal:
		if len(sig.Body) < 2 {
			return
		}
		iface, _ := sig.Body[0].(string)
		changed, _ := sig.Body[1].(map[string]dbus.Variant)
		switch iface {
		case adapter.Adapter1Interface:
			if v, ok := changed["Powered"]; ok && sig.Path == t.adapterPath {
				on, _ := v.Value().(bool)
				t.post(W.PowerStateChanged{On: on})
			}
		case device.Device1Interface:
			t.deviceChanged(sig.Path, changed)
		}
	}
}

func (t *Transport) deviceChanged(path dbus.ObjectPath, changed map[string]dbus.Variant) {
	if v, ok := changed["Connected"]; ok {
		if connected, _ := v.Value().(bool); !connected {
			if addr, ok := addressFromPath(t.adapterPath, path); ok {
				t.post(W.LinkLost{Address: addr})
			}
		}
	}
	if _, ok := changed["RSSI"]; !ok || !t.inquiring.Load() {
		return
	}
	var props map[string]dbus.Variant
	obj := t.conn.Object(busName, path)
	if err := obj.Call(propsIface+".GetAll", 0, device.Device1Interface).Store(&props); nil != err {
		log.DebugF("read properties of %s: %v", path, err)
		return
	}
	t.deviceSeen(path, props)
}

func (t *Transport) deviceSeen(path dbus.ObjectPath, props map[string]dbus.Variant) {
	if !t.inquiring.Load() {
		return
	}
	if _, ok := addressFromPath(t.adapterPath, path); !ok {
		return
	}
	ev, err := inquiryResult(props)
	if nil != err {
		log.DebugF("ignore device %s: %v", path, err)
		return
	}
	t.post(ev)
}

func (t *Transport) StartInquiry(duration time.Duration) error {
	if err := t.adapter.SetDiscoveryFilter(map[string]interface{}{"Transport": "bredr"}); nil != err {
		log.WarnF("set discovery filter: %v", err)
	}
	if err := t.adapter.StartDiscovery(); nil != err {
		return fmt.Errorf("bluez: start discovery: %w", err)
	}
	t.inquiring.Store(true)
	time.AfterFunc(duration, t.finishInquiry)
	return nil
}

func (t *Transport) finishInquiry() {
	if !t.inquiring.CompareAndSwap(true, false) {
		return
	}
	if err := t.adapter.StopDiscovery(); nil != err {
		log.DebugF("stop discovery: %v", err)
	}
	t.post(W.InquiryComplete{})
}

// RequestName reads the name BlueZ resolved during discovery. Page scan
// mode and clock offset are managed by the kernel.
func (t *Transport) RequestName(addr W.Address, _ uint8, _ uint16) error {
	dev, err := device.NewDevice1(devicePath(t.adapterPath, addr))
	if nil != err {
		return fmt.Errorf("bluez: device %s: %w", addr, err)
	}
	go func() {
		ev := W.NameRequestComplete{Address: addr, Status: W.StatusPageTimeout}
		if name, err := dev.GetName(); nil == err && name != "" {
			ev.Status, ev.Name = W.StatusSuccess, name
		}
		t.post(ev)
	}()
	return nil
}

func (t *Transport) QueryDirectory(addr W.Address, serviceClass uint16) error {
	go t.queryDirectory(addr, serviceClass)
	return nil
}

func (t *Transport) queryDirectory(addr W.Address, serviceClass uint16) {
	status := W.StatusFailed
	defer func() { t.post(W.DirectoryQueryComplete{Status: status}) }()

	fd, err := dialL2CAP(addr, sdp.PSM)
	if nil != err {
		log.ErrorF("SDP connect to %s: %v", addr, err)
		return
	}
	defer unix.Close(fd)

	records, err := sdp.NewClient(seqpacket(fd), bufferSize).SearchAttributes(serviceClass)
	if nil != err {
		log.ErrorF("SDP query of %s: %v", addr, err)
		return
	}
	for _, record := range records {
		for _, attr := range record {
			t.postAttribute(attr)
		}
	}
	status = W.StatusSuccess
}

func (t *Transport) postAttribute(attr sdp.Attribute) {
	total := len(attr.Value)
	if total == 0 {
		t.post(W.DirectoryAttributeChunk{AttributeID: attr.ID})
		return
	}
	for off := 0; off < total; off += attributeChunkSize {
		end := off + attributeChunkSize
		if end > total {
			end = total
		}
		t.post(W.DirectoryAttributeChunk{
			AttributeID: attr.ID,
			Offset:      off,
			Total:       total,
			Data:        attr.Value[off:end],
		})
	}
}

// OpenChannel connects in the background and reports with ChannelOpened.
// The socket MTU is left to the kernel default, which exceeds mtu.
func (t *Transport) OpenChannel(addr W.Address, psm uint16, mtu uint16) (W.ChannelID, error) {
	t.mu.Lock()
	t.nextCID++
	ch := &channel{cid: t.nextCID, psm: psm, fd: -1}
	t.channels[ch.cid] = ch
	t.mu.Unlock()

	log.DebugF("open psm 0x%04x to %s as cid 0x%04x, mtu %d", psm, addr, uint16(ch.cid), mtu)
	go t.connect(ch, addr)
	return ch.cid, nil
}

func (t *Transport) connect(ch *channel, addr W.Address) {
	fd, err := dialL2CAP(addr, ch.psm)

	t.mu.Lock()
	if ch.closed {
		t.mu.Unlock()
		if nil == err {
			unix.Close(fd)
		}
		return
	}
	if nil != err {
		delete(t.channels, ch.cid)
		t.mu.Unlock()
		log.ErrorF("connect psm 0x%04x: %v", ch.psm, err)
		t.post(W.ChannelOpened{CID: ch.cid, PSM: ch.psm, Status: connectStatus(err)})
		return
	}
	ch.fd = fd
	t.mu.Unlock()

	t.post(W.ChannelOpened{CID: ch.cid, PSM: ch.psm, Status: W.StatusSuccess})
	t.read(ch, fd)
}

func (t *Transport) read(ch *channel, fd int) {
	buf := allocBuffer()
	defer freeBuffer(buf)

	conn := seqpacket(fd)
	for {
		n, err := conn.Read(*buf)
		if nil != err {
			log.DebugF("read cid 0x%04x: %v", uint16(ch.cid), err)
			break
		}
		payload := make([]byte, n)
		copy(payload, (*buf)[:n])
		t.post(W.ChannelData{CID: ch.cid, Payload: payload})
	}

	t.mu.Lock()
	closedByHost := ch.closed
	delete(t.channels, ch.cid)
	ch.closed = true
	ch.fd = -1
	unix.Close(fd)
	t.mu.Unlock()

	if !closedByHost {
		t.post(W.ChannelClosed{CID: ch.cid})
	}
}

func (t *Transport) CloseChannel(cid W.ChannelID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeLocked(cid)
}

func (t *Transport) closeLocked(cid W.ChannelID) error {
	ch, ok := t.channels[cid]
	if !ok || ch.closed {
		return errClosed
	}
	ch.closed = true
	if ch.fd < 0 {
		// connect goroutine cleans up
		delete(t.channels, cid)
		return nil
	}
	// wakes the reader, which closes the socket
	return unix.Shutdown(ch.fd, unix.SHUT_RDWR)
}

// Send writes one packet. The lock is held across the write so the reader
// cannot close the socket underneath it.
func (t *Transport) Send(cid W.ChannelID, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch, ok := t.channels[cid]
	if !ok || ch.closed || ch.fd < 0 {
		return fmt.Errorf("%w: cid 0x%04x", errClosed, uint16(cid))
	}
	_, err := seqpacket(ch.fd).Write(data)
	return err
}
