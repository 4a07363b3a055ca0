package bluez

import (
	"fmt"
	"reflect"
	"time"

	W "dio.wtf/wiiremote/wiiremote"
	"dio.wtf/wiiremote/wiiremote/log"
	"dio.wtf/wiiremote/wiiremote/sdp"
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/muka/go-bluetooth/bluez/profile/agent"
)

const (
	agentPath       = dbus.ObjectPath("/wiiremote/agent")
	agentIface      = "org.bluez.Agent1"
	agentCapability = "KeyboardDisplay"
	// how long bluetoothd is kept waiting for the host's answer
	agentTimeout = 5 * time.Second
)

var hidServiceUUID = sdp.ShortUUID(uint32(sdp.ServiceClassHID)).String()

var (
	errRejected = &dbus.Error{Name: "org.bluez.Error.Rejected"}
	errCanceled = &dbus.Error{Name: "org.bluez.Error.Canceled"}
)

var dbusSignatureUint32 = dbus.SignatureOfType(reflect.TypeOf(uint32(0))).String()
var dbusSignatureUint16 = dbus.SignatureOfType(reflect.TypeOf(uint16(0))).String()

var agent1IntrospectData = introspect.Interface{
	Name: agentIface,
	Methods: []introspect.Method{
		{Name: "Release"},
		{
			Name: "RequestPinCode",
			Args: []introspect.Arg{
				{Name: "device", Type: "o", Direction: "in"},
				{Name: "pincode", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "DisplayPinCode",
			Args: []introspect.Arg{
				{Name: "device", Type: "o", Direction: "in"},
				{Name: "pincode", Type: "s", Direction: "in"},
			},
		},
		{
			Name: "RequestPasskey",
			Args: []introspect.Arg{
				{Name: "device", Type: "o", Direction: "in"},
				{Name: "passkey", Type: dbusSignatureUint32, Direction: "out"},
			},
		},
		{
			Name: "DisplayPasskey",
			Args: []introspect.Arg{
				{Name: "device", Type: "o", Direction: "in"},
				{Name: "passkey", Type: dbusSignatureUint32, Direction: "in"},
				{Name: "entered", Type: dbusSignatureUint16, Direction: "in"},
			},
		},
		{
			Name: "RequestConfirmation",
			Args: []introspect.Arg{
				{Name: "device", Type: "o", Direction: "in"},
				{Name: "passkey", Type: dbusSignatureUint32, Direction: "in"},
			},
		},
		{
			Name: "RequestAuthorization",
			Args: []introspect.Arg{
				{Name: "device", Type: "o", Direction: "in"},
			},
		},
		{
			Name: "AuthorizeService",
			Args: []introspect.Arg{
				{Name: "device", Type: "o", Direction: "in"},
				{Name: "uuid", Type: "s", Direction: "in"},
			},
		},
		{Name: "Cancel"},
	},
}

var agentIntrospectData = introspect.Node{
	Interfaces: []introspect.Interface{
		introspect.IntrospectData,
		agent1IntrospectData,
	},
}

type agentReply struct {
	pin    string
	accept bool
}

// pairingAgent answers bluetoothd's pairing prompts by asking the host.
type pairingAgent struct {
	introspect.Introspectable
	t *Transport
}

func (t *Transport) registerAgent() error {
	a := &pairingAgent{
		Introspectable: introspect.NewIntrospectable(&agentIntrospectData),
		t:              t,
	}
	if err := t.conn.Export(a, agentPath, agentIface); nil != err {
		return fmt.Errorf("bluez: export agent: %w", err)
	}
	if err := t.conn.Export(a, agentPath, "org.freedesktop.DBus.Introspectable"); nil != err {
		return fmt.Errorf("bluez: export agent introspection: %w", err)
	}

	mgr, err := agent.NewAgentManager1()
	if nil != err {
		return err
	}
	if err := mgr.RegisterAgent(agentPath, agentCapability); nil != err {
		return fmt.Errorf("register bluetooth pairing agent: %w", err)
	}
	if err := mgr.RequestDefaultAgent(agentPath); nil != err {
		log.WarnF("request default agent: %v", err)
	}
	return nil
}

func (t *Transport) unregisterAgent() error {
	mgr, err := agent.NewAgentManager1()
	if nil != err {
		return err
	}
	return mgr.UnregisterAgent(agentPath)
}

// ask posts ev and waits for the host to answer through PinCodeResponse or
// ConfirmUser.
func (t *Transport) ask(addr W.Address, ev W.Event) (agentReply, bool) {
	ch := make(chan agentReply, 1)
	t.mu.Lock()
	t.replies[addr] = ch
	t.mu.Unlock()

	t.post(ev)
	select {
	case r := <-ch:
		return r, true
	case <-time.After(agentTimeout):
		t.mu.Lock()
		if t.replies[addr] == ch {
			delete(t.replies, addr)
		}
		t.mu.Unlock()
		return agentReply{}, false
	}
}

func (t *Transport) answer(addr W.Address, r agentReply) error {
	t.mu.Lock()
	ch, ok := t.replies[addr]
	delete(t.replies, addr)
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w for %s", errNoPending, addr)
	}
	ch <- r
	return nil
}

func (t *Transport) PinCodeResponse(addr W.Address, pin string) error {
	return t.answer(addr, agentReply{pin: pin, accept: true})
}

func (t *Transport) ConfirmUser(addr W.Address, accept bool) error {
	return t.answer(addr, agentReply{accept: accept})
}

func (a *pairingAgent) address(device dbus.ObjectPath) (W.Address, *dbus.Error) {
	addr, ok := addressFromPath(a.t.adapterPath, device)
	if !ok {
		return addr, errRejected
	}
	return addr, nil
}

func (a *pairingAgent) Release() *dbus.Error {
	log.Debug("agent Release")
	return nil
}

func (a *pairingAgent) RequestPinCode(device dbus.ObjectPath) (string, *dbus.Error) {
	addr, derr := a.address(device)
	if nil != derr {
		return "", derr
	}
	r, ok := a.t.ask(addr, W.PinCodeRequest{Address: addr})
	if !ok || !r.accept {
		return "", errCanceled
	}
	return r.pin, nil
}

func (a *pairingAgent) DisplayPinCode(device dbus.ObjectPath, pincode string) *dbus.Error {
	log.InfoF("agent DisplayPinCode %s %s", device, pincode)
	return nil
}

func (a *pairingAgent) RequestPasskey(device dbus.ObjectPath) (uint32, *dbus.Error) {
	log.DebugF("agent RequestPasskey %s", device)
	return 0, errRejected
}

func (a *pairingAgent) DisplayPasskey(device dbus.ObjectPath, passkey uint32, entered uint16) *dbus.Error {
	log.InfoF("agent DisplayPasskey %s %06d entered %d", device, passkey, entered)
	return nil
}

func (a *pairingAgent) RequestConfirmation(device dbus.ObjectPath, passkey uint32) *dbus.Error {
	addr, derr := a.address(device)
	if nil != derr {
		return derr
	}
	r, ok := a.t.ask(addr, W.UserConfirmationRequest{Address: addr, Value: passkey})
	if !ok || !r.accept {
		return errRejected
	}
	return nil
}

func (a *pairingAgent) RequestAuthorization(device dbus.ObjectPath) *dbus.Error {
	log.DebugF("agent RequestAuthorization %s", device)
	return nil
}

func (a *pairingAgent) AuthorizeService(device dbus.ObjectPath, uuid string) *dbus.Error {
	log.DebugF("agent AuthorizeService %s %s", device, uuid)
	if uuid == hidServiceUUID {
		return nil
	}
	return errRejected
}

func (a *pairingAgent) Cancel() *dbus.Error {
	log.Debug("agent Cancel")
	return nil
}
