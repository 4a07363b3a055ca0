package bluez

import (
	"strings"

	W "dio.wtf/wiiremote/wiiremote"
	"github.com/godbus/dbus/v5"
	"github.com/muka/go-bluetooth/bluez"
	"github.com/muka/go-bluetooth/bluez/profile/device"
)

const (
	busName = "org.bluez"

	propsIface         = "org.freedesktop.DBus.Properties"
	propsChangedSignal = propsIface + ".PropertiesChanged"
	objectManagerIface = "org.freedesktop.DBus.ObjectManager"
	ifacesAddedSignal  = objectManagerIface + ".InterfacesAdded"
)

// devicePath converts 00:1F:32:AA:BB:CC to
// <adapter>/dev_00_1F_32_AA_BB_CC.
func devicePath(adapterPath dbus.ObjectPath, addr W.Address) dbus.ObjectPath {
	escaped := strings.ReplaceAll(addr.String(), ":", "_")
	return dbus.ObjectPath(string(adapterPath) + "/dev_" + escaped)
}

// addressFromPath extracts the address from a device object path below
// adapterPath.
func addressFromPath(adapterPath, path dbus.ObjectPath) (W.Address, bool) {
	prefix := string(adapterPath) + "/dev_"
	s := string(path)
	if !strings.HasPrefix(s, prefix) {
		return W.Address{}, false
	}
	addr, err := W.ParseAddress(strings.ReplaceAll(s[len(prefix):], "_", ":"))
	return addr, nil == err
}

// inquiryResult builds the discovery event for a device object's
// properties.
func inquiryResult(props map[string]dbus.Variant) (W.InquiryResult, error) {
	var ev W.InquiryResult
	prop := new(device.Device1Properties)
	prop, err := prop.FromDBusMap(props)
	if nil != err {
		return ev, err
	}
	addr, err := W.ParseAddress(prop.Address)
	if nil != err {
		return ev, err
	}

	ev.Address = addr
	ev.ClassOfDevice = prop.Class
	if _, ok := props["RSSI"]; ok {
		ev.RSSI = int8(prop.RSSI)
		ev.HasRSSI = true
	}
	if prop.Name != "" {
		ev.Name = prop.Name
		ev.HasName = true
	}
	return ev, nil
}

func getManagedObjects() (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, error) {
	om, err := bluez.GetObjectManager()
	if nil != err {
		return nil, err
	}
	objects, err := om.GetManagedObjects()
	if nil != err {
		return nil, err
	}
	return objects, nil
}
