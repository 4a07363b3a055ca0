package wiiremote

import (
	"errors"
	"fmt"
	"net"
)

var errInvalidMAC = errors.New("bluetooth: Bad MAC address")

// Address is a BD_ADDR in display order, most significant byte first.
type Address [6]byte

func ParseAddress(s string) (Address, error) {
	var a Address
	hwAddr, err := net.ParseMAC(s)
	if nil != err {
		return a, fmt.Errorf("%w: %s", errInvalidMAC, err)
	}
	if len(hwAddr) != len(a) {
		return a, errInvalidMAC
	}
	copy(a[:], hwAddr)
	return a, nil
}

func (a Address) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", a[0], a[1], a[2], a[3], a[4], a[5])
}
