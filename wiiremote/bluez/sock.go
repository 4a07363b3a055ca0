package bluez

import (
	"errors"
	"fmt"

	W "dio.wtf/wiiremote/wiiremote"
	"golang.org/x/sys/unix"
)

// dialL2CAP opens a SEQPACKET channel to psm on addr. It blocks until the
// remote answers or the kernel gives up paging it.
func dialL2CAP(addr W.Address, psm uint16) (fd int, err error) {
	fd, err = unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_SEQPACKET, unix.BTPROTO_L2CAP)
	if nil != err {
		err = fmt.Errorf("unix.Socket %w", err)
		return
	}
	if err = unix.Connect(fd, sockaddr(addr, psm)); nil != err {
		unix.Close(fd)
		err = fmt.Errorf("unix.Connect psm 0x%04x %w", psm, err)
		return -1, err
	}
	return
}

// sockaddr keeps addr in display order; x/sys reverses it into the kernel's
// little endian bdaddr.
func sockaddr(addr W.Address, psm uint16) *unix.SockaddrL2 {
	return &unix.SockaddrL2{
		PSM:      psm,
		Addr:     addr,
		AddrType: unix.BDADDR_BREDR,
	}
}

// connectStatus maps a dial error to the status carried by ChannelOpened.
func connectStatus(err error) W.Status {
	switch {
	case nil == err:
		return W.StatusSuccess
	case errors.Is(err, unix.ECONNREFUSED), errors.Is(err, unix.EACCES):
		return W.StatusRefused
	case errors.Is(err, unix.EHOSTDOWN), errors.Is(err, unix.ETIMEDOUT), errors.Is(err, unix.EHOSTUNREACH):
		return W.StatusPageTimeout
	default:
		return W.StatusFailed
	}
}

// seqpacket adapts a connected socket to io.ReadWriter, one packet per call.
type seqpacket int

func (s seqpacket) Read(b []byte) (int, error) {
	for {
		n, err := unix.Read(int(s), b)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if nil == err && n == 0 {
			return 0, errClosed
		}
		return n, err
	}
}

func (s seqpacket) Write(b []byte) (int, error) {
	return unix.Write(int(s), b)
}
