package wiiremote

import (
	"time"

	"dio.wtf/wiiremote/wiiremote/log"
)

// clockOffsetValid marks the clock offset of a name request as taken from
// an inquiry result.
const clockOffsetValid = 0x8000

// Discovery runs inquiry rounds and resolves the names of what they find.
// When a round settles with at least one device it hands the first one back
// to the caller for negotiation.
type Discovery struct {
	registry     *Registry
	transport    Transport
	duration     time.Duration
	nameAttempts int
}

func NewDiscovery(registry *Registry, transport Transport, duration time.Duration, nameAttempts int) *Discovery {
	return &Discovery{
		registry:     registry,
		transport:    transport,
		duration:     duration,
		nameAttempts: nameAttempts,
	}
}

// StartScan returns the first registered device, or starts a new inquiry
// round when there is none.
func (d *Discovery) StartScan() (Address, bool) {
	if d.registry.Len() > 0 {
		addr := d.registry.At(0).Address
		log.InfoF("Start SDP HID query for remote HID Device %s", addr)
		return addr, true
	}
	log.Info("Starting inquiry scan..")
	if err := d.transport.StartInquiry(d.duration); nil != err {
		log.ErrorF("start inquiry: %v", err)
	}
	return Address{}, false
}

func (d *Discovery) InquiryResult(ev InquiryResult) {
	if d.registry.Index(ev.Address) >= 0 {
		return
	}
	if d.registry.Full() {
		log.DebugF("registry full, ignore %s", ev.Address)
		return
	}
	log.InfoF("Device found: %s with COD: 0x%06x, pageScan %d, clock offset 0x%04x",
		ev.Address, ev.ClassOfDevice, ev.PageScanRepetitionMode, ev.ClockOffset)
	if ev.HasRSSI {
		log.InfoF("%s RSSI: %d dBm", ev.Address, ev.RSSI)
	}

	dev := CandidateDevice{
		Address:                ev.Address,
		PageScanRepetitionMode: ev.PageScanRepetitionMode,
		ClockOffset:            ev.ClockOffset,
		ClassOfDevice:          ev.ClassOfDevice,
		State:                  NameNeeded,
	}
	if ev.HasName {
		dev.Name = ev.Name
		dev.State = NameResolved
		log.InfoF("%s name: '%s'", ev.Address, ev.Name)
	}
	d.registry.Add(dev)
}

// InquiryComplete re-arms name requests that never completed, then carries
// on with name resolution.
func (d *Discovery) InquiryComplete() (Address, bool) {
	for i := 0; i < d.registry.Len(); i++ {
		dev := d.registry.At(i)
		if dev.State == NameRequested {
			dev.State = NameNeeded
		}
	}
	log.InfoF("Inquiry scan complete, %d device(s) found", d.registry.Len())
	return d.ContinueNameResolution()
}

// ContinueNameResolution requests the next missing name, or falls through
// to StartScan when no name is pending.
func (d *Discovery) ContinueNameResolution() (Address, bool) {
	dev := d.nextNameNeeded()
	if nil == dev {
		return d.StartScan()
	}

	dev.State = NameRequested
	dev.NameAttempts++
	log.InfoF("Get remote name of %s...", dev.Address)
	if err := d.transport.RequestName(dev.Address, dev.PageScanRepetitionMode, dev.ClockOffset|clockOffsetValid); nil != err {
		log.ErrorF("request name of %s: %v", dev.Address, err)
		return d.ContinueNameResolution()
	}
	return Address{}, false
}

func (d *Discovery) NameResult(ev NameRequestComplete) (Address, bool) {
	dev, ok := d.registry.Lookup(ev.Address)
	if !ok {
		log.DebugF("name result for unknown device %s", ev.Address)
		return Address{}, false
	}
	if ev.Status.Ok() {
		dev.Name = ev.Name
		dev.State = NameResolved
		log.InfoF("Name: '%s'", ev.Name)
	} else {
		// stays NameRequested; InquiryComplete re-arms it as NameNeeded for the next round
		log.WarnF("Failed to get name of %s: status 0x%02x", ev.Address, uint8(ev.Status))
	}
	return d.ContinueNameResolution()
}

func (d *Discovery) nextNameNeeded() *CandidateDevice {
	for i := 0; i < d.registry.Len(); i++ {
		dev := d.registry.At(i)
		if dev.State != NameNeeded {
			continue
		}
		if d.nameAttempts > 0 && dev.NameAttempts >= d.nameAttempts {
			continue
		}
		return dev
	}
	return nil
}
