package sdp

import (
	"errors"
	"fmt"
)

// Attribute ids
const (
	ServiceRecordHandle               uint16 = 0x0000
	ServiceClassIDList                uint16 = 0x0001
	ProtocolDescriptorList            uint16 = 0x0004
	AdditionalProtocolDescriptorLists uint16 = 0x000D
	ServiceName                       uint16 = 0x0100
	HIDDescriptorList                 uint16 = 0x0206
)

// Assigned numbers
const (
	ProtocolL2CAP   uint16 = 0x0100
	ProtocolHIDP    uint16 = 0x0011
	ServiceClassHID uint16 = 0x1124

	// PSM of the SDP server itself
	PSM uint16 = 0x0001
)

var ErrMalformedRecord = errors.New("sdp: malformed attribute list")

// Attribute is an attribute id paired with its still-encoded value.
type Attribute struct {
	ID    uint16
	Value []byte
}

// Records decodes the AttributeLists of a ServiceSearchAttributeResponse
// into one attribute list per matching service record.
func Records(b []byte) ([][]Attribute, error) {
	lists, rest, err := Decode(b)
	if nil != err {
		return nil, err
	}
	if len(rest) != 0 || lists.Kind != Sequence {
		return nil, ErrMalformedRecord
	}

	records := make([][]Attribute, 0, len(lists.Items))
	for _, list := range lists.Items {
		attrs, err := Attributes(list)
		if nil != err {
			return nil, err
		}
		records = append(records, attrs)
	}
	return records, nil
}

// Attributes splits one record's id/value sequence.
func Attributes(list Element) ([]Attribute, error) {
	if list.Kind != Sequence || len(list.Items)%2 != 0 {
		return nil, ErrMalformedRecord
	}
	attrs := make([]Attribute, 0, len(list.Items)/2)
	for i := 0; i < len(list.Items); i += 2 {
		id, ok := list.Items[i].Uint16()
		if !ok {
			return nil, fmt.Errorf("%w: attribute id %s", ErrMalformedRecord, list.Items[i])
		}
		attrs = append(attrs, Attribute{ID: id, Value: list.Items[i+1].Raw})
	}
	return attrs, nil
}

// ControlPSM finds the L2CAP PSM in a ProtocolDescriptorList value.
func ControlPSM(value []byte) (uint16, bool) {
	list, _, err := Decode(value)
	if nil != err || list.Kind != Sequence {
		return 0, false
	}
	return l2capPSM(list)
}

// InterruptPSM finds the L2CAP PSM in an AdditionalProtocolDescriptorLists
// value, which wraps protocol descriptor lists one level deeper.
func InterruptPSM(value []byte) (uint16, bool) {
	lists, _, err := Decode(value)
	if nil != err || lists.Kind != Sequence {
		return 0, false
	}
	for _, list := range lists.Items {
		if list.Kind != Sequence {
			continue
		}
		if psm, ok := l2capPSM(list); ok {
			return psm, true
		}
	}
	return 0, false
}

// l2capPSM scans protocol entries of the form seq[uuid, params...] and
// returns the parameter that follows the L2CAP uuid.
func l2capPSM(list Element) (uint16, bool) {
	for _, protocol := range list.Items {
		if protocol.Kind != Sequence || len(protocol.Items) == 0 {
			continue
		}
		if !protocol.Items[0].Is(uint32(ProtocolL2CAP)) {
			continue
		}
		if len(protocol.Items) < 2 {
			continue
		}
		if psm, ok := protocol.Items[1].Uint16(); ok {
			return psm, true
		}
	}
	return 0, false
}

// HIDDescriptor returns the report descriptor bytes of a HIDDescriptorList
// value: seq[seq[uint8 type, text descriptor], ...].
func HIDDescriptor(value []byte) ([]byte, bool) {
	lists, _, err := Decode(value)
	if nil != err || lists.Kind != Sequence {
		return nil, false
	}
	for _, list := range lists.Items {
		if list.Kind != Sequence {
			continue
		}
		for _, item := range list.Items {
			if item.Kind == Text {
				return item.Data, true
			}
		}
	}
	return nil, false
}

// TextValue decodes a plain text attribute such as ServiceName.
func TextValue(value []byte) (string, bool) {
	e, _, err := Decode(value)
	if nil != err || e.Kind != Text {
		return "", false
	}
	return string(e.Data), true
}
