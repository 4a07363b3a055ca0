package sdp

import "encoding/binary"

// Constructors below build elements with Raw filled in, ready to be sent.

func Uint8(v uint8) Element {
	return Element{Kind: Uint, Uint: uint64(v), Raw: []byte{byte(Uint)<<3 | 0, v}}
}

func Uint16(v uint16) Element {
	raw := []byte{byte(Uint)<<3 | 1, 0, 0}
	binary.BigEndian.PutUint16(raw[1:], v)
	return Element{Kind: Uint, Uint: uint64(v), Raw: raw}
}

func Uint32(v uint32) Element {
	raw := []byte{byte(Uint)<<3 | 2, 0, 0, 0, 0}
	binary.BigEndian.PutUint32(raw[1:], v)
	return Element{Kind: Uint, Uint: uint64(v), Raw: raw}
}

func UUID16(v uint16) Element {
	raw := []byte{byte(UUID)<<3 | 1, 0, 0}
	binary.BigEndian.PutUint16(raw[1:], v)
	return Element{Kind: UUID, Uint: uint64(v), UUID: ShortUUID(uint32(v)), Raw: raw}
}

func TextOf(data []byte) Element {
	return Element{Kind: Text, Data: data, Raw: append(variableHeader(Text, len(data)), data...)}
}

func SequenceOf(items ...Element) Element {
	var body []byte
	for _, item := range items {
		body = append(body, item.Raw...)
	}
	return Element{Kind: Sequence, Items: items, Raw: append(variableHeader(Sequence, len(body)), body...)}
}

func variableHeader(kind Kind, n int) []byte {
	switch {
	case n <= 0xFF:
		return []byte{byte(kind)<<3 | 5, byte(n)}
	case n <= 0xFFFF:
		return []byte{byte(kind)<<3 | 6, byte(n >> 8), byte(n)}
	default:
		return []byte{byte(kind)<<3 | 7, byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	}
}
