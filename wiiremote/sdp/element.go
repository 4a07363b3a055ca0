// Package sdp reads and writes Service Discovery Protocol data elements and
// runs ServiceSearchAttribute transactions against a remote SDP server.
package sdp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Kind uint8

const (
	Nil         Kind = 0
	Uint        Kind = 1
	Int         Kind = 2
	UUID        Kind = 3
	Text        Kind = 4
	Bool        Kind = 5
	Sequence    Kind = 6
	Alternative Kind = 7
	URL         Kind = 8
)

func (k Kind) String() string {
	switch k {
	case Nil:
		return "nil"
	case Uint:
		return "uint"
	case Int:
		return "int"
	case UUID:
		return "uuid"
	case Text:
		return "text"
	case Bool:
		return "bool"
	case Sequence:
		return "seq"
	case Alternative:
		return "alt"
	case URL:
		return "url"
	default:
		return "UNKNOWN"
	}
}

// maxDepth bounds sequence nesting; real records never go past four levels.
const maxDepth = 8

var (
	ErrTruncated = errors.New("sdp: truncated data element")
	ErrBadSize   = errors.New("sdp: invalid size descriptor")
	ErrBadType   = errors.New("sdp: unknown data element type")
	ErrTooDeep   = errors.New("sdp: data element nesting too deep")
)

// BaseUUID expands 16 and 32 bit UUIDs to 128 bits.
var BaseUUID = uuid.MustParse("00000000-0000-1000-8000-00805F9B34FB")

// ShortUUID returns the 128-bit form of a 16 or 32 bit UUID.
func ShortUUID(v uint32) uuid.UUID {
	u := BaseUUID
	binary.BigEndian.PutUint32(u[0:4], v)
	return u
}

// Element is one decoded data element. Raw always holds the complete
// encoding including the header, so an element can be forwarded verbatim.
type Element struct {
	Kind  Kind
	Uint  uint64
	Int   int64
	UUID  uuid.UUID
	Data  []byte
	Items []Element
	Raw   []byte
}

// Decode reads one element from b and returns the unread remainder.
func Decode(b []byte) (Element, []byte, error) {
	return decode(b, 0)
}

func decode(b []byte, depth int) (Element, []byte, error) {
	if depth > maxDepth {
		return Element{}, nil, ErrTooDeep
	}
	if len(b) < 1 {
		return Element{}, nil, ErrTruncated
	}

	kind := Kind(b[0] >> 3)
	sizeIndex := b[0] & 0x07

	hdr, size := 1, 0
	switch sizeIndex {
	case 0, 1, 2, 3, 4:
		size = 1 << sizeIndex
		if kind == Nil {
			if sizeIndex != 0 {
				return Element{}, nil, ErrBadSize
			}
			size = 0
		}
	case 5:
		if len(b) < 2 {
			return Element{}, nil, ErrTruncated
		}
		hdr, size = 2, int(b[1])
	case 6:
		if len(b) < 3 {
			return Element{}, nil, ErrTruncated
		}
		hdr, size = 3, int(binary.BigEndian.Uint16(b[1:3]))
	case 7:
		if len(b) < 5 {
			return Element{}, nil, ErrTruncated
		}
		n := binary.BigEndian.Uint32(b[1:5])
		if uint64(n) > uint64(len(b)-5) {
			return Element{}, nil, ErrTruncated
		}
		hdr, size = 5, int(n)
	}
	if len(b)-hdr < size {
		return Element{}, nil, ErrTruncated
	}

	body := b[hdr : hdr+size]
	e := Element{Kind: kind, Raw: b[:hdr+size]}
	variable := sizeIndex >= 5

	switch kind {
	case Nil:
	case Uint, Int:
		if variable || size > 8 {
			return Element{}, nil, ErrBadSize
		}
		e.Uint = readUint(body)
		e.Int = signExtend(e.Uint, size)
	case Bool:
		if size != 1 {
			return Element{}, nil, ErrBadSize
		}
		e.Uint = uint64(body[0])
	case UUID:
		switch size {
		case 2, 4:
			e.Uint = readUint(body)
			e.UUID = ShortUUID(uint32(e.Uint))
		case 16:
			copy(e.UUID[:], body)
		default:
			return Element{}, nil, ErrBadSize
		}
	case Text, URL:
		if !variable {
			return Element{}, nil, ErrBadSize
		}
		e.Data = body
	case Sequence, Alternative:
		if !variable {
			return Element{}, nil, ErrBadSize
		}
		rest := body
		for len(rest) > 0 {
			var item Element
			var err error
			item, rest, err = decode(rest, depth+1)
			if nil != err {
				return Element{}, nil, err
			}
			e.Items = append(e.Items, item)
		}
	default:
		return Element{}, nil, fmt.Errorf("%w: %d", ErrBadType, kind)
	}

	return e, b[hdr+size:], nil
}

func readUint(b []byte) uint64 {
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}

func signExtend(v uint64, size int) int64 {
	shift := uint(64 - 8*size)
	return int64(v<<shift) >> shift
}

// Uint16 returns the value of an unsigned element that fits in 16 bits.
func (e Element) Uint16() (uint16, bool) {
	if e.Kind != Uint || e.Uint > 0xFFFF {
		return 0, false
	}
	return uint16(e.Uint), true
}

// Is reports whether e is a UUID equal to the given short UUID, whatever
// width it was encoded with.
func (e Element) Is(short uint32) bool {
	return e.Kind == UUID && e.UUID == ShortUUID(short)
}

func (e Element) String() string {
	switch e.Kind {
	case Nil:
		return "nil"
	case Uint, Bool:
		return fmt.Sprintf("%s(0x%X)", e.Kind, e.Uint)
	case Int:
		return fmt.Sprintf("int(%d)", e.Int)
	case UUID:
		if e.Uint != 0 {
			return fmt.Sprintf("uuid(0x%04X)", e.Uint)
		}
		return "uuid(" + e.UUID.String() + ")"
	case Text, URL:
		return fmt.Sprintf("%s(%d bytes)", e.Kind, len(e.Data))
	case Sequence, Alternative:
		items := make([]string, len(e.Items))
		for i := range e.Items {
			items[i] = e.Items[i].String()
		}
		return e.Kind.String() + "[" + strings.Join(items, ", ") + "]"
	default:
		return "UNKNOWN"
	}
}
