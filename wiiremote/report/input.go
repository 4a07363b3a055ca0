package report

import (
	"errors"
	"fmt"
	"strings"
)

const (
	InputReportHeader byte = 0xA1
	// header + id + 2 button bytes
	CoreButtonsLength int = 4
)

var (
	ErrEmptyData       = errors.New("receive empty data")
	ErrMalformedData   = errors.New("receive malformed data")
	ErrBadLengthData   = errors.New("receive bad length data")
	ErrUnsupportedData = errors.New("receive unsupported input report id")
)

// InputReport represents a DATA/Input transaction sent from the remote to the host.
type InputReport []byte

// Validate accepts anything that carries the input header.
func (i InputReport) Validate() error {
	if len(i) < 1 {
		return ErrEmptyData
	}
	if i[0] != InputReportHeader {
		return ErrMalformedData
	}
	return nil
}

// Id returns the sub-report id, or 0 when the report holds only the header.
func (i InputReport) Id() InputReportId {
	if len(i) < 2 {
		return 0
	}
	return InputReportId(i[1])
}

// CoreButtons returns the button bitmask carried by a 0x30 report, most
// significant byte first.
func (i InputReport) CoreButtons() (uint16, error) {
	if err := i.Validate(); nil != err {
		return 0, err
	}
	if i.Id() != CoreButtonsId {
		return 0, ErrUnsupportedData
	}
	if len(i) < CoreButtonsLength {
		return 0, ErrBadLengthData
	}
	return uint16(i[2])<<8 | uint16(i[3]), nil
}

func (i InputReport) String() string {
	var builder strings.Builder
	if len(i) > 1 {
		builder.WriteString(fmt.Sprintf("--- %s Msg ---", i.Id().String()))
	}
	builder.WriteString("\nPayload:    ")
	for _, p := range i {
		builder.WriteString(fmt.Sprintf("0x%02X ", p))
	}
	return builder.String()
}
