package report

import (
	"fmt"
	"strings"
)

const OutputReportHeader byte = 0xA2

// OutputReport represents a DATA/Output transaction sent from the host to the remote.
type OutputReport []byte

// PlayerLeds builds the LED command. The pattern occupies the high nibble,
// LED 1 being bit 4; the low bit of the last byte would enable rumble.
func PlayerLeds(pattern uint8) OutputReport {
	return OutputReport{OutputReportHeader, byte(PlayerLedsId), pattern << 4}
}

func (o OutputReport) Id() OutputReportId {
	if len(o) < 2 {
		return 0
	}
	return OutputReportId(o[1])
}

func (o OutputReport) String() string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("--- %s Msg ---", o.Id().String()))
	builder.WriteString("\nPayload:    ")
	for _, p := range o {
		builder.WriteString(fmt.Sprintf("0x%02X ", p))
	}
	return builder.String()
}
