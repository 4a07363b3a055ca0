package wiiremote

// Event is anything the transport (or the host's own timers) delivers to
// Host.Dispatch. Each concrete type is handled by exactly one handler.
type Event interface {
	event()
}

type Status uint8

const (
	StatusSuccess     Status = 0x00
	StatusPageTimeout Status = 0x04
	StatusRefused     Status = 0x0D
	StatusFailed      Status = 0xFF
)

func (s Status) Ok() bool {
	return s == StatusSuccess
}

type PowerStateChanged struct {
	On bool
}

type InquiryResult struct {
	Address                Address
	PageScanRepetitionMode uint8
	ClockOffset            uint16
	ClassOfDevice          uint32
	RSSI                   int8
	HasRSSI                bool
	Name                   string
	HasName                bool
}

type InquiryComplete struct{}

type NameRequestComplete struct {
	Address Address
	Status  Status
	Name    string
}

type PinCodeRequest struct {
	Address Address
}

type UserConfirmationRequest struct {
	Address Address
	Value   uint32
}

// DirectoryAttributeChunk carries Data for bytes [Offset, Offset+len(Data))
// of an attribute value that is Total bytes long.
type DirectoryAttributeChunk struct {
	AttributeID uint16
	Offset      int
	Total       int
	Data        []byte
}

type DirectoryQueryComplete struct {
	Status Status
}

type ChannelOpened struct {
	CID    ChannelID
	PSM    uint16
	Status Status
}

type ChannelData struct {
	CID     ChannelID
	Payload []byte
}

type ChannelClosed struct {
	CID ChannelID
}

type LinkLost struct {
	Address Address
}

// NegotiationTimeout is posted by the host itself when a negotiation stage
// outlives its deadline.
type NegotiationTimeout struct {
	Generation uint64
}

func (PowerStateChanged) event()       {}
func (InquiryResult) event()           {}
func (InquiryComplete) event()         {}
func (NameRequestComplete) event()     {}
func (PinCodeRequest) event()          {}
func (UserConfirmationRequest) event() {}
func (DirectoryAttributeChunk) event() {}
func (DirectoryQueryComplete) event()  {}
func (ChannelOpened) event()           {}
func (ChannelData) event()             {}
func (ChannelClosed) event()           {}
func (LinkLost) event()                {}
func (NegotiationTimeout) event()      {}
