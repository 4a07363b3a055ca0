package report

// https://wiibrew.org/wiki/Wiimote#Bluetooth_Communication

type InputReportId uint8

const (
	StatusId             InputReportId = 0x20
	ReadMemoryDataId     InputReportId = 0x21
	AcknowledgeId        InputReportId = 0x22
	CoreButtonsId        InputReportId = 0x30
	CoreButtonsAccelId   InputReportId = 0x31
	CoreButtonsExt8Id    InputReportId = 0x32
	CoreButtonsAccelIrId InputReportId = 0x33
)

func (i InputReportId) String() string {
	switch i {
	case 0x20:
		return "Status"
	case 0x21:
		return "ReadMemoryData"
	case 0x22:
		return "Acknowledge"
	case 0x30:
		return "CoreButtons"
	case 0x31:
		return "CoreButtonsAccel"
	case 0x32:
		return "CoreButtonsExt8"
	case 0x33:
		return "CoreButtonsAccelIr"
	default:
		return "UNKNOWN"
	}
}

type OutputReportId uint8

const (
	RumbleId         OutputReportId = 0x10
	PlayerLedsId     OutputReportId = 0x11
	ReportingModeId  OutputReportId = 0x12
	StatusRequestId  OutputReportId = 0x15
	ReadMemoryId     OutputReportId = 0x17
	SpeakerEnabledId OutputReportId = 0x14
)

func (o OutputReportId) String() string {
	switch o {
	case 0x10:
		return "Rumble"
	case 0x11:
		return "PlayerLeds"
	case 0x12:
		return "ReportingMode"
	case 0x14:
		return "SpeakerEnabled"
	case 0x15:
		return "StatusRequest"
	case 0x17:
		return "ReadMemory"
	default:
		return "UNKNOWN"
	}
}
