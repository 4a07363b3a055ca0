package wiiremote

import (
	"errors"

	"dio.wtf/wiiremote/wiiremote/log"
	R "dio.wtf/wiiremote/wiiremote/report"
)

// decodeReport extracts the button mask from an interrupt channel payload.
// Anything that is not a core buttons report is skipped.
func decodeReport(payload []byte) (uint16, bool) {
	buttons, err := R.InputReport(payload).CoreButtons()
	switch {
	case nil == err:
		return buttons, true
	case errors.Is(err, R.ErrUnsupportedData):
		return 0, false
	default:
		log.DebugF("ignore input report: %v", err)
		return 0, false
	}
}

func (h *Host) channelData(ev ChannelData) {
	if h.session.Stage() != Ready {
		return
	}
	switch ev.CID {
	case h.session.InterruptChannel():
		if buttons, ok := decodeReport(ev.Payload); ok {
			h.remote.StoreButtons(buttons)
		}
	case h.session.ControlChannel():
		log.DebugF("HID Control: % X", ev.Payload)
	}
}
