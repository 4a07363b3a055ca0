package controller

import "golang.org/x/exp/slices"

// https://wiibrew.org/wiki/Wiimote#Buttons

// | Byte     | x01  | x02   | x04  | x08 | x10   | x20 | x40 | x80  |
// |:--------:|:----:|:-----:|:----:|:---:|:-----:|:---:|:---:|:----:|
// | 1 (High) | Left | Right | Down | Up  | Plus  | --  | --  | --   |
// | 2 (Low)  | Two  | One   | B    | A   | Minus | --  | --  | Home |
const (
	Two   uint16 = 0x0001
	One   uint16 = 0x0002
	B     uint16 = 0x0004
	A     uint16 = 0x0008
	Minus uint16 = 0x0010
	Home  uint16 = 0x0080
	Left  uint16 = 0x0100
	Right uint16 = 0x0200
	Down  uint16 = 0x0400
	Up    uint16 = 0x0800
	Plus  uint16 = 0x1000
)

type button struct {
	name string
	bit  uint16
}

var buttonMap = []button{
	{"UP", Up},
	{"DOWN", Down},
	{"LEFT", Left},
	{"RIGHT", Right},
	{"A", A},
	{"B", B},
	{"ONE", One},
	{"TWO", Two},
	{"PLUS", Plus},
	{"MINUS", Minus},
	{"HOME", Home},
}

// Names lists the buttons set in mask in display order.
func Names(mask uint16) []string {
	names := make([]string, 0, len(buttonMap))
	for _, b := range buttonMap {
		if mask&b.bit != 0 {
			names = append(names, b.name)
		}
	}
	return names
}

// Mask is the inverse of Names; unknown names are ignored.
func Mask(names ...string) uint16 {
	var mask uint16
	for _, name := range names {
		i := slices.IndexFunc(buttonMap, func(b button) bool { return b.name == name })
		if i >= 0 {
			mask |= buttonMap[i].bit
		}
	}
	return mask
}

// Edges tracks button transitions between successive polls.
type Edges struct {
	last uint16
}

// Next returns the buttons that went down and up since the previous call.
func (e *Edges) Next(buttons uint16) (pressed, released uint16) {
	pressed = ^e.last & buttons
	released = e.last & ^buttons
	e.last = buttons
	return
}
