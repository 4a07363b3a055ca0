package monitor

import (
	"dio.wtf/wiiremote/wiiremote/controller"
	"dio.wtf/wiiremote/wiiremote/log"
)

// Canvas size of the cursor playground, in cells.
const (
	Width  = 32
	Height = 12
)

// Remote is the part of the host the loop polls. Every method must be safe
// to call from a goroutine other than the dispatcher.
type Remote interface {
	IsReady() bool
	Buttons() uint16
	Led() uint8
	SetLed(pattern uint8) error
}

type Rotation uint8

const (
	Portrait Rotation = iota
	Landscape
	PortraitFlip
	LandscapeFlip
)

func (r Rotation) String() string {
	switch r {
	case Portrait:
		return "PORTRAIT"
	case Landscape:
		return "LANDSCAPE"
	case PortraitFlip:
		return "PORTRAIT FLIP"
	case LandscapeFlip:
		return "LANDSCAPE FLIP"
	default:
		return "UNKNOWN"
	}
}

// LedCounter cycles the player LEDs through a 4 bit binary count. A toggles
// counting, Minus jumps to the top so the next step wraps to zero.
type LedCounter struct {
	cnt      uint8
	disabled bool
}

func (c *LedCounter) Step(pressed uint16) uint8 {
	if pressed&controller.A != 0 {
		c.disabled = !c.disabled
	}
	if pressed&controller.Minus != 0 {
		c.cnt = 0xff
	}
	if !c.disabled {
		c.cnt++
	}
	return Pattern(c.cnt)
}

// Pattern maps the high nibble of cnt to LEDs, most significant bit on LED 1.
func Pattern(cnt uint8) uint8 {
	c := cnt >> 4
	led := (c & 0b0001) << 3
	led |= (c & 0b0010) << 1
	led |= (c & 0b0100) >> 1
	led |= (c & 0b1000) >> 3
	return led
}

// Frame is one poll of the remote after the loop applied it.
type Frame struct {
	Ready    bool
	Buttons  uint16
	Pressed  uint16
	Released uint16
	Led      uint8
	X, Y     int
	Rotation Rotation
}

// App is the per-frame loop: edge detection, the LED counter and a cursor
// steered with the D-pad (Plus recenters, B rotates).
type App struct {
	remote     Remote
	edges      controller.Edges
	counter    LedCounter
	useCounter bool

	x, y     int
	rotation Rotation
}

func NewApp(remote Remote, useCounter bool) *App {
	return &App{
		remote:     remote,
		useCounter: useCounter,
		x:          Width / 2,
		y:          Height / 2,
	}
}

func (a *App) Step() Frame {
	buttons := a.remote.Buttons()
	pressed, released := a.edges.Next(buttons)

	if a.useCounter {
		if led := a.counter.Step(pressed); led != a.remote.Led() {
			if err := a.remote.SetLed(led); nil != err {
				log.DebugF("set led: %v", err)
			}
		}
	}

	a.x = clamp(a.x+held(buttons, controller.Right)-held(buttons, controller.Left), 0, Width-1)
	a.y = clamp(a.y+held(buttons, controller.Down)-held(buttons, controller.Up), 0, Height-1)
	if pressed&controller.Plus != 0 {
		a.x, a.y = Width/2, Height/2
	}
	if pressed&controller.B != 0 {
		a.rotation = (a.rotation + 1) % 4
		log.InfoF("%s", a.rotation)
	}

	return Frame{
		Ready:    a.remote.IsReady(),
		Buttons:  buttons,
		Pressed:  pressed,
		Released: released,
		Led:      a.remote.Led(),
		X:        a.x,
		Y:        a.y,
		Rotation: a.rotation,
	}
}

func held(buttons, bit uint16) int {
	if buttons&bit != 0 {
		return 1
	}
	return 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
