package monitor

import (
	"fmt"
	"strings"
	"time"

	W "dio.wtf/wiiremote/wiiremote"
	"dio.wtf/wiiremote/wiiremote/controller"
	"dio.wtf/wiiremote/wiiremote/log"
	tea "github.com/charmbracelet/bubbletea"
)

type tickMsg time.Time

type stageMsg W.Stage

type connectedMsg W.Peer

type disconnectedMsg W.Peer

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Model renders the loop's frames in the terminal.
type Model struct {
	app      *App
	interval time.Duration
	notes    <-chan tea.Msg

	frame  Frame
	stage  W.Stage
	peer   *W.Peer
	status string
}

func NewModel(app *App, interval time.Duration) Model {
	return Model{
		app:      app,
		interval: interval,
		frame:    Frame{X: Width / 2, Y: Height / 2},
		status:   "Connect Wii Remote",
	}
}

func (m Model) Init() tea.Cmd {
	if nil == m.notes {
		return tick(m.interval)
	}
	return tea.Batch(tick(m.interval), waitForNote(m.notes))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case tickMsg:
		m.frame = m.app.Step()
		return m, tick(m.interval)
	case stageMsg:
		m.stage = W.Stage(msg)
		return m, m.nextNote()
	case connectedMsg:
		peer := W.Peer(msg)
		m.peer = &peer
		m.status = "Wii Remote connected."
		return m, m.nextNote()
	case disconnectedMsg:
		m.peer = nil
		m.status = "Wii Remote disconnected."
		return m, m.nextNote()
	}
	return m, nil
}

func (m Model) nextNote() tea.Cmd {
	if nil == m.notes {
		return nil
	}
	return waitForNote(m.notes)
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString("Wii Remote Test\n\n")
	fmt.Fprintf(&b, "Session:  %s\n", m.stage)
	if nil != m.peer {
		name := m.peer.Name
		if name == "" {
			name = m.peer.ServiceName
		}
		fmt.Fprintf(&b, "Remote:   %s %s\n", m.peer.Address, name)
	} else {
		fmt.Fprintf(&b, "Remote:   %s\n", m.status)
	}
	fmt.Fprintf(&b, "LEDs:     %s\n", leds(m.frame.Led))
	fmt.Fprintf(&b, "Buttons:  %s\n", strings.Join(controller.Names(m.frame.Buttons), " "))
	fmt.Fprintf(&b, "Display:  %s\n\n", m.frame.Rotation)

	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if x == m.frame.X && y == m.frame.Y {
				b.WriteByte('@')
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	b.WriteString("\nD-pad: move  +: center  B: rotate  A: pause LEDs  -: reset LEDs  q: quit\n")
	return b.String()
}

// leds draws LED 1 to 4 from the low nibble of pattern.
func leds(pattern uint8) string {
	var b strings.Builder
	for i := 0; i < 4; i++ {
		if pattern&(1<<i) != 0 {
			b.WriteString("●")
		} else {
			b.WriteString("○")
		}
	}
	return b.String()
}

// TUI runs the Model as a full screen program. Host notifications reach it
// through a queue that the model drains one message at a time.
type TUI struct {
	interval time.Duration
	notes    chan tea.Msg
}

func NewTUI(interval time.Duration) *TUI {
	return &TUI{
		interval: interval,
		notes:    make(chan tea.Msg, 16),
	}
}

func (t *TUI) Listener() W.Listener {
	return notifier{notes: t.notes}
}

// Run blocks until the user quits.
func (t *TUI) Run(app *App) error {
	m := NewModel(app, t.interval)
	m.notes = t.notes
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func waitForNote(notes <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-notes
	}
}

type notifier struct {
	notes chan<- tea.Msg
}

// post never blocks the dispatcher; a stalled UI loses notifications.
func (n notifier) post(msg tea.Msg) {
	select {
	case n.notes <- msg:
	default:
		log.DebugF("ui queue full, drop %T", msg)
	}
}

func (n notifier) StageChanged(stage W.Stage) {
	n.post(stageMsg(stage))
}

func (n notifier) Connected(peer W.Peer) {
	n.post(connectedMsg(peer))
}

func (n notifier) Disconnected(peer W.Peer) {
	n.post(disconnectedMsg(peer))
}
