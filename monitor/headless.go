package monitor

import (
	"context"
	"strings"
	"time"

	W "dio.wtf/wiiremote/wiiremote"
	"dio.wtf/wiiremote/wiiremote/controller"
	"dio.wtf/wiiremote/wiiremote/log"
)

// RunHeadless polls the remote every interval and logs what changed until
// ctx is done.
func RunHeadless(ctx context.Context, app *App, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ready := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			f := app.Step()
			if f.Ready != ready {
				ready = f.Ready
				log.InfoF("remote ready: %v", ready)
			}
			logEdges(f)
		}
	}
}

func logEdges(f Frame) {
	if f.Pressed != 0 {
		log.InfoF("pressed:  %s", strings.Join(controller.Names(f.Pressed), " "))
	}
	if f.Released != 0 {
		log.InfoF("released: %s", strings.Join(controller.Names(f.Released), " "))
	}
}

// LogListener reports host notifications through the log.
type LogListener struct{}

func (LogListener) StageChanged(stage W.Stage) {
	log.DebugF("session stage: %s", stage)
}

func (LogListener) Connected(peer W.Peer) {
	log.InfoF("Wii Remote connected. %s '%s'", peer.Address, peer.Name)
}

func (LogListener) Disconnected(peer W.Peer) {
	log.InfoF("Wii Remote disconnected. %s", peer.Address)
}
