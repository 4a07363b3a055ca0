package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"dio.wtf/wiiremote/monitor"
	W "dio.wtf/wiiremote/wiiremote"
	"dio.wtf/wiiremote/wiiremote/bluez"
	"dio.wtf/wiiremote/wiiremote/config"
	"dio.wtf/wiiremote/wiiremote/log"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ~/.config/wiiremote/config.yaml)")
	headless := flag.Bool("headless", false, "log button changes instead of drawing the terminal UI")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if nil != err {
		log.FatalF("config: %v", err)
	}
	if *headless {
		cfg.Monitor.Headless = true
	}
	if err := cfg.Validate(); nil != err {
		log.FatalF("config validation: %v", err)
	}

	logFile := cfg.LogFile
	if logFile == "" && !cfg.Monitor.Headless {
		// keep the terminal for the UI
		logFile = filepath.Join(os.TempDir(), "wiiremote.log")
	}
	if err := log.Open(cfg.LogLevel, logFile); nil != err {
		log.FatalF("log: %v", err)
	}
	defer log.Sync()

	if cfg.Bluez.OverrideService {
		if err := bluez.OverrideService(true); nil != err {
			log.ErrorF("override bluetooth service: %v", err)
		} else {
			defer bluez.OverrideService(false)
		}
	}

	transport, err := bluez.NewTransport(cfg.Adapter)
	if nil != err {
		log.FatalF("bluetooth: %v", err)
	}
	defer transport.Close()

	var tui *monitor.TUI
	opts := hostOptions(cfg)
	if cfg.Monitor.Headless {
		opts.Listener = monitor.LogListener{}
	} else {
		tui = monitor.NewTUI(cfg.Monitor.PollInterval)
		opts.Listener = tui.Listener()
	}
	host := W.NewHost(transport, opts)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		if err := host.Run(ctx); nil != err && ctx.Err() == nil {
			log.ErrorF("host: %v", err)
		}
	}()
	if err := transport.Start(host.Post); nil != err {
		log.FatalF("bluetooth: %v", err)
	}

	app := monitor.NewApp(host, cfg.Monitor.LedCounter)
	if cfg.Monitor.Headless {
		log.InfoF("Waiting for a Wii Remote on %s. Press 1+2 to make it discoverable.", cfg.Adapter)
		monitor.RunHeadless(ctx, app, cfg.Monitor.PollInterval)
		return
	}
	fmt.Printf("Logging to %s\n", logFile)
	if err := tui.Run(app); nil != err {
		log.ErrorF("ui: %v", err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); nil == err {
		cfg, err := config.Load(defaultPath)
		if nil != err {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		return cfg, nil
	}
	return config.Default(), nil
}

func hostOptions(cfg *config.Config) W.Options {
	return W.Options{
		Capacity:           cfg.Discovery.Capacity,
		InquiryDuration:    cfg.Discovery.InquiryDuration,
		MaxNameAttempts:    cfg.Discovery.MaxNameAttempts,
		NegotiationTimeout: cfg.Session.NegotiationTimeout,
		MTU:                cfg.Session.MTU,
		PinCode:            cfg.Session.PinCode,
	}
}
