package bluez

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"dio.wtf/wiiremote/wiiremote/log"
	"github.com/muka/go-bluetooth/hw/linux/cmd"
)

const (
	servicePath  = "/lib/systemd/system/bluetooth.service"
	overrideDir  = "/run/systemd/system/bluetooth.service.d"
	overridePath = overrideDir + "/wiiremote.conf"
)

var errNoExecStart = errors.New("bluez: no ExecStart in bluetooth.service")

// OverrideService restarts bluetoothd without its input plugin, so the
// kernel HID host does not grab the remote's channels, or undoes that.
// Hosts not running systemd are left alone.
func OverrideService(enable bool) error {
	ret, err := cmd.Exec("ps", "--no-headers", "-o", "comm", "1")
	if nil != err || strings.TrimSpace(ret) != "systemd" {
		log.Debug("systemd not found, bluetooth service left alone")
		return nil
	}

	if enable {
		if _, err := os.Stat(overridePath); nil == err {
			// already in place, no need to restart bluetooth
			return nil
		}
		execStart, err := readExecStart(servicePath)
		if nil != err {
			return err
		}
		if err = os.MkdirAll(overrideDir, 0755); nil != err {
			return fmt.Errorf("bluez: create %s: %w", overrideDir, err)
		}
		if err = os.WriteFile(overridePath, []byte(overrideContent(execStart)), 0644); nil != err {
			return fmt.Errorf("bluez: write %s: %w", overridePath, err)
		}
		log.Debug("Override conf")
	} else {
		if err := os.Remove(overridePath); errors.Is(err, os.ErrNotExist) {
			return nil
		} else if nil != err {
			return fmt.Errorf("bluez: remove %s: %w", overridePath, err)
		}
		log.Debug("Remove conf")
	}

	if _, err := cmd.Exec("systemctl", "daemon-reload"); nil != err {
		return fmt.Errorf("bluez: daemon-reload: %w", err)
	}
	if _, err := cmd.Exec("systemctl", "restart", "bluetooth"); nil != err {
		return fmt.Errorf("bluez: restart bluetooth: %w", err)
	}
	log.Debug("systemd found and bluetooth reloaded")
	return nil
}

func readExecStart(path string) (string, error) {
	file, err := os.Open(path)
	if nil != err {
		return "", fmt.Errorf("bluez: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "ExecStart=") {
			return line, nil
		}
	}
	if err := scanner.Err(); nil != err {
		return "", fmt.Errorf("bluez: read %s: %w", path, err)
	}
	return "", errNoExecStart
}

func overrideContent(execStart string) string {
	return "[Service]\nExecStart=\n" + execStart + " --noplugin=input\n"
}
