package hotplug

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/sanverite/intstack/internal/core"
)

// ErrNotSupported is returned by Run on platforms without netlink.
var ErrNotSupported = errors.New("hotplug monitoring not supported on this platform")

// Sink receives presence signals. *core.Presence implements it.
type Sink interface {
	OnAttach(device core.DeviceID) error
	OnDetach()
	State() core.PresenceState
}

// Options configures a Watcher.
type Options struct {
	// Device is the recognized vendor:product pair.
	Device core.DeviceID
	// SysfsPath is scanned by ScanExisting. Empty means DefaultSysfsPath.
	SysfsPath string
	Logger    *slog.Logger
}

// Watcher filters USB hotplug activity down to attach/detach signals for
// one device. ScanExisting and Run must not be called concurrently.
type Watcher struct {
	sink   Sink
	opts   Options
	logger *slog.Logger

	// port is the sysfs name of the attached device, empty when none.
	port string
}

// NewWatcher returns a watcher delivering signals to sink.
func NewWatcher(sink Sink, opts Options) *Watcher {
	if sink == nil {
		panic("hotplug.NewWatcher: sink is nil")
	}
	if opts.Device.IsZero() {
		opts.Device = core.DefaultDevice
	}
	if opts.SysfsPath == "" {
		opts.SysfsPath = DefaultSysfsPath
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Watcher{sink: sink, opts: opts, logger: opts.Logger}
}

// ScanExisting attaches if the device is already plugged in. It reports
// whether the device was found.
func (w *Watcher) ScanExisting() (bool, error) {
	port, found, err := scanSysfs(w.opts.SysfsPath, w.opts.Device)
	if err != nil {
		return false, fmt.Errorf("scanning %s: %w", w.opts.SysfsPath, err)
	}
	if !found {
		w.logger.Info("device not plugged in", "device", w.opts.Device)
		return false, nil
	}
	if err := w.sink.OnAttach(w.opts.Device); err != nil {
		return true, err
	}
	w.port = port
	return true, nil
}

// Run follows kernel uevents until ctx is done. Attach failures are
// logged and do not stop the watcher. It returns ctx.Err on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	m, err := newMonitor()
	if err != nil {
		return err
	}
	defer m.close()

	w.logger.Info("watching usb hotplug events", "device", w.opts.Device)
	for {
		data, err := m.receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("receiving uevent: %w", err)
		}
		w.handle(parseUEvent(data))
	}
}

func (w *Watcher) handle(evt uevent) {
	if !evt.isUSBDevice() {
		return
	}
	device, known := evt.device()
	port := filepath.Base(evt.devpath)

	switch evt.action {
	case ueventAdd:
		if !known || device != w.opts.Device {
			return
		}
		// A second identical key does not take over while the tracked
		// one still holds the node.
		if w.port != "" && port != w.port && w.sink.State() == core.PresencePresent {
			w.logger.Info("ignoring additional device", "device", device, "port", port, "tracked", w.port)
			return
		}
		if err := w.sink.OnAttach(device); err != nil {
			w.logger.Error("attach failed", "device", device, "port", port, "error", err)
			return
		}
		w.port = port

	case ueventRemove:
		// Once a port is tracked only its removal counts.
		if w.port != "" {
			if port != w.port {
				return
			}
		} else if !known || device != w.opts.Device {
			return
		}
		w.port = ""
		w.sink.OnDetach()
	}
}
