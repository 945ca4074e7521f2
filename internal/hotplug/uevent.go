package hotplug

import (
	"bytes"
	"strings"

	"github.com/sanverite/intstack/internal/core"
)

// UEventBufferSize is large enough for any kernel uevent message.
const UEventBufferSize = 8192

// ueventAction represents a kernel uevent action.
type ueventAction uint8

const (
	ueventUnknown ueventAction = iota
	ueventAdd
	ueventRemove
	ueventChange
	ueventBind
	ueventUnbind
)

func (a ueventAction) String() string {
	switch a {
	case ueventAdd:
		return "add"
	case ueventRemove:
		return "remove"
	case ueventChange:
		return "change"
	case ueventBind:
		return "bind"
	case ueventUnbind:
		return "unbind"
	default:
		return "unknown"
	}
}

func parseAction(s string) ueventAction {
	switch s {
	case "add":
		return ueventAdd
	case "remove":
		return ueventRemove
	case "change":
		return ueventChange
	case "bind":
		return ueventBind
	case "unbind":
		return ueventUnbind
	default:
		return ueventUnknown
	}
}

// uevent is a parsed kernel uevent.
type uevent struct {
	action    ueventAction
	devpath   string // DEVPATH
	subsystem string // SUBSYSTEM
	devtype   string // DEVTYPE
	product   string // PRODUCT, "vendor/product/bcdDevice" in hex
}

// device decodes PRODUCT into a DeviceID.
func (e uevent) device() (core.DeviceID, bool) {
	parts := strings.Split(e.product, "/")
	if len(parts) < 2 {
		return core.DeviceID{}, false
	}
	vendor, err := core.ParseHexID(parts[0])
	if err != nil {
		return core.DeviceID{}, false
	}
	product, err := core.ParseHexID(parts[1])
	if err != nil {
		return core.DeviceID{}, false
	}
	return core.DeviceID{Vendor: vendor, Product: product}, true
}

// isUSBDevice reports whether the event is about a whole device rather
// than one of its interfaces.
func (e uevent) isUSBDevice() bool {
	return e.subsystem == "usb" && e.devtype == "usb_device"
}

// parseUEvent parses a NUL-separated netlink uevent message. The first
// field is usually "action@devpath"; the rest are KEY=VALUE pairs.
func parseUEvent(data []byte) uevent {
	var evt uevent

	for _, field := range bytes.Split(data, []byte{0}) {
		if len(field) == 0 {
			continue
		}
		s := string(field)

		key, value, ok := strings.Cut(s, "=")
		if !ok {
			if action, devpath, ok := strings.Cut(s, "@"); ok {
				evt.action = parseAction(action)
				evt.devpath = devpath
			}
			continue
		}

		switch key {
		case "ACTION":
			evt.action = parseAction(value)
		case "DEVPATH":
			evt.devpath = value
		case "SUBSYSTEM":
			evt.subsystem = value
		case "DEVTYPE":
			evt.devtype = value
		case "PRODUCT":
			evt.product = value
		}
	}

	return evt
}
