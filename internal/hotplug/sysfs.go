package hotplug

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sanverite/intstack/internal/core"
)

// DefaultSysfsPath is where the kernel lists USB devices.
const DefaultSysfsPath = "/sys/bus/usb/devices"

// scanSysfs looks for a device matching id under sysfsPath and returns
// its port name (e.g. "1-1.2").
func scanSysfs(sysfsPath string, id core.DeviceID) (port string, found bool, err error) {
	entries, err := os.ReadDir(sysfsPath)
	if err != nil {
		return "", false, err
	}

	for _, entry := range entries {
		name := entry.Name()

		// Skip root hubs (usb1) and interfaces (1-1:1.0).
		if strings.HasPrefix(name, "usb") || strings.Contains(name, ":") {
			continue
		}

		dev, err := readSysfsDevice(filepath.Join(sysfsPath, name))
		if err != nil {
			continue
		}
		if dev == id {
			return name, true, nil
		}
	}
	return "", false, nil
}

// readSysfsDevice reads idVendor and idProduct of one device directory.
func readSysfsDevice(path string) (core.DeviceID, error) {
	vendor, err := readSysfsHexUint16(filepath.Join(path, "idVendor"))
	if err != nil {
		return core.DeviceID{}, err
	}
	product, err := readSysfsHexUint16(filepath.Join(path, "idProduct"))
	if err != nil {
		return core.DeviceID{}, err
	}
	return core.DeviceID{Vendor: vendor, Product: product}, nil
}

func readSysfsHexUint16(path string) (uint16, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return core.ParseHexID(string(data))
}
