package core

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultDevice is the USB key that unlocks the node (Kingston USB DISK 2.0).
var DefaultDevice = DeviceID{Vendor: 0x13fe, Product: 0x4300}

// DeviceID identifies a USB device by its vendor and product identifiers.
type DeviceID struct {
	Vendor  uint16
	Product uint16
}

// String formats the id as "vvvv:pppp" in lower-case hex.
func (d DeviceID) String() string {
	return fmt.Sprintf("%04x:%04x", d.Vendor, d.Product)
}

// IsZero reports whether d is the zero id.
func (d DeviceID) IsZero() bool {
	return d.Vendor == 0 && d.Product == 0
}

// MarshalText implements encoding.TextMarshaler.
func (d DeviceID) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DeviceID) UnmarshalText(text []byte) error {
	id, err := ParseDeviceID(string(text))
	if err != nil {
		return err
	}
	*d = id
	return nil
}

// ParseDeviceID parses "vvvv:pppp" where both halves are hex.
func ParseDeviceID(s string) (DeviceID, error) {
	vendor, product, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return DeviceID{}, fmt.Errorf("invalid device id %q: want vendor:product", s)
	}
	v, err := ParseHexID(vendor)
	if err != nil {
		return DeviceID{}, fmt.Errorf("invalid device id %q: %w", s, err)
	}
	p, err := ParseHexID(product)
	if err != nil {
		return DeviceID{}, fmt.Errorf("invalid device id %q: %w", s, err)
	}
	return DeviceID{Vendor: v, Product: p}, nil
}

// ParseHexID parses a 16-bit hex identifier with an optional 0x prefix.
func ParseHexID(s string) (uint16, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	if s == "" {
		return 0, fmt.Errorf("empty id")
	}
	n, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid hex id %q", s)
	}
	return uint16(n), nil
}
