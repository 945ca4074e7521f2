// Package hotplug turns USB hotplug activity into presence signals.
//
// The Watcher recognizes one device by vendor:product. At startup
// ScanExisting walks sysfs (/sys/bus/usb/devices) so a key that is already
// plugged in attaches immediately. Run then follows kernel uevents on a
// netlink socket (NETLINK_KOBJECT_UEVENT) and calls the Sink:
//
//   - add of a usb_device whose PRODUCT matches  -> Sink.OnAttach
//   - remove of the port that was attached, or of a matching
//     usb_device when no port is tracked         -> Sink.OnDetach
//
// A second identical key is ignored while the tracked one holds the node.
//
// Events for other subsystems, interfaces and devices are ignored. The
// Sink is responsible for idempotence; core.Presence already is.
//
// Netlink monitoring is only available on Linux. Elsewhere Run returns
// ErrNotSupported and presence must be driven another way, for example
// through the control API.
package hotplug
