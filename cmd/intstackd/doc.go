// Command intstackd owns the shared integer stack and exposes it as a
// device node while the configured USB key is plugged in.
//
// Usage:
//
//	intstackd [--config FILE] [--listen ADDR] [--node-dir DIR]
//	          [--capacity N] [--log-level LEVEL] [--no-hotplug]
//
// Flags override values from the config file, which is named by --config
// or INTSTACK_CONFIG.
//
// Behavior:
//
// Builds the stack service, registrar and presence controller, scans sysfs
// so an already-plugged key attaches immediately, follows USB hotplug
// events, and serves the HTTP control plane. On SIGINT/SIGTERM it stops the
// API and the watcher, tears the node down, and destroys the stack.
package main
