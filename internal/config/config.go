// Package config loads the daemon configuration.
//
// Configuration is read from a single YAML file named by the --config flag
// or, when the flag is absent, the INTSTACK_CONFIG environment variable.
// With neither set the built-in defaults apply. Unknown keys are rejected
// so a typo never silently falls back to a default.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sanverite/intstack/internal/core"
)

// EnvVar names the environment variable consulted when no path is given.
const EnvVar = "INTSTACK_CONFIG"

// Config is the daemon configuration.
type Config struct {
	Stack  StackConfig  `yaml:"stack"`
	Node   NodeConfig   `yaml:"node"`
	Device DeviceConfig `yaml:"device"`
	API    APIConfig    `yaml:"api"`
	Log    LogConfig    `yaml:"log"`
}

// StackConfig configures the shared stack.
type StackConfig struct {
	// DefaultCapacity is the capacity of a freshly initialized stack.
	// Default: 10
	DefaultCapacity int `yaml:"default_capacity"`

	// LockTimeout bounds how long one request waits for the stack lock.
	// Default: 5s
	LockTimeout time.Duration `yaml:"lock_timeout"`
}

// NodeConfig configures the device node socket.
type NodeConfig struct {
	// Dir is the class directory. Default: /run/intstack
	Dir string `yaml:"dir"`

	// Name is the socket file name inside Dir. Default: int_stack
	Name string `yaml:"name"`

	// Mode is the octal permission of the socket file. Default: "0660"
	Mode string `yaml:"mode"`
}

// DeviceConfig configures the USB key that gates the node.
type DeviceConfig struct {
	// VendorID and ProductID are hex strings. Default: 13fe / 4300
	VendorID  string `yaml:"vendor_id"`
	ProductID string `yaml:"product_id"`

	// SysfsPath is scanned at startup. Default: /sys/bus/usb/devices
	SysfsPath string `yaml:"sysfs_path"`

	// Hotplug enables the netlink uevent monitor. Default: true
	Hotplug bool `yaml:"hotplug"`
}

// APIConfig configures the HTTP control plane.
type APIConfig struct {
	// Listen is the TCP address; empty disables the API.
	// Default: 127.0.0.1:8787
	Listen string `yaml:"listen"`

	// ShutdownTimeout bounds graceful shutdown. Default: 5s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error. Default: info
	Level string `yaml:"level"`

	// Format is text or json. Default: text
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Stack: StackConfig{
			DefaultCapacity: 10,
			LockTimeout:     5 * time.Second,
		},
		Node: NodeConfig{
			Dir:  "/run/intstack",
			Name: "int_stack",
			Mode: "0660",
		},
		Device: DeviceConfig{
			VendorID:  "13fe",
			ProductID: "4300",
			SysfsPath: "/sys/bus/usb/devices",
			Hotplug:   true,
		},
		API: APIConfig{
			Listen:          "127.0.0.1:8787",
			ShutdownTimeout: 5 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the configuration at path. An empty path falls back to
// INTSTACK_CONFIG, and an empty variable to Default. The result is
// validated.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads and validates the configuration file at path, merged
// over the defaults.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	cfg := Default()
	if err := cfg.decode(f); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks the configuration for errors. All problems are joined.
func (c *Config) Validate() error {
	var errs []error

	if c.Stack.DefaultCapacity <= 0 {
		errs = append(errs, fmt.Errorf("stack.default_capacity must be > 0, got %d", c.Stack.DefaultCapacity))
	}
	if c.Stack.LockTimeout < 0 {
		errs = append(errs, fmt.Errorf("stack.lock_timeout must not be negative"))
	}
	if c.Node.Dir == "" {
		errs = append(errs, errors.New("node.dir is required"))
	}
	if c.Node.Name == "" || strings.ContainsRune(c.Node.Name, '/') {
		errs = append(errs, fmt.Errorf("node.name must be a plain file name, got %q", c.Node.Name))
	}
	if _, err := c.NodeMode(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.DeviceID(); err != nil {
		errs = append(errs, err)
	}
	if c.API.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("api.shutdown_timeout must not be negative"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}

	return errors.Join(errs...)
}

// NodeMode parses node.mode as an octal permission.
func (c *Config) NodeMode() (fs.FileMode, error) {
	mode, err := strconv.ParseUint(strings.TrimPrefix(c.Node.Mode, "0o"), 8, 32)
	if err != nil || mode == 0 || mode > 0o777 {
		return 0, fmt.Errorf("node.mode must be an octal permission, got %q", c.Node.Mode)
	}
	return fs.FileMode(mode), nil
}

// DeviceID combines device.vendor_id and device.product_id.
func (c *Config) DeviceID() (core.DeviceID, error) {
	vendor, err := core.ParseHexID(c.Device.VendorID)
	if err != nil {
		return core.DeviceID{}, fmt.Errorf("device.vendor_id: %w", err)
	}
	product, err := core.ParseHexID(c.Device.ProductID)
	if err != nil {
		return core.DeviceID{}, fmt.Errorf("device.product_id: %w", err)
	}
	return core.DeviceID{Vendor: vendor, Product: product}, nil
}
