package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/sanverite/intstack/internal/api"
	"github.com/sanverite/intstack/internal/config"
	"github.com/sanverite/intstack/internal/core"
	"github.com/sanverite/intstack/internal/hotplug"
	"github.com/sanverite/intstack/internal/logging"
	"github.com/sanverite/intstack/internal/node"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "intstackd: %v\n", err)
		os.Exit(1)
	}
}

// run starts the daemon and blocks until ctx is done.
func run(ctx context.Context, args []string, stderr io.Writer) error {
	cfg, err := loadConfig(args, stderr)
	if err != nil {
		return err
	}

	logger, err := logging.New(stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	d, err := newDaemon(cfg, logger)
	if err != nil {
		return err
	}
	return d.run(ctx)
}

func loadConfig(args []string, stderr io.Writer) (*config.Config, error) {
	var (
		configPath string
		listen     string
		nodeDir    string
		capacity   int
		logLevel   string
		noHotplug  bool
	)

	flagSet := pflag.NewFlagSet("intstackd", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&configPath, "config", "", "path to YAML config (default: $"+config.EnvVar+")")
	flagSet.StringVar(&listen, "listen", "", "HTTP listen address, empty disables the API")
	flagSet.StringVar(&nodeDir, "node-dir", "", "class directory holding the node socket")
	flagSet.IntVar(&capacity, "capacity", 0, "default stack capacity")
	flagSet.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	flagSet.BoolVar(&noHotplug, "no-hotplug", false, "do not follow USB hotplug events")

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}
	if flagSet.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if flagSet.Changed("listen") {
		cfg.API.Listen = listen
	}
	if flagSet.Changed("node-dir") {
		cfg.Node.Dir = nodeDir
	}
	if flagSet.Changed("capacity") {
		cfg.Stack.DefaultCapacity = capacity
	}
	if flagSet.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if noHotplug {
		cfg.Device.Hotplug = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	service *core.Service
	state   *core.State
	watcher *hotplug.Watcher
	api     *api.Server
}

func newDaemon(cfg *config.Config, logger *slog.Logger) (*daemon, error) {
	device, err := cfg.DeviceID()
	if err != nil {
		return nil, err
	}
	mode, err := cfg.NodeMode()
	if err != nil {
		return nil, err
	}

	service := core.NewService(core.ServiceOptions{
		DefaultCapacity: cfg.Stack.DefaultCapacity,
		Logger:          logging.For(logger, logging.ComponentService),
	})

	nodeLogger := logging.For(logger, logging.ComponentNode)
	registrar := node.NewRegistrar(node.RegistrarOptions{
		Dir:    cfg.Node.Dir,
		Name:   cfg.Node.Name,
		Mode:   mode,
		Logger: nodeLogger,
		NewServer: func() *node.Server {
			return node.NewStackServer(service, node.ServerOptions{
				RequestTimeout: cfg.Stack.LockTimeout,
				Logger:         nodeLogger,
			})
		},
	})

	presence := core.NewPresence(registrar, core.PresenceOptions{
		Logger: logging.For(logger, logging.ComponentPresence),
	})
	state := core.NewState(service, presence)

	d := &daemon{
		cfg:     cfg,
		logger:  logging.For(logger, logging.ComponentDaemon),
		service: service,
		state:   state,
		watcher: hotplug.NewWatcher(presence, hotplug.Options{
			Device:    device,
			SysfsPath: cfg.Device.SysfsPath,
			Logger:    logging.For(logger, logging.ComponentHotplug),
		}),
	}
	if cfg.API.Listen != "" {
		d.api = api.NewServer(state, api.ServerOptions{
			Addr:            cfg.API.Listen,
			ShutdownTimeout: cfg.API.ShutdownTimeout,
			Device:          device,
			Logger:          logging.For(logger, logging.ComponentAPI),
			ProbeLogger:     logging.For(logger, logging.ComponentProbe),
		})
	}
	return d, nil
}

func (d *daemon) run(ctx context.Context) error {
	if err := d.state.SetAgentState(core.StateStarting); err != nil {
		return err
	}

	if _, err := d.watcher.ScanExisting(); err != nil {
		d.logger.Warn("initial device scan failed", "error", err)
		d.state.AppendWarning("scan: " + err.Error())
	}

	watchCtx, cancelWatch := context.WithCancel(ctx)
	var wg sync.WaitGroup
	if d.cfg.Device.Hotplug {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := d.watcher.Run(watchCtx)
			if err == nil || errors.Is(err, context.Canceled) {
				return
			}
			d.logger.Error("hotplug watcher stopped", "error", err)
			d.state.AppendWarning("hotplug: " + err.Error())
		}()
	}

	if d.api != nil {
		d.api.Start()
	}
	if err := d.state.SetAgentState(core.StateActive); err != nil {
		cancelWatch()
		wg.Wait()
		return err
	}
	d.logger.Info("daemon started", "node", d.cfg.Node.Dir, "hotplug", d.cfg.Device.Hotplug)

	<-ctx.Done()
	d.logger.Info("shutting down")
	return d.shutdown(cancelWatch, &wg)
}

func (d *daemon) shutdown(cancelWatch context.CancelFunc, wg *sync.WaitGroup) error {
	_ = d.state.SetAgentState(core.StateStopping)

	var errs []error
	if d.api != nil {
		if err := d.api.Stop(context.Background()); err != nil {
			errs = append(errs, fmt.Errorf("stopping api: %w", err))
		}
	}
	cancelWatch()
	wg.Wait()

	d.state.Presence().OnDetach()
	d.service.Close()

	if len(errs) > 0 {
		_ = d.state.SetAgentState(core.StateError)
		return errors.Join(errs...)
	}
	_ = d.state.SetAgentState(core.StateInactive)
	d.logger.Info("daemon stopped")
	return nil
}
