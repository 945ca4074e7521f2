package node

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"
)

// Defaults for the node location.
const (
	DefaultDir  = "/run/intstack"
	DefaultName = "int_stack"
	DefaultMode = fs.FileMode(0o660)
)

// DefaultShutdownTimeout bounds how long DestroyNode waits for admitted
// requests before cancelling them.
const DefaultShutdownTimeout = 5 * time.Second

// RegistrarOptions configures a Registrar.
type RegistrarOptions struct {
	// Dir is the class directory holding the node.
	Dir string
	// Name is the socket file name inside Dir.
	Name string
	// Mode is applied to the socket file after it is created.
	Mode fs.FileMode
	// NewServer builds a fresh server for every node registration.
	NewServer func() *Server
	// ShutdownTimeout bounds DestroyNode. Zero means DefaultShutdownTimeout.
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

// Registrar makes the node visible as a Unix socket inside a class
// directory. It implements core.Registrar and is driven only by the
// presence controller, which serializes its calls.
type Registrar struct {
	opts   RegistrarOptions
	logger *slog.Logger

	createdDir bool
	server     *Server
	serveDone  chan error
}

// NewRegistrar returns a Registrar. NewServer is required.
func NewRegistrar(opts RegistrarOptions) *Registrar {
	if opts.NewServer == nil {
		panic("node.NewRegistrar: NewServer is nil")
	}
	if opts.Dir == "" {
		opts.Dir = DefaultDir
	}
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if opts.Mode == 0 {
		opts.Mode = DefaultMode
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Registrar{opts: opts, logger: opts.Logger}
}

// NodePath returns the socket path clients dial.
func (r *Registrar) NodePath() string {
	return filepath.Join(r.opts.Dir, r.opts.Name)
}

// CreateClass ensures the class directory exists, remembering whether it
// had to be created so DestroyClass only removes what it made.
func (r *Registrar) CreateClass() error {
	info, err := os.Stat(r.opts.Dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return fmt.Errorf("class path %s is not a directory", r.opts.Dir)
		}
		r.createdDir = false
		return nil
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(r.opts.Dir, 0o755); err != nil {
			return fmt.Errorf("creating class directory: %w", err)
		}
		r.createdDir = true
		r.logger.Debug("class directory created", "dir", r.opts.Dir)
		return nil
	default:
		return fmt.Errorf("checking class directory: %w", err)
	}
}

// CreateNode listens on the node path and starts serving sessions.
// Any stale socket file at that path is removed first.
func (r *Registrar) CreateNode() error {
	if r.server != nil {
		return fmt.Errorf("node %s already registered", r.NodePath())
	}
	path := r.NodePath()
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing stale node %s: %w", path, err)
	}

	l, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", path, err)
	}
	if err := os.Chmod(path, r.opts.Mode); err != nil {
		l.Close()
		os.Remove(path)
		return fmt.Errorf("setting node mode: %w", err)
	}

	srv := r.opts.NewServer()
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(l)
	}()
	r.server = srv
	r.serveDone = done
	return nil
}

// DestroyNode stops the server, waiting for admitted requests to answer,
// and removes the socket file.
func (r *Registrar) DestroyNode() error {
	if r.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.opts.ShutdownTimeout)
	defer cancel()

	err := r.server.Shutdown(ctx)
	<-r.serveDone
	r.server = nil
	r.serveDone = nil

	if rerr := os.Remove(r.NodePath()); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) && err == nil {
		err = fmt.Errorf("removing node: %w", rerr)
	}
	return err
}

// DestroyClass removes the class directory if CreateClass created it.
func (r *Registrar) DestroyClass() error {
	if !r.createdDir {
		return nil
	}
	r.createdDir = false
	if err := os.Remove(r.opts.Dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing class directory: %w", err)
	}
	return nil
}
