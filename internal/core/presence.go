package core

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// PresenceState tells whether the device node is registered.
type PresenceState string

const (
	PresenceAbsent  PresenceState = "absent"
	PresencePresent PresenceState = "present"
)

// Registrar creates and removes the externally visible node. Creation is
// two steps (class, then node) and removal runs in reverse.
type Registrar interface {
	CreateClass() error
	CreateNode() error
	DestroyNode() error
	DestroyClass() error
	// NodePath is where clients reach the node while it exists.
	NodePath() string
}

// PresenceSnapshot is a copy of the controller state for the read model.
type PresenceSnapshot struct {
	State      PresenceState
	Device     DeviceID
	NodePath   string
	AttachedAt time.Time
	Attaches   uint64
	Detaches   uint64
}

// PresenceOptions configures a Presence controller.
type PresenceOptions struct {
	Logger *slog.Logger
	// Now overrides the wall clock for attach timestamps.
	Now func() time.Time
}

// Presence is the attach/detach state machine gating the device node.
// It starts absent; OnAttach registers the node once and OnDetach removes
// it once. Duplicate signals are no-ops. It never touches stack state.
type Presence struct {
	mu         sync.Mutex
	state      PresenceState
	device     DeviceID
	attachedAt time.Time
	attaches   uint64
	detaches   uint64

	registrar Registrar
	logger    *slog.Logger
	now       func() time.Time
}

// NewPresence constructs an absent controller around registrar.
func NewPresence(registrar Registrar, opts PresenceOptions) *Presence {
	if registrar == nil {
		panic("core.NewPresence: registrar is nil")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Presence{
		state:     PresenceAbsent,
		registrar: registrar,
		logger:    opts.Logger,
		now:       opts.Now,
	}
}

// OnAttach handles the hardware-attach signal for device. If the node
// cannot be fully registered, whatever was created is removed again, the
// controller stays absent, and the error wraps ErrRegistration.
func (p *Presence) OnAttach(device DeviceID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == PresencePresent {
		p.logger.Debug("attach ignored, node already present", "device", device)
		return nil
	}

	p.logger.Info("usb key plugged", "device", device)
	if err := p.registrar.CreateClass(); err != nil {
		p.logger.Error("failed to create node class", "error", err)
		return fmt.Errorf("%w: creating class: %w", ErrRegistration, err)
	}
	if err := p.registrar.CreateNode(); err != nil {
		p.logger.Error("failed to create node", "error", err)
		if derr := p.registrar.DestroyClass(); derr != nil {
			p.logger.Warn("unwinding node class failed", "error", derr)
		}
		return fmt.Errorf("%w: creating node: %w", ErrRegistration, err)
	}

	p.state = PresencePresent
	p.device = device
	p.attachedAt = p.now()
	p.attaches++
	p.logger.Info("node registered", "path", p.registrar.NodePath())
	return nil
}

// OnDetach handles the hardware-detach signal. Teardown errors are logged;
// the controller always ends absent.
func (p *Presence) OnDetach() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == PresenceAbsent {
		p.logger.Debug("detach ignored, node already absent")
		return
	}

	p.logger.Info("usb key removed", "device", p.device)
	if err := p.registrar.DestroyNode(); err != nil {
		p.logger.Warn("destroying node failed", "error", err)
	}
	if err := p.registrar.DestroyClass(); err != nil {
		p.logger.Warn("destroying node class failed", "error", err)
	}

	p.state = PresenceAbsent
	p.device = DeviceID{}
	p.attachedAt = time.Time{}
	p.detaches++
	p.logger.Info("node unregistered")
}

// State returns the current presence state.
func (p *Presence) State() PresenceState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Snapshot returns a copy of the controller state.
func (p *Presence) Snapshot() PresenceSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	snap := PresenceSnapshot{
		State:      p.state,
		Device:     p.device,
		AttachedAt: p.attachedAt,
		Attaches:   p.attaches,
		Detaches:   p.detaches,
	}
	if p.state == PresencePresent {
		snap.NodePath = p.registrar.NodePath()
	}
	return snap
}
