//go:build !linux

package hotplug

import "context"

type monitor struct{}

func newMonitor() (*monitor, error) {
	return nil, ErrNotSupported
}

func (m *monitor) close() error { return nil }

func (m *monitor) receive(ctx context.Context) ([]byte, error) {
	return nil, ErrNotSupported
}
