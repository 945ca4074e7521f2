//go:build linux

package hotplug

import (
	"context"
	"errors"

	"golang.org/x/sys/unix"
)

// pollIntervalMs is how often a blocked receive re-checks its context.
const pollIntervalMs = 250

// monitor reads kernel uevents from a netlink socket.
type monitor struct {
	fd  int
	buf [UEventBufferSize]byte
}

func newMonitor() (*monitor, error) {
	fd, err := unix.Socket(
		unix.AF_NETLINK,
		unix.SOCK_DGRAM|unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK,
		unix.NETLINK_KOBJECT_UEVENT,
	)
	if err != nil {
		return nil, err
	}

	// Group 1 is the kernel broadcast group.
	if err := unix.Bind(fd, &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: 1}); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return &monitor{fd: fd}, nil
}

func (m *monitor) close() error {
	return unix.Close(m.fd)
}

// receive blocks until one uevent arrives or ctx is done.
func (m *monitor) receive(ctx context.Context) ([]byte, error) {
	fds := []unix.PollFd{{Fd: int32(m.fd), Events: unix.POLLIN}}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, err := unix.Poll(fds, pollIntervalMs)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return nil, err
		}
		if n == 0 {
			continue
		}

		n, err = unix.Read(m.fd, m.buf[:])
		if err != nil {
			// ENOBUFS means the kernel dropped events; keep listening.
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) || errors.Is(err, unix.ENOBUFS) {
				continue
			}
			return nil, err
		}
		if n <= 0 {
			continue
		}
		return m.buf[:n], nil
	}
}
