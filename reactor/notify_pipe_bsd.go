//go:build openbsd
// +build openbsd

// File: reactor/notify_pipe_bsd.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Self-notification via a connected socket pair, for kernels without a
// user-triggerable event filter.

package reactor

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-poller/api"
)

// pipeNotifier wakes the backend by writing one byte into a non-blocking
// socket pair whose read end is registered oneshot under the reserved
// key.
type pipeNotifier struct {
	readFD  int
	writeFD int
}

func newNotifier() (notifier, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("socketpair: %w", err)
	}
	for _, fd := range fds {
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(fds[0])
			unix.Close(fds[1])
			return nil, fmt.Errorf("set nonblock: %w", err)
		}
		unix.CloseOnExec(fd)
	}
	return &pipeNotifier{readFD: fds[0], writeFD: fds[1]}, nil
}

func (n *pipeNotifier) register(b *kqueueBackend) error {
	return b.modify(uintptr(n.readFD), api.Event{Key: api.NotifyKey, Readable: true}, api.ModeOneshot)
}

// reregister drains pending wake bytes, then re-arms the oneshot
// registration. The order is mandatory: re-arming first could miss a
// byte written between drain and re-arm, while draining first is safe
// because a oneshot registration fires once per arm regardless of how
// many bytes are pending.
func (n *pipeNotifier) reregister(b *kqueueBackend) error {
	var buf [64]byte
	for {
		c, err := unix.Read(n.readFD, buf[:])
		if c <= 0 || err != nil {
			break
		}
	}
	return b.modify(uintptr(n.readFD), api.Event{Key: api.NotifyKey, Readable: true}, api.ModeOneshot)
}

// notify writes one wake byte. A failed write means the channel is
// already full of wakes, which is as good as notified.
func (n *pipeNotifier) notify(*kqueueBackend) error {
	_, err := unix.Write(n.writeFD, []byte{1})
	return err
}

func (n *pipeNotifier) deregister(b *kqueueBackend) error {
	return b.modify(uintptr(n.readFD), api.Event{}, api.ModeOneshot)
}

func (n *pipeNotifier) hasFD(fd uintptr) bool {
	return fd == uintptr(n.readFD)
}

func (n *pipeNotifier) close() error {
	err := unix.Close(n.writeFD)
	if cerr := unix.Close(n.readFD); err == nil {
		err = cerr
	}
	return err
}
