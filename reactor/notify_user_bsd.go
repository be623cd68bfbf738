//go:build darwin || dragonfly || freebsd
// +build darwin dragonfly freebsd

// File: reactor/notify_user_bsd.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Self-notification via EVFILT_USER, avoiding a pipe allocation where
// the kernel supports user-triggerable events.

package reactor

import (
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-poller/api"
)

// userNotifier wakes the backend through a kernel user event. The event
// is registered EV_CLEAR, so firing auto-clears it and it can be
// triggered again without re-registration.
type userNotifier struct{}

func newNotifier() (notifier, error) {
	return userNotifier{}, nil
}

func (userNotifier) register(b *kqueueBackend) error {
	ev := make([]unix.Kevent_t, 1)
	unix.SetKevent(&ev[0], 0, unix.EVFILT_USER, unix.EV_ADD|unix.EV_RECEIPT|unix.EV_CLEAR)
	setUdata(&ev[0], api.NotifyKey)
	return b.submit(ev)
}

func (userNotifier) reregister(*kqueueBackend) error {
	// EV_CLEAR already re-arms.
	return nil
}

func (userNotifier) notify(b *kqueueBackend) error {
	ev := make([]unix.Kevent_t, 1)
	unix.SetKevent(&ev[0], 0, unix.EVFILT_USER, unix.EV_ADD|unix.EV_RECEIPT)
	ev[0].Fflags = unix.NOTE_TRIGGER
	setUdata(&ev[0], api.NotifyKey)
	return b.submit(ev)
}

func (userNotifier) deregister(b *kqueueBackend) error {
	ev := make([]unix.Kevent_t, 1)
	unix.SetKevent(&ev[0], 0, unix.EVFILT_USER, unix.EV_DELETE|unix.EV_RECEIPT)
	setUdata(&ev[0], api.NotifyKey)
	return b.submit(ev)
}

func (userNotifier) hasFD(uintptr) bool { return false }

func (userNotifier) close() error { return nil }
