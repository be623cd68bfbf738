//go:build darwin || dragonfly || freebsd || openbsd
// +build darwin dragonfly freebsd openbsd

// File: reactor/kqueue_bsd.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// kqueue(2)-based event-notification backend for the BSD family.
// Registration changes are submitted as batched change lists with
// EV_RECEIPT so per-entry status codes can be verified.

package reactor

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-poller/api"
	"github.com/momentics/hioload-poller/control"
)

// resourceError wraps a native setup failure in the structured taxonomy,
// carrying the raw errno when the kernel reported one.
func resourceError(msg string, err error) error {
	e := api.NewError(api.ErrCodeResource, msg+": "+err.Error())
	var errno unix.Errno
	if errors.As(err, &errno) {
		return e.WithErrno(int(errno))
	}
	return e
}

// notifier is the self-notification capability implemented once per
// platform variant: EVFILT_USER where the kernel supports it, a
// non-blocking socket pair elsewhere. The backend is written against
// this interface, not against either concrete variant.
type notifier interface {
	// register adds the notification source under api.NotifyKey.
	register(b *kqueueBackend) error

	// reregister is called unconditionally after every wait returns.
	reregister(b *kqueueBackend) error

	// notify wakes the current or next wait.
	notify(b *kqueueBackend) error

	// deregister removes the notification source from the kernel queue.
	deregister(b *kqueueBackend) error

	// hasFD reports whether fd belongs to the notification channel.
	hasFD(fd uintptr) bool

	// close releases any descriptors owned by the channel.
	close() error
}

// kqueueBackend owns one kqueue descriptor. Registrar methods are plain
// kevent calls and are safe to invoke from any thread, including while
// another thread is blocked in Wait.
type kqueueBackend struct {
	kq     int
	notify notifier
	stats  *control.Stats
	closed atomic.Bool
}

// NewBackend creates the kqueue backend: native queue descriptor marked
// close-on-exec, plus a registered self-notification channel.
func NewBackend(opts ...Option) (Backend, error) {
	cfg := newConfig(opts)

	kq, err := unix.Kqueue()
	if err != nil {
		return nil, resourceError("kqueue create", err)
	}
	unix.CloseOnExec(kq)

	b := &kqueueBackend{kq: kq, stats: cfg.stats}

	n, err := newNotifier()
	if err != nil {
		unix.Close(kq)
		return nil, resourceError("notifier create", err)
	}
	b.notify = n

	if err := n.register(b); err != nil {
		n.close()
		unix.Close(kq)
		return nil, resourceError("notifier register", err)
	}

	if cfg.probes != nil {
		cfg.probes.RegisterProbe("backend.kind", func() any { return "kqueue" })
		cfg.probes.RegisterProbe("kqueue.fd", func() any { return b.kq })
	}
	return b, nil
}

// SupportsLevel reports level-triggered capability.
func (b *kqueueBackend) SupportsLevel() bool { return true }

// SupportsEdge reports edge-triggered capability.
func (b *kqueueBackend) SupportsEdge() bool { return true }

// Fd returns the raw kqueue descriptor.
func (b *kqueueBackend) Fd() uintptr { return uintptr(b.kq) }

// Add registers new interest. kqueue needs no separate create step, so
// registering interest in an unknown handle both creates and arms it.
func (b *kqueueBackend) Add(fd uintptr, ev api.Event, mode api.PollMode) error {
	return b.Modify(fd, ev, mode)
}

// Modify replaces the interest and mode of a registration. Each
// direction is armed or disarmed independently and both instructions go
// to the kernel as one batched change list.
func (b *kqueueBackend) Modify(fd uintptr, ev api.Event, mode api.PollMode) error {
	if b.closed.Load() {
		return api.ErrClosed
	}
	if ev.Key == api.NotifyKey || b.notify.hasFD(fd) {
		return api.ErrReservedKey
	}
	b.stats.AddRegistration()
	return b.modify(fd, ev, mode)
}

// modify is the unguarded registration path shared with the notifier.
func (b *kqueueBackend) modify(fd uintptr, ev api.Event, mode api.PollMode) error {
	flags := modeFlags(mode)

	readFlags := unix.EV_DELETE
	if ev.Readable {
		readFlags = unix.EV_ADD | flags
	}
	writeFlags := unix.EV_DELETE
	if ev.Writable {
		writeFlags = unix.EV_ADD | flags
	}

	changes := make([]unix.Kevent_t, 2)
	unix.SetKevent(&changes[0], int(fd), unix.EVFILT_READ, readFlags|unix.EV_RECEIPT)
	unix.SetKevent(&changes[1], int(fd), unix.EVFILT_WRITE, writeFlags|unix.EV_RECEIPT)
	setUdata(&changes[0], ev.Key)
	setUdata(&changes[1], ev.Key)

	return b.submit(changes)
}

// Delete disarms both directions. A handle the kernel no longer knows
// about is tolerated, so delete is idempotent.
func (b *kqueueBackend) Delete(fd uintptr) error {
	if b.closed.Load() {
		return api.ErrClosed
	}
	if b.notify.hasFD(fd) {
		return api.ErrReservedKey
	}
	b.stats.AddDeregistration()
	return b.modify(fd, api.Event{}, api.ModeOneshot)
}

// submit pushes a change list to the kernel and verifies the per-entry
// receipts. An entry reporting an error fails the whole call, except
// ENOENT (interest the kernel already dropped, e.g. a closed handle) and
// EPIPE (a vanished pipe peer): both reflect races the caller cannot act
// on and are treated as success.
//
// EPIPE rationale: https://github.com/tokio-rs/mio/issues/582
func (b *kqueueBackend) submit(changes []unix.Kevent_t) error {
	receipts := make([]unix.Kevent_t, len(changes))
	ts := unix.Timespec{}
	n, err := unix.Kevent(b.kq, changes, receipts, &ts)
	if err != nil {
		return fmt.Errorf("kevent submit: %w", err)
	}
	for i := 0; i < n; i++ {
		ev := &receipts[i]
		if ev.Flags&unix.EV_ERROR != 0 && ev.Data != 0 &&
			ev.Data != int64(unix.ENOENT) && ev.Data != int64(unix.EPIPE) {
			return fmt.Errorf("kevent change: %w", unix.Errno(ev.Data))
		}
	}
	return nil
}

// Wait blocks until events fire or the timeout elapses, then replaces
// the buffer's contents and re-arms the notification channel.
func (b *kqueueBackend) Wait(events *Events, timeout time.Duration) error {
	if b.closed.Load() {
		return api.ErrClosed
	}
	if events == nil {
		return api.ErrInvalidArgument
	}

	var ts *unix.Timespec
	if timeout >= 0 {
		t := unix.NsecToTimespec(timeout.Nanoseconds())
		ts = &t
	}

	events.n = 0
	for {
		n, err := unix.Kevent(b.kq, nil, events.raw, ts)
		if err == unix.EINTR {
			// Retried with the original timeout, like the Go runtime's
			// own netpoller.
			continue
		}
		if err != nil {
			return fmt.Errorf("kevent wait: %w", err)
		}
		events.n = n
		break
	}

	b.stats.AddWait()
	b.stats.AddEventsDelivered(events.n)

	// The pipe-backed notifier is armed oneshot; re-arm before returning
	// so a subsequent wake is not lost.
	if err := b.notify.reregister(b); err != nil {
		return fmt.Errorf("notifier reregister: %w", err)
	}
	return nil
}

// Notify wakes at most one in-progress or future Wait. Best-effort:
// failure to wake is not catastrophic, so errors are swallowed.
func (b *kqueueBackend) Notify() {
	if b.closed.Load() {
		return
	}
	b.stats.AddWakeup()
	_ = b.notify.notify(b)
}

// Close deregisters the notification channel and closes the queue.
// Closing twice reports ErrClosed.
func (b *kqueueBackend) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return api.ErrClosed
	}
	_ = b.notify.deregister(b)
	_ = b.notify.close()
	return unix.Close(b.kq)
}

// modeFlags maps a trigger mode onto kevent flag bits.
func modeFlags(mode api.PollMode) int {
	switch mode {
	case api.ModeLevel:
		return 0
	case api.ModeEdge:
		return unix.EV_CLEAR
	case api.ModeEdgeOneshot:
		return unix.EV_ONESHOT | unix.EV_CLEAR
	default:
		return unix.EV_ONESHOT
	}
}
