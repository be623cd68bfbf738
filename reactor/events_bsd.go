//go:build darwin || dragonfly || freebsd || openbsd
// +build darwin dragonfly freebsd openbsd

// File: reactor/events_bsd.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Reusable fired-event buffer and lazy iterator for the kqueue backend.

package reactor

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-poller/api"
)

// Events is an owned, capacity-preallocated buffer of raw kevent records.
// It is reused across Wait calls; each Wait replaces (never appends to)
// its logical contents. The buffer performs no internal locking: it must
// be owned exclusively by the waiting thread for the call's duration.
type Events struct {
	raw []unix.Kevent_t
	n   int
}

// NewEvents preallocates the default batch capacity.
func NewEvents() *Events {
	return NewEventsCapacity(DefaultEventCapacity)
}

// NewEventsCapacity preallocates room for up to capacity raw records.
func NewEventsCapacity(capacity int) *Events {
	if capacity <= 0 {
		capacity = DefaultEventCapacity
	}
	return &Events{raw: make([]unix.Kevent_t, capacity)}
}

// Len returns the number of raw records retrieved by the last Wait,
// including internal notification records hidden from iteration.
func (e *Events) Len() int { return e.n }

// Cap returns the batch capacity.
func (e *Events) Cap() int { return len(e.raw) }

// Clear drops the buffered records.
func (e *Events) Clear() { e.n = 0 }

// Iter returns a fresh iterator over the translated events of the last
// Wait. It may be called any number of times against the same snapshot
// and does not mutate the buffer.
func (e *Events) Iter() *Iterator {
	return &Iterator{events: e}
}

// Iterator walks an Events snapshot lazily, translating raw records on
// demand and skipping records that carry the reserved notification key.
type Iterator struct {
	events *Events
	idx    int
}

// Next returns the next translated event, or ok=false when exhausted.
func (it *Iterator) Next() (api.Event, bool) {
	for it.idx < it.events.n {
		raw := &it.events.raw[it.idx]
		it.idx++
		ev := translateKevent(raw)
		if isNotifyKey(ev.Key) {
			continue
		}
		return ev, true
	}
	return api.Event{}, false
}

// translateKevent maps one raw record onto the interest model.
func translateKevent(ev *unix.Kevent_t) api.Event {
	out := api.Event{Key: getUdata(ev)}
	switch ev.Filter {
	case unix.EVFILT_READ:
		out.Readable = true
		// Closing the read side of a pipe wakes blocked writers, but the
		// kernel reports it on the read filter with EV_EOF set. Translate
		// it into a writable signal or writers would hang.
		//
		// https://github.com/golang/go/commit/23aad448b1e3f7c3b4ba2af90120bde91ac865b4
		if ev.Flags&unix.EV_EOF != 0 {
			out.Writable = true
		}
	case unix.EVFILT_WRITE:
		out.Writable = true
	case unix.EVFILT_VNODE, unix.EVFILT_PROC, unix.EVFILT_SIGNAL, unix.EVFILT_TIMER:
		// Generic non-socket event sources surface through the readable
		// channel.
		out.Readable = true
	}
	return out
}

// setUdata stores the registration key in a record's user-data slot.
func setUdata(ev *unix.Kevent_t, key uint64) {
	ev.Udata = (*byte)(unsafe.Pointer(uintptr(key)))
}

// getUdata recovers the registration key from a record. Keys are carried
// in a pointer-width slot, so on 32-bit targets they truncate to 32 bits.
func getUdata(ev *unix.Kevent_t) uint64 {
	return uint64(uintptr(unsafe.Pointer(ev.Udata)))
}

// isNotifyKey matches a recovered key against the reserved key after the
// same pointer-width truncation the user-data slot applies.
func isNotifyKey(key uint64) bool {
	reserved := api.NotifyKey
	return key == uint64(uintptr(reserved))
}
