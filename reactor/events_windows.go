//go:build windows
// +build windows

// File: reactor/events_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Reusable completion-entry buffer and lazy iterator for the
// completion-port backend.

package reactor

import (
	"github.com/momentics/hioload-poller/api"
	"github.com/momentics/hioload-poller/internal/iocp"
)

// Flag bits carried in the transferred-byte count of synthetic packets.
const (
	syntheticReadable = 0x1
	syntheticWritable = 0x2
)

// notifyCompletionKey is the reserved key truncated to the completion
// key width.
var notifyCompletionKey = func() uintptr {
	k := api.NotifyKey
	return uintptr(k)
}()

// Events is an owned, capacity-preallocated buffer of raw
// completion-port entry records, reused across Wait calls. No internal
// locking: the waiting thread must own it exclusively for the call's
// duration.
type Events struct {
	raw []iocp.OverlappedEntry
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
	return &Events{raw: make([]iocp.OverlappedEntry, capacity)}
}

// Len returns the number of raw records retrieved by the last Wait,
// including internal notification records hidden from iteration.
func (e *Events) Len() int { return e.n }

// Cap returns the batch capacity.
func (e *Events) Cap() int { return len(e.raw) }

// Clear drops the buffered records.
func (e *Events) Clear() { e.n = 0 }

// Iter returns a fresh iterator over the translated events of the last
// Wait. Restartable; does not mutate the buffer.
func (e *Events) Iter() *Iterator {
	return &Iterator{events: e}
}

// Iterator walks an Events snapshot lazily, skipping records that carry
// the reserved notification key.
type Iterator struct {
	events *Events
	idx    int
}

// Next returns the next translated event, or ok=false when exhausted.
func (it *Iterator) Next() (api.Event, bool) {
	for it.idx < it.events.n {
		raw := &it.events.raw[it.idx]
		it.idx++
		if raw.CompletionKey == notifyCompletionKey {
			continue
		}
		return translateEntry(raw), true
	}
	return api.Event{}, false
}

// translateEntry maps one completion entry onto the interest model.
// Synthetic packets (no control block) carry their direction in the
// transferred-byte count; real completions surface through the readable
// channel, direction being implied by the operation the caller
// submitted.
func translateEntry(e *iocp.OverlappedEntry) api.Event {
	out := api.Event{Key: uint64(e.CompletionKey)}
	if e.Overlapped == nil {
		out.Readable = e.BytesTransferred&syntheticReadable != 0
		out.Writable = e.BytesTransferred&syntheticWritable != 0
		return out
	}
	out.Readable = true
	return out
}
