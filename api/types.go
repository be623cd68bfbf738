// File: api/types.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Core interest model shared by all poll backends: event keys,
// readable/writable interest flags and trigger modes.

package api

// NotifyKey is the event key reserved for the backend's internal
// self-notification channel. Callers must never register interest under
// this key; events carrying it are consumed by the backend and are not
// visible through event iteration.
const NotifyKey = ^uint64(0)

// Event describes the interest in, or the reported state of, a single
// registration. Key is an opaque caller-chosen identifier echoed back
// verbatim on every firing. Readable and Writable are independent; both
// may be set at once.
type Event struct {
	Key      uint64
	Readable bool
	Writable bool
}

// ReadableEvent returns interest in read-readiness only.
func ReadableEvent(key uint64) Event {
	return Event{Key: key, Readable: true}
}

// WritableEvent returns interest in write-readiness only.
func WritableEvent(key uint64) Event {
	return Event{Key: key, Writable: true}
}

// AllEvent returns interest in both directions.
func AllEvent(key uint64) Event {
	return Event{Key: key, Readable: true, Writable: true}
}

// NoEvent returns empty interest; registering it disarms both directions.
func NoEvent(key uint64) Event {
	return Event{Key: key}
}

// PollMode governs how a registration re-arms after firing.
type PollMode int

const (
	// ModeOneshot clears the registration's interest after one firing;
	// the caller must re-register to receive further events.
	ModeOneshot PollMode = iota

	// ModeLevel keeps firing on every wait while the condition holds.
	ModeLevel

	// ModeEdge fires once per transition into the ready state.
	ModeEdge

	// ModeEdgeOneshot fires once on an edge, then requires re-registration.
	ModeEdgeOneshot
)

// String returns the mode name for diagnostics.
func (m PollMode) String() string {
	switch m {
	case ModeOneshot:
		return "oneshot"
	case ModeLevel:
		return "level"
	case ModeEdge:
		return "edge"
	case ModeEdgeOneshot:
		return "edge-oneshot"
	default:
		return "unknown"
	}
}
