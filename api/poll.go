// Package api
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral registration contract implemented by the per-platform
// poll backends and by test fakes.

package api

// Registrar is the non-blocking surface of a poll backend: everything a
// caller may invoke from any thread, including while another thread is
// blocked retrieving events.
//
// Handles are raw OS-level descriptor or handle values owned by the
// caller; the backend owns only the kernel-side registration metadata.
// Registrations must be deleted before the underlying handle is closed,
// or the stale kernel entry is tolerated (treated as already removed) on
// a later Delete.
type Registrar interface {
	// Add registers new interest in a handle. Backends without a separate
	// "create" step implement Add identically to Modify.
	Add(fd uintptr, ev Event, mode PollMode) error

	// Modify replaces the interest and trigger mode of an existing
	// registration. Each direction is armed or disarmed independently, so
	// one call may enable reads while disabling writes.
	Modify(fd uintptr, ev Event, mode PollMode) error

	// Delete disarms both directions. Deleting a handle with no current
	// registration succeeds.
	Delete(fd uintptr) error

	// Notify wakes at most one in-progress or future wait. Safe to call
	// from any thread; best-effort, failures are swallowed. Concurrent
	// calls may coalesce into a single wake.
	Notify()

	// SupportsLevel reports whether level-triggered registrations work.
	SupportsLevel() bool

	// SupportsEdge reports whether edge-triggered registrations work.
	SupportsEdge() bool
}
