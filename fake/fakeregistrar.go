// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"sync"

	"github.com/willf/bitset"

	"github.com/momentics/hioload-poller/api"
)

// Registration is the recorded interest of one handle.
type Registration struct {
	Event api.Event
	Mode  api.PollMode
}

// Registrar provides a test/dummy api.Registrar with an in-memory
// registration table and a latched notification flag, mirroring the
// semantics real backends guarantee: idempotent delete, independent
// direction re-arming, oneshot interest clearing and coalesced wakes.
type Registrar struct {
	mu    sync.Mutex
	fds   *bitset.BitSet
	regs  map[uintptr]Registration
	wake  bool
	wakes int

	level bool
	edge  bool
}

// NewRegistrar creates a fake supporting both trigger capabilities.
func NewRegistrar() *Registrar {
	return &Registrar{
		fds:   bitset.New(64),
		regs:  make(map[uintptr]Registration),
		level: true,
		edge:  true,
	}
}

// SetCapabilities overrides the reported trigger support.
func (r *Registrar) SetCapabilities(level, edge bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.level, r.edge = level, edge
}

// Add records new interest.
func (r *Registrar) Add(fd uintptr, ev api.Event, mode api.PollMode) error {
	return r.Modify(fd, ev, mode)
}

// Modify replaces the recorded interest, dropping the registration
// entirely when both directions are disarmed.
func (r *Registrar) Modify(fd uintptr, ev api.Event, mode api.PollMode) error {
	if ev.Key == api.NotifyKey {
		return api.ErrReservedKey
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !ev.Readable && !ev.Writable {
		delete(r.regs, fd)
		r.fds.Clear(uint(fd))
		return nil
	}
	r.regs[fd] = Registration{Event: ev, Mode: mode}
	r.fds.Set(uint(fd))
	return nil
}

// Delete disarms both directions; unknown handles succeed.
func (r *Registrar) Delete(fd uintptr) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.regs, fd)
	r.fds.Clear(uint(fd))
	return nil
}

// Notify latches a wake; concurrent calls coalesce.
func (r *Registrar) Notify() {
	r.mu.Lock()
	r.wake = true
	r.wakes++
	r.mu.Unlock()
}

// SupportsLevel reports the configured capability.
func (r *Registrar) SupportsLevel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.level
}

// SupportsEdge reports the configured capability.
func (r *Registrar) SupportsEdge() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.edge
}

// Registered reports whether fd currently holds interest.
func (r *Registrar) Registered(fd uintptr) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fds.Test(uint(fd))
}

// Registration returns the recorded interest for fd.
func (r *Registrar) Registration(fd uintptr) (Registration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.regs[fd]
	return reg, ok
}

// Fire simulates one firing of fd's registration, applying the trigger
// mode's re-arm rule: oneshot modes clear the interest.
func (r *Registrar) Fire(fd uintptr) (api.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.regs[fd]
	if !ok {
		return api.Event{}, false
	}
	if reg.Mode == api.ModeOneshot || reg.Mode == api.ModeEdgeOneshot {
		delete(r.regs, fd)
		r.fds.Clear(uint(fd))
	}
	return reg.Event, true
}

// TakeWake consumes the latched wake, reporting whether one was pending.
func (r *Registrar) TakeWake() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	pending := r.wake
	r.wake = false
	return pending
}

// Wakes returns the total Notify call count.
func (r *Registrar) Wakes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.wakes
}
