//go:build windows
// +build windows

// File: reactor/iocp_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Completion-port backend built on the internal/iocp primitive layer.
// Registration is association-based: a handle joins the port under the
// caller's key and every completion of an operation submitted against it
// surfaces through Wait. Cross-thread wake-up posts a synthetic entry
// under the reserved key.

package reactor

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/eapache/queue"
	"github.com/willf/bitset"
	"golang.org/x/sys/windows"

	"github.com/momentics/hioload-poller/api"
	"github.com/momentics/hioload-poller/control"
	"github.com/momentics/hioload-poller/internal/iocp"
)

// resourceError wraps a native setup failure in the structured taxonomy,
// carrying the raw error code when the system reported one.
func resourceError(msg string, err error) error {
	e := api.NewError(api.ErrCodeResource, msg+": "+err.Error())
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return e.WithErrno(int(errno))
	}
	return e
}

// packet is a synthetic completion waiting to be re-posted after a
// failed manual post.
type packet struct {
	key   uintptr
	flags uint32
}

// windowsBackend owns one completion port.
type windowsBackend struct {
	port  windows.Handle
	stats *control.Stats

	mu      sync.Mutex
	keys    map[uintptr]uintptr // handle -> completion key
	inUse   *bitset.BitSet      // completion keys currently associated
	pending *queue.Queue        // deferred packets, guarded by mu

	notified atomic.Bool
	closed   atomic.Bool
}

// NewBackend creates the completion-port backend.
func NewBackend(opts ...Option) (Backend, error) {
	cfg := newConfig(opts)

	port, err := iocp.NewPort()
	if err != nil {
		return nil, resourceError("completion port create", err)
	}

	b := &windowsBackend{
		port:    port,
		stats:   cfg.stats,
		keys:    make(map[uintptr]uintptr),
		inUse:   bitset.New(64),
		pending: queue.New(),
	}

	if cfg.probes != nil {
		cfg.probes.RegisterProbe("backend.kind", func() any { return "iocp" })
		cfg.probes.RegisterProbe("iocp.pending", func() any {
			b.mu.Lock()
			defer b.mu.Unlock()
			return b.pending.Length()
		})
	}
	return b, nil
}

// SupportsLevel reports level-triggered capability. The completion model
// delivers one entry per finished operation, so level semantics are not
// available.
func (b *windowsBackend) SupportsLevel() bool { return false }

// SupportsEdge reports edge-triggered capability.
func (b *windowsBackend) SupportsEdge() bool { return false }

// Add associates a handle with the port under the event's key. Sockets
// are resolved to their base provider handle first; redundant port
// notification for synchronously completing operations is suppressed.
// A key already associated with another handle is rejected, so every
// delivered completion maps back to exactly one registration.
func (b *windowsBackend) Add(fd uintptr, ev api.Event, mode api.PollMode) error {
	if b.closed.Load() {
		return api.ErrClosed
	}
	if ev.Key == api.NotifyKey {
		return api.ErrReservedKey
	}
	if mode != api.ModeOneshot {
		return api.ErrNotSupported
	}

	handle := windows.Handle(fd)
	if base, err := iocp.BaseSocket(handle); err == nil {
		handle = base
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inUse.Test(uint(ev.Key)) {
		return api.NewError(api.ErrCodeInvalidArgument, "completion key already in use")
	}

	if err := iocp.Associate(b.port, handle, uintptr(ev.Key)); err != nil {
		return fmt.Errorf("completion port associate: %w", err)
	}
	// Best-effort: not every handle kind accepts notification modes.
	_ = iocp.SetCompletionModes(handle, iocp.FileSkipSetEventOnHandle)

	b.keys[fd] = uintptr(ev.Key)
	b.inUse.Set(uint(ev.Key))

	b.stats.AddRegistration()
	return nil
}

// Modify re-registers an unknown handle, and accepts interest changes
// for a known one as long as the key stays put: an association's key
// cannot change until the handle is closed.
func (b *windowsBackend) Modify(fd uintptr, ev api.Event, mode api.PollMode) error {
	if b.closed.Load() {
		return api.ErrClosed
	}
	if ev.Key == api.NotifyKey {
		return api.ErrReservedKey
	}
	if mode != api.ModeOneshot {
		return api.ErrNotSupported
	}

	b.mu.Lock()
	key, ok := b.keys[fd]
	b.mu.Unlock()

	if !ok {
		return b.Add(fd, ev, mode)
	}
	if key != uintptr(ev.Key) {
		return api.ErrNotSupported
	}
	b.stats.AddRegistration()
	return nil
}

// Delete forgets the handle. The port association itself dissolves when
// the caller closes the handle; deleting an unknown handle succeeds.
func (b *windowsBackend) Delete(fd uintptr) error {
	if b.closed.Load() {
		return api.ErrClosed
	}
	b.mu.Lock()
	if key, ok := b.keys[fd]; ok {
		b.inUse.Clear(uint(key))
		delete(b.keys, fd)
	}
	b.mu.Unlock()
	b.stats.AddDeregistration()
	return nil
}

// PostEvent queues a synthetic completion carrying the given event,
// waking a pending Wait. Used by layers above for deferred readiness
// and error delivery. A failed post is retried before the next Wait
// blocks.
func (b *windowsBackend) PostEvent(ev api.Event) error {
	if b.closed.Load() {
		return api.ErrClosed
	}
	if ev.Key == api.NotifyKey {
		return api.ErrReservedKey
	}
	var flags uint32
	if ev.Readable {
		flags |= syntheticReadable
	}
	if ev.Writable {
		flags |= syntheticWritable
	}
	pk := packet{key: uintptr(ev.Key), flags: flags}
	if err := iocp.Post(b.port, pk.flags, pk.key, nil); err != nil {
		b.mu.Lock()
		b.pending.Add(pk)
		b.mu.Unlock()
		return nil
	}
	return nil
}

// Wait retrieves a batch of completion entries, replacing the buffer's
// contents. Timeout expiry returns normally with zero events.
func (b *windowsBackend) Wait(events *Events, timeout time.Duration) error {
	if b.closed.Load() {
		return api.ErrClosed
	}
	if events == nil {
		return api.ErrInvalidArgument
	}
	b.flushPending()

	timeoutMs := waitTimeoutMs(timeout)

	events.n = 0
	n, err := iocp.GetCompletions(b.port, events.raw, timeoutMs, false)
	if err != nil {
		if iocp.IsTimeout(err) {
			b.stats.AddWait()
			return nil
		}
		return fmt.Errorf("completion retrieve: %w", err)
	}
	events.n = n

	for i := 0; i < n; i++ {
		if events.raw[i].CompletionKey == notifyCompletionKey {
			b.notified.Store(false)
		}
	}

	b.stats.AddWait()
	b.stats.AddEventsDelivered(n)
	return nil
}

// Notify wakes at most one in-progress or future Wait. Concurrent calls
// coalesce: the wake is latched until a Wait consumes it. Best-effort,
// errors are swallowed.
func (b *windowsBackend) Notify() {
	if b.closed.Load() {
		return
	}
	b.stats.AddWakeup()
	if !b.notified.CompareAndSwap(false, true) {
		return
	}
	if err := iocp.Post(b.port, 0, notifyCompletionKey, nil); err != nil {
		b.mu.Lock()
		b.pending.Add(packet{key: notifyCompletionKey})
		b.mu.Unlock()
	}
}

// flushPending retries deferred posts that failed earlier.
func (b *windowsBackend) flushPending() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.pending.Length() > 0 {
		pk := b.pending.Peek().(packet)
		if err := iocp.Post(b.port, pk.flags, pk.key, nil); err != nil {
			return
		}
		b.pending.Remove()
	}
}

// waitTimeoutMs converts a wait timeout to the millisecond form the
// retrieval call takes. Negative means block forever. Sub-millisecond
// positive timeouts round up so they still block, and very long ones
// clamp just below the infinite marker instead of aliasing it.
func waitTimeoutMs(timeout time.Duration) uint32 {
	if timeout < 0 {
		return uint32(iocp.InfiniteTimeout)
	}
	ms := timeout.Milliseconds()
	if ms == 0 && timeout > 0 {
		ms = 1
	}
	if ms >= int64(iocp.InfiniteTimeout) {
		ms = int64(iocp.InfiniteTimeout) - 1
	}
	return uint32(ms)
}

// Close releases the completion port. Closing twice reports ErrClosed.
func (b *windowsBackend) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return api.ErrClosed
	}
	return iocp.CloseHandle(b.port)
}
