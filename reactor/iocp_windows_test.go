//go:build windows
// +build windows

// File: reactor/iocp_windows_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package reactor

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/sys/windows"

	"github.com/momentics/hioload-poller/api"
	"github.com/momentics/hioload-poller/internal/iocp"
)

func newTestBackend(t *testing.T) Backend {
	t.Helper()
	b, err := NewBackend()
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func newTestSocket(t *testing.T) uintptr {
	t.Helper()
	var d windows.WSAData
	if err := windows.WSAStartup(uint32(0x202), &d); err != nil {
		t.Fatalf("wsastartup: %v", err)
	}
	s, err := windows.WSASocket(windows.AF_INET, windows.SOCK_STREAM, windows.IPPROTO_TCP,
		nil, 0, windows.WSA_FLAG_OVERLAPPED)
	if err != nil {
		t.Fatalf("socket: %v", err)
	}
	t.Cleanup(func() { windows.Closesocket(s) })
	return uintptr(s)
}

func collect(e *Events) []api.Event {
	var out []api.Event
	it := e.Iter()
	for ev, ok := it.Next(); ok; ev, ok = it.Next() {
		out = append(out, ev)
	}
	return out
}

// TestCrossThreadWake: a blocked wait unblocks on notify with no
// caller-visible events.
func TestCrossThreadWake(t *testing.T) {
	b := newTestBackend(t)

	go func() {
		time.Sleep(50 * time.Millisecond)
		b.Notify()
	}()

	events := NewEvents()
	start := time.Now()
	if err := b.Wait(events, -1); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("wake took too long: %v", elapsed)
	}
	if got := collect(events); len(got) != 0 {
		t.Errorf("wake must not surface caller-visible events, got %v", got)
	}
}

// TestNotifyCoalesces: repeated notifies before a wait produce a single
// wake entry.
func TestNotifyCoalesces(t *testing.T) {
	b := newTestBackend(t)

	b.Notify()
	b.Notify()
	b.Notify()

	events := NewEvents()
	if err := b.Wait(events, time.Second); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if events.Len() != 1 {
		t.Errorf("expected one coalesced wake entry, got %d", events.Len())
	}

	// The latch is consumed; the next wait times out quietly.
	if err := b.Wait(events, 100*time.Millisecond); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	if events.Len() != 0 {
		t.Errorf("expected no further wake entries, got %d", events.Len())
	}
}

// TestPostEventDelivery: synthetic packets carry direction flags through
// the port.
func TestPostEventDelivery(t *testing.T) {
	b := newTestBackend(t)
	wb := b.(*windowsBackend)

	if err := wb.PostEvent(api.WritableEvent(5)); err != nil {
		t.Fatalf("post event: %v", err)
	}

	events := NewEvents()
	if err := b.Wait(events, time.Second); err != nil {
		t.Fatalf("wait: %v", err)
	}
	got := collect(events)
	if len(got) != 1 {
		t.Fatalf("expected one event, got %v", got)
	}
	if got[0].Key != 5 || got[0].Readable || !got[0].Writable {
		t.Errorf("unexpected event %+v", got[0])
	}
}

// TestTimeoutFidelity: an idle port times out with zero events.
func TestTimeoutFidelity(t *testing.T) {
	b := newTestBackend(t)

	events := NewEvents()
	start := time.Now()
	if err := b.Wait(events, 100*time.Millisecond); err != nil {
		t.Fatalf("wait: %v", err)
	}
	elapsed := time.Since(start)
	if elapsed < 80*time.Millisecond {
		t.Errorf("wait returned early after %v", elapsed)
	}
	if got := collect(events); len(got) != 0 {
		t.Errorf("expected zero events on timeout, got %v", got)
	}
}

// TestDeleteIdempotent: forgetting unknown handles succeeds.
func TestDeleteIdempotent(t *testing.T) {
	b := newTestBackend(t)
	if err := b.Delete(12345); err != nil {
		t.Errorf("delete of unknown handle should succeed, got %v", err)
	}
}

// TestReservedKeyRejected: the notification key is not assignable.
func TestReservedKeyRejected(t *testing.T) {
	b := newTestBackend(t)
	if err := b.Add(1, api.ReadableEvent(api.NotifyKey), api.ModeOneshot); err != api.ErrReservedKey {
		t.Errorf("expected ErrReservedKey, got %v", err)
	}
}

// TestDuplicateKeyRejected: one completion key maps to at most one
// associated handle at a time.
func TestDuplicateKeyRejected(t *testing.T) {
	b := newTestBackend(t)
	s1 := newTestSocket(t)
	s2 := newTestSocket(t)

	if err := b.Add(s1, api.ReadableEvent(9), api.ModeOneshot); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := b.Add(s2, api.ReadableEvent(9), api.ModeOneshot); !errors.Is(err, api.ErrInvalidArgument) {
		t.Errorf("expected duplicate key rejection, got %v", err)
	}

	// Deleting the holder releases the key for the next handle.
	if err := b.Delete(s1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := b.Add(s2, api.ReadableEvent(9), api.ModeOneshot); err != nil {
		t.Errorf("add after release: %v", err)
	}
}

// TestModifyModeRestriction: mode limits apply on the modify path too.
func TestModifyModeRestriction(t *testing.T) {
	b := newTestBackend(t)
	s := newTestSocket(t)

	if err := b.Add(s, api.ReadableEvent(4), api.ModeOneshot); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := b.Modify(s, api.ReadableEvent(4), api.ModeLevel); !errors.Is(err, api.ErrNotSupported) {
		t.Errorf("expected ErrNotSupported for level mode, got %v", err)
	}
	if err := b.Modify(s, api.ReadableEvent(4), api.ModeOneshot); err != nil {
		t.Errorf("oneshot modify should succeed, got %v", err)
	}
}

// TestClosedBackend: operations after Close report ErrClosed.
func TestClosedBackend(t *testing.T) {
	b := newTestBackend(t)

	if err := b.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := b.Add(1, api.ReadableEvent(1), api.ModeOneshot); !errors.Is(err, api.ErrClosed) {
		t.Errorf("add after close: expected ErrClosed, got %v", err)
	}
	if err := b.Delete(1); !errors.Is(err, api.ErrClosed) {
		t.Errorf("delete after close: expected ErrClosed, got %v", err)
	}
	if err := b.Wait(NewEvents(), 0); !errors.Is(err, api.ErrClosed) {
		t.Errorf("wait after close: expected ErrClosed, got %v", err)
	}
	if err := b.Close(); !errors.Is(err, api.ErrClosed) {
		t.Errorf("second close: expected ErrClosed, got %v", err)
	}
}

// TestWaitNilBuffer: a missing event buffer is rejected up front.
func TestWaitNilBuffer(t *testing.T) {
	b := newTestBackend(t)
	if err := b.Wait(nil, 0); !errors.Is(err, api.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

// TestWaitTimeoutConversion checks the millisecond mapping, including
// the clamp that keeps long finite timeouts from aliasing infinity.
func TestWaitTimeoutConversion(t *testing.T) {
	if got := waitTimeoutMs(-1); got != uint32(iocp.InfiniteTimeout) {
		t.Errorf("negative timeout: expected infinite, got %d", got)
	}
	if got := waitTimeoutMs(0); got != 0 {
		t.Errorf("zero timeout: expected 0, got %d", got)
	}
	if got := waitTimeoutMs(500 * time.Microsecond); got != 1 {
		t.Errorf("sub-millisecond timeout: expected 1, got %d", got)
	}
	if got := waitTimeoutMs(100 * 24 * time.Hour); got != uint32(iocp.InfiniteTimeout)-1 {
		t.Errorf("long timeout: expected clamp below infinite, got %d", got)
	}
}

// TestCapabilities: the completion model supports neither trigger style.
func TestCapabilities(t *testing.T) {
	b := newTestBackend(t)
	if b.SupportsLevel() || b.SupportsEdge() {
		t.Error("completion-port backend must report no level/edge support")
	}
}

// TestTranslateSyntheticEntry checks direction decoding of posted
// packets.
func TestTranslateSyntheticEntry(t *testing.T) {
	e := &iocp.OverlappedEntry{
		CompletionKey:    9,
		BytesTransferred: syntheticReadable | syntheticWritable,
	}
	got := translateEntry(e)
	if got.Key != 9 || !got.Readable || !got.Writable {
		t.Errorf("unexpected translation %+v", got)
	}
}
