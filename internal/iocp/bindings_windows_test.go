//go:build windows
// +build windows

// File: internal/iocp/bindings_windows_test.go
// Author: momentics <momentics@gmail.com>

package iocp

import (
	"testing"
	"unsafe"

	"golang.org/x/sys/windows"
)

// TestOverlappedLayout pins the control block to the OS layout.
func TestOverlappedLayout(t *testing.T) {
	if unsafe.Sizeof(Overlapped{}) != unsafe.Sizeof(windows.Overlapped{}) {
		t.Fatalf("Overlapped size %d does not match OS layout %d",
			unsafe.Sizeof(Overlapped{}), unsafe.Sizeof(windows.Overlapped{}))
	}

	var o Overlapped
	var w windows.Overlapped
	if unsafe.Offsetof(o.Internal) != unsafe.Offsetof(w.Internal) {
		t.Error("Internal offset mismatch")
	}
	if unsafe.Offsetof(o.InternalHigh) != unsafe.Offsetof(w.InternalHigh) {
		t.Error("InternalHigh offset mismatch")
	}
	if unsafe.Offsetof(o.anonymous) != unsafe.Offsetof(w.Offset) {
		t.Error("union region offset mismatch")
	}
	if unsafe.Offsetof(o.HEvent) != unsafe.Offsetof(w.HEvent) {
		t.Error("HEvent offset mismatch")
	}
}

// TestOverlappedEntryLayout pins the entry record field offsets.
func TestOverlappedEntryLayout(t *testing.T) {
	var e OverlappedEntry
	ptr := unsafe.Sizeof(uintptr(0))

	if unsafe.Offsetof(e.Overlapped) != ptr {
		t.Error("Overlapped pointer offset mismatch")
	}
	if unsafe.Offsetof(e.Internal) != 2*ptr {
		t.Error("Internal offset mismatch")
	}
	if unsafe.Offsetof(e.BytesTransferred) != 3*ptr {
		t.Error("BytesTransferred offset mismatch")
	}
}

// TestOverlappedUnionViews checks the mutually exclusive accessors.
func TestOverlappedUnionViews(t *testing.T) {
	var o Overlapped

	o.SetOffset(0x11223344)
	o.SetOffsetHigh(0x55667788)
	if o.Offset() != 0x11223344 || o.OffsetHigh() != 0x55667788 {
		t.Errorf("offset view round trip failed: %#x %#x", o.Offset(), o.OffsetHigh())
	}

	p := unsafe.Pointer(&o)
	o.SetPointer(p)
	if o.Pointer() != p {
		t.Error("pointer view round trip failed")
	}
}

// TestStatusClassification checks the distinguished status values.
func TestStatusClassification(t *testing.T) {
	if !Succeeded(StatusSuccess) {
		t.Error("zero status must succeed")
	}
	if !IsPending(StatusPending) || IsPending(StatusSuccess) {
		t.Error("pending classification wrong")
	}
	if !IsCancelled(StatusCancelled) {
		t.Error("cancelled classification wrong")
	}
	if !IsNotFound(StatusNotFound) {
		t.Error("not-found classification wrong")
	}
}

// TestPortLifecycle creates a port, posts a packet and retrieves it.
func TestPortLifecycle(t *testing.T) {
	port, err := NewPort()
	if err != nil {
		t.Fatalf("new port: %v", err)
	}
	defer CloseHandle(port)

	if err := Post(port, 7, 42, nil); err != nil {
		t.Fatalf("post: %v", err)
	}

	entries := make([]OverlappedEntry, 4)
	n, err := GetCompletions(port, entries, 1000, false)
	if err != nil {
		t.Fatalf("get completions: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one entry, got %d", n)
	}
	if entries[0].CompletionKey != 42 || entries[0].BytesTransferred != 7 {
		t.Errorf("unexpected entry %+v", entries[0])
	}
}

// TestGetCompletionsTimeout classifies timeout expiry.
func TestGetCompletionsTimeout(t *testing.T) {
	port, err := NewPort()
	if err != nil {
		t.Fatalf("new port: %v", err)
	}
	defer CloseHandle(port)

	entries := make([]OverlappedEntry, 4)
	_, err = GetCompletions(port, entries, 50, false)
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	if !IsTimeout(err) {
		t.Errorf("expected timeout classification, got %v", err)
	}
}
