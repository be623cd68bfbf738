//go:build windows
// +build windows

// File: internal/iocp/port_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Thin typed wrappers over the completion-port operations. Each function
// is a direct, non-validating mapping onto one native call; validation
// and retry policy belong to the backend built on top of this layer.

package iocp

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// NewPort creates a fresh, unassociated completion port.
func NewPort() (windows.Handle, error) {
	return windows.CreateIoCompletionPort(windows.InvalidHandle, 0, 0, 0)
}

// Associate attaches a handle to an existing port under the given
// completion key.
func Associate(port, handle windows.Handle, key uintptr) error {
	_, err := windows.CreateIoCompletionPort(handle, port, key, 0)
	return err
}

// GetCompletions retrieves up to len(entries) completion entries in one
// call, blocking up to timeoutMs milliseconds (InfiniteTimeout blocks
// indefinitely). The raw Win32 error is returned unfiltered; callers
// classify WAIT_TIMEOUT themselves.
func GetCompletions(port windows.Handle, entries []OverlappedEntry, timeoutMs uint32, alertable bool) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	var removed uint32
	var alert uintptr
	if alertable {
		alert = 1
	}
	r1, _, err := procGetQueuedCompletionStatusEx.Call(
		uintptr(port),
		uintptr(unsafe.Pointer(&entries[0])),
		uintptr(uint32(len(entries))),
		uintptr(unsafe.Pointer(&removed)),
		uintptr(timeoutMs),
		alert,
	)
	if r1 == 0 {
		return 0, err
	}
	return int(removed), nil
}

// IsTimeout reports whether a GetCompletions error is plain timeout
// expiry rather than a failure.
func IsTimeout(err error) bool {
	errno, ok := err.(syscall.Errno)
	return ok && errno == windows.WAIT_TIMEOUT
}

// Post queues a synthetic completion entry on the port. Used for
// cross-thread wake-up and deferred error delivery.
func Post(port windows.Handle, bytes uint32, key uintptr, o *Overlapped) error {
	return windows.PostQueuedCompletionStatus(port, bytes, key, (*windows.Overlapped)(unsafe.Pointer(o)))
}

// SetCompletionModes adjusts per-handle notification behavior, e.g.
// suppressing redundant port notification when an operation completes
// synchronously on the calling thread.
func SetCompletionModes(handle windows.Handle, flags uint8) error {
	return windows.SetFileCompletionNotificationModes(handle, flags)
}

// BaseSocket resolves a possibly layered socket to the base provider
// handle that completion-port association requires.
func BaseSocket(sock windows.Handle) (windows.Handle, error) {
	var base windows.Handle
	var returned uint32
	err := windows.WSAIoctl(
		sock,
		SIOBaseHandle,
		nil,
		0,
		(*byte)(unsafe.Pointer(&base)),
		uint32(unsafe.Sizeof(base)),
		&returned,
		nil,
		0,
	)
	if err != nil {
		return windows.InvalidHandle, err
	}
	return base, nil
}

// CloseHandle releases a port or handle.
func CloseHandle(h windows.Handle) error {
	return windows.CloseHandle(h)
}
