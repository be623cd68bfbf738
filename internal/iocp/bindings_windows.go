//go:build windows
// +build windows

// File: internal/iocp/bindings_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Byte-exact layouts and constants of the Windows completion-port
// family. Every declaration here must match the operating system's
// binary structures exactly; a mismatch is undefined behavior, not a
// logic bug.

package iocp

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// NTStatus is a raw kernel status code.
type NTStatus int32

// Distinguished status values. Pending is not an error: the operation
// completes asynchronously and its result arrives later through the
// port. Cancelled and not-found are benign on cleanup races.
const (
	StatusSuccess   NTStatus = 0
	StatusPending   NTStatus = 259
	StatusCancelled NTStatus = -1073741536
	StatusNotFound  NTStatus = -1073741275
)

// Win32 error codes recognized by the layer above.
const (
	ErrorInvalidHandle = 6
	ErrorIOPending     = 997
)

// Per-handle completion notification flags for SetCompletionModes.
const (
	FileSkipCompletionPortOnSuccess = 1
	FileSkipSetEventOnHandle        = 2
)

// SIOBaseHandle is the WSAIoctl control code resolving a layered socket
// to its base provider handle.
const SIOBaseHandle = 0x48000022

// InfiniteTimeout blocks a completion retrieval indefinitely.
const InfiniteTimeout = 0xFFFFFFFF

// Overlapped is the per-operation I/O control block the kernel uses to
// track an in-flight asynchronous request. The anonymous region is a
// union: the offset pair and the pointer view are mutually exclusive,
// depending on which mode the operation runs in. Access it only through
// the accessor methods.
type Overlapped struct {
	Internal     uintptr
	InternalHigh uintptr
	anonymous    [8]byte
	HEvent       windows.Handle
}

// Offset returns the low half of the file-position view.
func (o *Overlapped) Offset() uint32 {
	return *(*uint32)(unsafe.Pointer(&o.anonymous[0]))
}

// SetOffset stores the low half of the file-position view.
func (o *Overlapped) SetOffset(v uint32) {
	*(*uint32)(unsafe.Pointer(&o.anonymous[0])) = v
}

// OffsetHigh returns the high half of the file-position view.
func (o *Overlapped) OffsetHigh() uint32 {
	return *(*uint32)(unsafe.Pointer(&o.anonymous[4]))
}

// SetOffsetHigh stores the high half of the file-position view.
func (o *Overlapped) SetOffsetHigh(v uint32) {
	*(*uint32)(unsafe.Pointer(&o.anonymous[4])) = v
}

// Pointer returns the pointer view. Invalid while the offset view is in
// use.
func (o *Overlapped) Pointer() unsafe.Pointer {
	return *(*unsafe.Pointer)(unsafe.Pointer(&o.anonymous[0]))
}

// SetPointer stores the pointer view, invalidating the offset view.
func (o *Overlapped) SetPointer(p unsafe.Pointer) {
	*(*unsafe.Pointer)(unsafe.Pointer(&o.anonymous[0])) = p
}

// Status returns the raw kernel status of the tracked operation.
func (o *Overlapped) Status() NTStatus {
	return NTStatus(o.Internal)
}

// OverlappedEntry is one completion-port entry record as written by the
// kernel during batched retrieval.
type OverlappedEntry struct {
	CompletionKey    uintptr
	Overlapped       *Overlapped
	Internal         uintptr
	BytesTransferred uint32
}

// Status returns the raw status the entry completed with.
func (e *OverlappedEntry) Status() NTStatus {
	if e.Overlapped != nil {
		return e.Overlapped.Status()
	}
	return StatusSuccess
}

// Succeeded reports a zero status.
func Succeeded(s NTStatus) bool { return s == StatusSuccess }

// IsPending reports the operation-in-flight status.
func IsPending(s NTStatus) bool { return s == StatusPending }

// IsCancelled reports a cancelled operation.
func IsCancelled(s NTStatus) bool { return s == StatusCancelled }

// IsNotFound reports the benign cleanup-race status.
func IsNotFound(s NTStatus) bool { return s == StatusNotFound }

var (
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procGetQueuedCompletionStatusEx = kernel32.NewProc("GetQueuedCompletionStatusEx")
)
