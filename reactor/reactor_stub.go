//go:build !darwin && !dragonfly && !freebsd && !openbsd && !windows
// +build !darwin,!dragonfly,!freebsd,!openbsd,!windows

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package reactor

import (
	"errors"

	"github.com/momentics/hioload-poller/api"
)

// NewBackend returns an error for unsupported platforms.
func NewBackend(opts ...Option) (Backend, error) {
	return nil, errors.New("reactor: this platform is not supported")
}

// Events is a placeholder buffer on unsupported platforms.
type Events struct{}

// NewEvents returns an empty placeholder buffer.
func NewEvents() *Events { return &Events{} }

// NewEventsCapacity returns an empty placeholder buffer.
func NewEventsCapacity(int) *Events { return &Events{} }

// Len always reports zero.
func (e *Events) Len() int { return 0 }

// Cap always reports zero.
func (e *Events) Cap() int { return 0 }

// Clear is a no-op.
func (e *Events) Clear() {}

// Iter returns an exhausted iterator.
func (e *Events) Iter() *Iterator { return &Iterator{} }

// Iterator never yields events on unsupported platforms.
type Iterator struct{}

// Next reports exhaustion.
func (it *Iterator) Next() (api.Event, bool) { return api.Event{}, false }
