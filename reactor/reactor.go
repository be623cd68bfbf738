// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral backend contract and construction options.

package reactor

import (
	"time"

	"github.com/momentics/hioload-poller/api"
	"github.com/momentics/hioload-poller/control"
)

// DefaultEventCapacity is the preallocated batch size of an Events buffer.
const DefaultEventCapacity = 1024

// Backend is an event-notification backend. It is a passive object: no
// internal threads, and Wait is the only call that blocks. The backend
// may be shared by reference across threads calling the Registrar
// methods, but an Events buffer passed to Wait must be owned exclusively
// by the waiting thread for the duration of the call.
type Backend interface {
	api.Registrar

	// Wait blocks until at least one registered event fires, the timeout
	// elapses, or Notify is called. A negative timeout blocks
	// indefinitely; zero polls. The buffer's previous contents are
	// replaced. Interrupted native calls are retried internally with the
	// original timeout. Timeout expiry is a normal zero-event return, not
	// an error.
	Wait(events *Events, timeout time.Duration) error

	// Close tears the backend down, removing the self-notification
	// registration from the kernel and releasing the native descriptor.
	Close() error
}

// Option customizes backend construction.
type Option func(*config)

type config struct {
	stats  *control.Stats
	probes *control.DebugProbes
}

// WithStats attaches a counter registry updated by the backend.
func WithStats(s *control.Stats) Option {
	return func(c *config) {
		c.stats = s
	}
}

// WithProbes registers backend identity probes in dp.
func WithProbes(dp *control.DebugProbes) Option {
	return func(c *config) {
		c.probes = dp
	}
}

func newConfig(opts []Option) config {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
