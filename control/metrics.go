// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime counters for poll backends. Counters sit on the registration
// and wait hot paths, so they are plain atomics; Snapshot materializes a
// read-only map for inspection.

package control

import "sync/atomic"

// Stats aggregates backend activity counters.
type Stats struct {
	registrations   atomic.Int64
	deregistrations atomic.Int64
	waits           atomic.Int64
	wakeups         atomic.Int64
	eventsDelivered atomic.Int64
}

// NewStats creates an empty counter set.
func NewStats() *Stats {
	return &Stats{}
}

// AddRegistration records one add or modify call.
func (s *Stats) AddRegistration() {
	if s != nil {
		s.registrations.Add(1)
	}
}

// AddDeregistration records one delete call.
func (s *Stats) AddDeregistration() {
	if s != nil {
		s.deregistrations.Add(1)
	}
}

// AddWait records one completed wait call.
func (s *Stats) AddWait() {
	if s != nil {
		s.waits.Add(1)
	}
}

// AddWakeup records one self-notification.
func (s *Stats) AddWakeup() {
	if s != nil {
		s.wakeups.Add(1)
	}
}

// AddEventsDelivered records events written into a wait buffer.
func (s *Stats) AddEventsDelivered(n int) {
	if s != nil && n > 0 {
		s.eventsDelivered.Add(int64(n))
	}
}

// Snapshot returns the latest counter values.
func (s *Stats) Snapshot() map[string]int64 {
	if s == nil {
		return nil
	}
	return map[string]int64{
		"registrations":    s.registrations.Load(),
		"deregistrations":  s.deregistrations.Load(),
		"waits":            s.waits.Load(),
		"wakeups":          s.wakeups.Load(),
		"events_delivered": s.eventsDelivered.Load(),
	}
}
