// control/probes.go
// Author: momentics <momentics@gmail.com>
//
// Debug probe registry for backend introspection. Backends register
// probes at construction time (backend kind, native descriptor, deferred
// queue depth) and diagnostic tooling dumps them on demand.

package control

import "sync"

// DebugProbes holds named probe functions for one backend instance.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// NewDebugProbes creates an empty probe registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{
		probes: make(map[string]func() any),
	}
}

// RegisterProbe inserts a named probe, replacing any previous one under
// the same name.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.probes[name] = fn
}

// RegisterStatsProbe exposes a counter registry under the given name;
// each dump takes a fresh snapshot.
func (dp *DebugProbes) RegisterStatsProbe(name string, s *Stats) {
	dp.RegisterProbe(name, func() any { return s.Snapshot() })
}

// DumpState evaluates every probe and returns the values by name.
func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	out := make(map[string]any, len(dp.probes))
	for k, fn := range dp.probes {
		out[k] = fn()
	}
	return out
}
