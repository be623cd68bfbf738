// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the per-platform event-notification backends
// behind one contract: kqueue on the BSD family and I/O completion ports
// on Windows, with race-free cross-thread wake-up.
package reactor
