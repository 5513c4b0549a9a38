package supervisor

import "time"

// microsPerSecond converts boot-relative microsecond timestamps to seconds.
const microsPerSecond = 1_000_000

// Clock provides boot-relative microsecond timestamps.
//
// Implementations must be monotonic: successive calls never return a smaller
// value. The zero timestamp means "boot"; the store treats 0 in
// last_mesh_event_us as "never".
type Clock interface {
	// NowMicros returns microseconds elapsed since process start.
	NowMicros() uint64
}

// bootClock measures elapsed time from process start using the runtime's
// monotonic clock.
type bootClock struct {
	start time.Time
}

// NewBootClock creates a Clock anchored at the moment of the call.
// Create it once at startup and share it between the store, the command
// processor and the telemetry publisher so all timestamps agree.
func NewBootClock() Clock {
	return &bootClock{start: time.Now()}
}

// NowMicros returns microseconds since the clock was created.
func (c *bootClock) NowMicros() uint64 {
	return uint64(time.Since(c.start).Microseconds())
}
