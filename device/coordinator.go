package device

import (
	"runtime"
	"time"
)

// Memory monitor defaults. Below MinHeadroom of free heap the Producer loop
// inserts ThrottleDelay of extra idle time per cycle, trading audio-cycle
// latency for pressure relief on the Control context.
const (
	DefaultMinHeadroom   = 1 << 20 // 1 MiB
	DefaultProbeInterval = 2 * time.Second
	ThrottleDelay        = 5 * time.Millisecond
)

// MemoryMonitor periodically samples available memory headroom and flips the
// shared throttle flag when it drops below the configured floor. Driven from
// the Control loop; the Producer only reads State.Throttled.
type MemoryMonitor struct {
	state       *State
	probe       func() uint64 // returns free headroom in bytes
	minHeadroom uint64
	interval    time.Duration
	last        time.Time
}

// NewMemoryMonitor builds a monitor with the default heap probe. A nil probe
// may be replaced later with SetProbe (used by tests).
func NewMemoryMonitor(state *State) *MemoryMonitor {
	return &MemoryMonitor{
		state:       state,
		probe:       heapHeadroom,
		minHeadroom: DefaultMinHeadroom,
		interval:    DefaultProbeInterval,
	}
}

// SetProbe replaces the headroom probe.
func (m *MemoryMonitor) SetProbe(probe func() uint64) {
	if probe != nil {
		m.probe = probe
	}
}

// Tick probes at most once per interval and updates the throttle flag.
func (m *MemoryMonitor) Tick(now time.Time) {
	if !m.last.IsZero() && now.Sub(m.last) < m.interval {
		return
	}
	m.last = now
	m.state.setThrottled(m.probe() < m.minHeadroom)
}

func heapHeadroom() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	if ms.HeapSys < ms.HeapInuse {
		return 0
	}
	return ms.HeapSys - ms.HeapInuse
}
