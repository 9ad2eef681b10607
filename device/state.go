package device

import (
	"math"
	"sync/atomic"
)

// Mode selects the active synthesis path.
type Mode int32

const (
	ModeAccordion Mode = 0
	ModeSong      Mode = 1
)

const (
	// NumChannels is the number of force sensor channels.
	NumChannels = 4
	// FullScale is the maximum raw ADC reading (12-bit converter).
	FullScale = 4095
)

// ChannelCell holds the per-channel calibration and measurement state shared
// between the Control and Producer contexts. Every field is an independent
// atomic word with a single writer: baseline, threshold and volume are written
// by the command path, raw and force by the sampling path. Composite updates
// (e.g. all four baselines) may be briefly inconsistent across fields, which
// is fine because no reader consumes them transactionally.
type ChannelCell struct {
	baseline  atomic.Int32
	threshold atomic.Int32
	volume    atomic.Uint32 // float32 bits, 0..1
	raw       atomic.Int32
	force     atomic.Uint32 // float32 bits, 0..1, already threshold-gated
}

func (c *ChannelCell) Baseline() int       { return int(c.baseline.Load()) }
func (c *ChannelCell) SetBaseline(v int)   { c.baseline.Store(int32(clampInt(v, 0, FullScale))) }
func (c *ChannelCell) Threshold() int      { return int(c.threshold.Load()) }
func (c *ChannelCell) SetThreshold(v int)  { c.threshold.Store(int32(clampInt(v, 0, FullScale))) }
func (c *ChannelCell) Volume() float32     { return loadF32(&c.volume) }
func (c *ChannelCell) SetVolume(v float32) { storeF32(&c.volume, clampF32(v, 0, 1)) }
func (c *ChannelCell) Raw() int            { return int(c.raw.Load()) }
func (c *ChannelCell) SetRaw(v int)        { c.raw.Store(int32(v)) }
func (c *ChannelCell) Force() float32      { return loadF32(&c.force) }
func (c *ChannelCell) SetForce(v float32)  { storeF32(&c.force, clampF32(v, 0, 1)) }

// State is the runtime state shared across the Control/Producer boundary.
// No mutex guards it: every field is a single-writer atomic word.
type State struct {
	channels [NumChannels]ChannelCell

	masterVolume atomic.Uint32 // float32 bits, 0..1
	mode         atomic.Int32
	frontExp     atomic.Uint32 // float32 bits
	backExp      atomic.Uint32 // float32 bits
	power        atomic.Bool

	// Stream handle intents. Control sets them, only the Producer consumes
	// them (TakeStreamRequests), so the storage driver is never entered from
	// two contexts at once.
	openReq  atomic.Bool
	closeReq atomic.Bool

	// Producer throttle flag, set by the memory monitor.
	throttle atomic.Bool
}

// NewState returns a State with power on, full per-channel volume, mid-travel
// sensitivity and the default press thresholds.
func NewState() *State {
	s := &State{}
	s.SetMasterVolume(0.8)
	s.SetPower(true)
	s.SetCurve(1.15, 1.15) // sensitivity slider at 50
	for i := 0; i < NumChannels; i++ {
		s.channels[i].SetVolume(1.0)
		s.channels[i].SetThreshold(150)
	}
	return s
}

// Channel returns the cell for channel i. Out-of-range indices panic, the
// same as a slice access would.
func (s *State) Channel(i int) *ChannelCell { return &s.channels[i] }

func (s *State) MasterVolume() float32     { return loadF32(&s.masterVolume) }
func (s *State) SetMasterVolume(v float32) { storeF32(&s.masterVolume, clampF32(v, 0, 1)) }

func (s *State) Power() bool      { return s.power.Load() }
func (s *State) SetPower(on bool) { s.power.Store(on) }

func (s *State) Mode() Mode { return Mode(s.mode.Load()) }

// SetMode stores the new mode and reports whether it actually changed.
// Callers use the return value to avoid issuing duplicate stream intents.
func (s *State) SetMode(m Mode) bool {
	return s.mode.Swap(int32(m)) != int32(m)
}

// Curve returns the (front, back) sensitivity exponents.
func (s *State) Curve() (front, back float32) {
	return loadF32(&s.frontExp), loadF32(&s.backExp)
}

func (s *State) SetCurve(front, back float32) {
	storeF32(&s.frontExp, front)
	storeF32(&s.backExp, back)
}

// RequestStreamOpen asks the Producer to open the song stream.
func (s *State) RequestStreamOpen() { s.openReq.Store(true) }

// RequestStreamClose asks the Producer to close the song stream.
func (s *State) RequestStreamClose() { s.closeReq.Store(true) }

// TakeStreamRequests atomically consumes any pending stream intents.
// Producer context only.
func (s *State) TakeStreamRequests() (open, closeReq bool) {
	open = s.openReq.CompareAndSwap(true, false)
	closeReq = s.closeReq.CompareAndSwap(true, false)
	return open, closeReq
}

func (s *State) Throttled() bool      { return s.throttle.Load() }
func (s *State) setThrottled(on bool) { s.throttle.Store(on) }

func loadF32(a *atomic.Uint32) float32     { return math.Float32frombits(a.Load()) }
func storeF32(a *atomic.Uint32, v float32) { a.Store(math.Float32bits(v)) }

func clampF32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
