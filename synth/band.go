package synth

import (
	"math"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

const (
	// bandCutoffHz is the fixed bass/treble split frequency.
	bandCutoffHz = 250.0

	// bandFloor is the minimum band gain; playback never drops fully silent
	// in Song mode while the system is on.
	bandFloor = 0.2

	// holdSeconds keeps the last press peak before decay starts.
	holdSeconds = 0.3

	// decayStep is subtracted from the gain once per render cycle after the
	// hold window expires.
	decayStep = 0.01
)

// holdCycles is holdSeconds expressed in render cycles.
var holdCycles = int(math.Round(holdSeconds * SampleRate / BlockFrames))

// splitFilter is a single-pole low-pass; bass is its output, treble the
// complement.
type splitFilter struct {
	lp    float32
	coeff float32
}

func newSplitFilter() splitFilter {
	return splitFilter{
		coeff: float32(1 - math.Exp(-2*math.Pi*bandCutoffHz/SampleRate)),
	}
}

func (f *splitFilter) process(x float32) (bass, treble float32) {
	f.lp += f.coeff * (x - f.lp)
	f.lp = float32(dspcore.FlushDenormals(float64(f.lp)))
	return f.lp, x - f.lp
}

func (f *splitFilter) reset() { f.lp = 0 }

// bandEnvelope is the press-driven hold/decay gain of one band. On activity
// the gain snaps to the force-derived peak and the hold window restarts;
// after the hold it decays by a fixed step per cycle, never below the floor.
type bandEnvelope struct {
	gain float32
	hold int
}

func newBandEnvelope() bandEnvelope {
	return bandEnvelope{gain: bandFloor}
}

// update advances the envelope one render cycle given the driving force
// (zero when the sensor is below threshold).
func (e *bandEnvelope) update(force float32) {
	if force > 0 {
		e.gain = bandFloor + force*(1-bandFloor)
		e.hold = holdCycles
		return
	}
	if e.hold > 0 {
		e.hold--
		return
	}
	if e.gain > bandFloor {
		e.gain -= decayStep
		if e.gain < bandFloor {
			e.gain = bandFloor
		}
	}
}

func (e *bandEnvelope) reset() {
	e.gain = bandFloor
	e.hold = 0
}
