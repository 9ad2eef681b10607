package synth

import (
	"math"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

const (
	// detuneCents separates the two phase accumulators of a voice; mixing
	// them produces the slow chorus beating of paired accordion reeds.
	detuneCents = 4.0

	// voiceFloor is the audible base level of a pressed voice; force scales
	// the remaining headroom.
	voiceFloor = 0.3

	// voiceGain leaves headroom for four voices under full tremolo:
	// 4 * 1.08 * voiceGain < 1.
	voiceGain = 0.23

	// One-pole smoothing alphas per render cycle. Release is slower than
	// attack so presses speak quickly and decay naturally.
	attackAlpha  = 0.35
	releaseAlpha = 0.08

	tremoloHz    = 5.0
	tremoloDepth = 0.08
)

// chordHz are the fixed pitches of the four voices (C major spread).
var chordHz = [4]float64{261.63, 329.63, 392.00, 523.25}

// voicePanPos spreads the voices across the stereo image, -1 left .. +1 right.
var voicePanPos = [4]float32{-0.6, -0.2, 0.2, 0.6}

// Voice is one wavetable oscillator pair with smoothed volume and fixed pan.
type Voice struct {
	inc      float64
	incDet   float64
	phase    float64
	phaseDet float64

	target  float32
	current float32

	panL float32
	panR float32
}

func (v *Voice) init(freq float64, panPos float32) {
	v.setPitch(freq)
	// Equal-power pan weights.
	angle := (float64(panPos) + 1) * math.Pi / 4
	v.panL = float32(math.Cos(angle))
	v.panR = float32(math.Sin(angle))
}

// setPitch recomputes the phase increments for both accumulators.
func (v *Voice) setPitch(freq float64) {
	v.inc = freq * TableSize / SampleRate
	v.incDet = v.inc * float64(centsToRatio(detuneCents))
}

func (v *Voice) setTarget(t float32) {
	v.target = clampF32(t, 0, 1)
}

// smooth advances the current volume one cycle toward the target. One-pole
// with alpha in (0,1): it converges without ever overshooting.
func (v *Voice) smooth() {
	alpha := float32(attackAlpha)
	if v.target < v.current {
		alpha = releaseAlpha
	}
	v.current += alpha * (v.target - v.current)
	v.current = float32(dspcore.FlushDenormals(float64(v.current)))
}

// next produces one mono sample at the smoothed volume and advances both
// phase accumulators, wrapping modulo the table length.
func (v *Voice) next(w *Wavetable) float32 {
	s := 0.5 * (w.At(v.phase) + w.At(v.phaseDet))
	v.phase += v.inc
	if v.phase >= TableSize {
		v.phase -= TableSize
	}
	v.phaseDet += v.incDet
	if v.phaseDet >= TableSize {
		v.phaseDet -= TableSize
	}
	return s * v.current
}

func (v *Voice) silence() {
	v.target = 0
	v.current = 0
}

// tremolo is a shared slow sine amplitude modulator. Within a block it runs
// the two-term cosine recurrence; the block phase accumulator keeps it
// drift-free over long sessions.
type tremolo struct {
	w     float64 // radians per sample
	phase float64
	x0    float64
	x1    float64
	cw    float64
}

func newTremolo() tremolo {
	w := 2 * math.Pi * tremoloHz / SampleRate
	return tremolo{w: w, cw: math.Cos(w)}
}

// blockStart re-seeds the recurrence for the next block of n samples.
func (t *tremolo) blockStart(n int) {
	t.x0 = math.Sin(t.phase)
	t.x1 = math.Sin(t.phase + t.w)
	t.phase += t.w * float64(n)
	if t.phase >= 2*math.Pi {
		t.phase = math.Mod(t.phase, 2*math.Pi)
	}
}

// next returns the amplitude factor for the current sample and advances.
func (t *tremolo) next() float32 {
	v := t.x0
	x2 := 2*t.cw*t.x1 - t.x0
	t.x0 = t.x1
	t.x1 = x2
	return 1 + tremoloDepth*float32(v)
}
