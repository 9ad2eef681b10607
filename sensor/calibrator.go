package sensor

import (
	"math"

	"github.com/GideonRubin/sensory-feedback/device"
)

// Reader supplies one raw sample per channel each control cycle. Raw values
// outside 0..device.FullScale are clamped downstream, never rejected.
type Reader interface {
	Sample() ([device.NumChannels]int, error)
}

// Force is the raw press above the channel baseline, floored at zero.
// Monotonic non-decreasing in raw.
func Force(raw, baseline int) int {
	f := raw - baseline
	if f < 0 {
		return 0
	}
	return f
}

// Normalized maps a force onto [0,1] relative to the remaining travel above
// the baseline.
func Normalized(force, baseline int) float32 {
	span := device.FullScale - baseline
	if span <= 0 {
		return 0
	}
	n := float32(force) / float32(span)
	if n < 0 {
		return 0
	}
	if n > 1 {
		return 1
	}
	return n
}

// CurveForSlider maps the 0..100 sensitivity slider onto the pair of curve
// exponents. Low settings give a responsive front curve (exponent 2.0) and a
// firm-press back curve (0.3); the mapping is linear and the two curves swap
// roles at the top of the travel.
func CurveForSlider(slider int) (front, back float32) {
	if slider < 0 {
		slider = 0
	}
	if slider > 100 {
		slider = 100
	}
	front = 2.0 - float32(slider)*1.7/100.0
	back = 0.3 + float32(slider)*1.7/100.0
	return front, back
}

// Shape applies a curve exponent to a normalized force.
func Shape(normalized, exponent float32) float32 {
	if normalized <= 0 {
		return 0
	}
	return float32(math.Pow(float64(normalized), float64(exponent)))
}

// Calibrator samples all channels once per control cycle and publishes raw
// and curved force values into the shared state. Channels 0 and 1 sit on the
// front of the hand and use the front curve; 2 and 3 use the back curve.
type Calibrator struct {
	reader Reader
	state  *device.State
}

func NewCalibrator(reader Reader, state *device.State) *Calibrator {
	return &Calibrator{reader: reader, state: state}
}

// Step reads one sample frame and updates every channel cell. A channel
// contributes no force unless its press exceeds the channel threshold.
func (c *Calibrator) Step() error {
	raw, err := c.reader.Sample()
	if err != nil {
		return err
	}
	front, back := c.state.Curve()
	for i := 0; i < device.NumChannels; i++ {
		ch := c.state.Channel(i)
		r := raw[i]
		if r < 0 {
			r = 0
		}
		if r > device.FullScale {
			r = device.FullScale
		}
		ch.SetRaw(r)

		baseline := ch.Baseline()
		force := Force(r, baseline)
		if force <= ch.Threshold() {
			ch.SetForce(0)
			continue
		}
		exp := front
		if i >= 2 {
			exp = back
		}
		ch.SetForce(Shape(Normalized(force, baseline), exp))
	}
	return nil
}
