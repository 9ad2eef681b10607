// Package command parses control-channel command frames and applies them to
// the shared runtime state. Frames are bounded ASCII "COMMAND:payload" plus
// one legacy single-byte power frame. Malformed frames are dropped silently;
// that is protocol simplicity, not an oversight. Parsing does not allocate.
package command

import (
	"github.com/GideonRubin/sensory-feedback/device"
	"github.com/GideonRubin/sensory-feedback/sensor"
)

// MaxFrameLen bounds inbound frames; anything longer is dropped unparsed.
const MaxFrameLen = 64

// Processor is a stateless dispatcher over the shared state. Persist, when
// set, is invoked after a MODE switch so the selection survives power cycles.
type Processor struct {
	state   *device.State
	persist func(device.Mode)
}

func NewProcessor(state *device.State) *Processor {
	return &Processor{state: state}
}

// OnModeChange registers the persistence hook for MODE commands.
func (p *Processor) OnModeChange(fn func(device.Mode)) { p.persist = fn }

// Handle parses one inbound frame and applies its effect. It returns true if
// the frame was recognized and applied, false if it was dropped.
func (p *Processor) Handle(frame []byte) bool {
	if len(frame) == 0 || len(frame) > MaxFrameLen {
		return false
	}

	// Legacy single-byte power frame: 1 = on, 0 = off.
	if len(frame) == 1 && (frame[0] == 0 || frame[0] == 1) {
		p.state.SetPower(frame[0] == 1)
		return true
	}

	sep := indexByte(frame, ':')
	if sep < 0 {
		return false
	}
	cmd, payload := frame[:sep], frame[sep+1:]

	switch string(cmd) {
	case "POWER":
		v, ok := parseInt(payload)
		if !ok {
			return false
		}
		p.state.SetPower(v != 0)
		return true

	case "SENSOR_VOLUME":
		var args [2]int
		if !parseList(payload, args[:]) {
			return false
		}
		id := args[0]
		if id < 0 || id >= device.NumChannels {
			return false
		}
		p.state.Channel(id).SetVolume(float32(clamp(args[1], 0, 100)) / 100.0)
		return true

	case "CALIBRATE":
		var args [device.NumChannels]int
		if !parseList(payload, args[:]) {
			return false
		}
		for i, v := range args {
			p.state.Channel(i).SetBaseline(v)
		}
		return true

	case "SENSOR_THRESHOLD":
		var args [device.NumChannels]int
		if !parseList(payload, args[:]) {
			return false
		}
		for i, v := range args {
			p.state.Channel(i).SetThreshold(v)
		}
		return true

	case "VOLUME_TOTAL":
		v, ok := parseInt(payload)
		if !ok {
			return false
		}
		p.state.SetMasterVolume(float32(clamp(v, 0, 100)) / 100.0)
		return true

	case "MODE":
		v, ok := parseInt(payload)
		if !ok || (v != 0 && v != 1) {
			return false
		}
		mode := device.Mode(v)
		if p.state.SetMode(mode) {
			if mode == device.ModeSong {
				p.state.RequestStreamOpen()
			} else {
				p.state.RequestStreamClose()
			}
			if p.persist != nil {
				p.persist(mode)
			}
		}
		return true

	case "SENSITIVITY":
		v, ok := parseInt(payload)
		if !ok {
			return false
		}
		front, back := sensor.CurveForSlider(clamp(v, 0, 100))
		p.state.SetCurve(front, back)
		return true
	}
	return false
}

func indexByte(b []byte, c byte) int {
	for i := range b {
		if b[i] == c {
			return i
		}
	}
	return -1
}

// parseInt decodes a non-negative decimal integer without allocating.
func parseInt(b []byte) (int, bool) {
	if len(b) == 0 {
		return 0, false
	}
	n := 0
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
		if n > device.FullScale*10 {
			return 0, false
		}
	}
	return n, true
}

// parseList decodes exactly len(dst) comma-separated integers. A wrong
// argument count fails the whole frame.
func parseList(b []byte, dst []int) bool {
	start := 0
	field := 0
	for i := 0; i <= len(b); i++ {
		if i == len(b) || b[i] == ',' {
			if field >= len(dst) {
				return false
			}
			v, ok := parseInt(b[start:i])
			if !ok {
				return false
			}
			dst[field] = v
			field++
			start = i + 1
		}
	}
	return field == len(dst)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
