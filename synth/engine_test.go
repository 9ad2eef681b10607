package synth

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/cmplx"
	"testing"

	algofft "github.com/cwbudde/algo-fft"

	"github.com/GideonRubin/sensory-feedback/device"
)

func pressAll(s *device.State, force float32) {
	for i := 0; i < device.NumChannels; i++ {
		s.Channel(i).SetForce(force)
	}
}

func TestRenderSilentWhenPowerOff(t *testing.T) {
	s := device.NewState()
	e := NewEngine(s)
	pressAll(s, 1)
	s.SetPower(false)
	block := e.Render(nil)
	for i, v := range block {
		if v != 0 {
			t.Fatalf("sample %d: got=%d want=0", i, v)
		}
	}
}

func TestRenderSilentWithoutPress(t *testing.T) {
	s := device.NewState()
	e := NewEngine(s)
	block := e.Render(nil)
	for i, v := range block {
		if v != 0 {
			t.Fatalf("sample %d: got=%d want=0", i, v)
		}
	}
}

func TestAccordionNeverClips(t *testing.T) {
	// Worst case: all four voices at full force, full channel volume and
	// full master volume, rendered long enough for tremolo and the detune
	// beat to sweep their extremes.
	s := device.NewState()
	s.SetMasterVolume(1)
	e := NewEngine(s)
	pressAll(s, 1)

	for b := 0; b < 4*SampleRate/BlockFrames; b++ {
		e.Render(nil)
		for i, v := range e.mix {
			if v >= 1 || v <= -1 {
				t.Fatalf("block %d sample %d: mix clips: %f", b, i, v)
			}
		}
	}
}

func TestAccordionVoicePitch(t *testing.T) {
	const fftSize = 8192
	plan, err := algofft.NewPlanReal64(fftSize)
	if err != nil {
		t.Fatalf("fft plan: %v", err)
	}
	hann := make([]float64, fftSize)
	for i := range hann {
		hann[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(fftSize-1))
	}
	binHz := float64(SampleRate) / fftSize

	for ch := 0; ch < device.NumChannels; ch++ {
		t.Run(fmt.Sprintf("channel=%d", ch), func(t *testing.T) {
			s := device.NewState()
			e := NewEngine(s)
			s.Channel(ch).SetForce(1)

			// Skip the attack, then collect a steady-state mono signal.
			for b := 0; b < 20; b++ {
				e.Render(nil)
			}
			buf := make([]float64, 0, fftSize)
			for len(buf) < fftSize {
				e.Render(nil)
				for f := 0; f < BlockFrames && len(buf) < fftSize; f++ {
					buf = append(buf, float64(e.mix[f*2])+float64(e.mix[f*2+1]))
				}
			}
			for i := range buf {
				buf[i] *= hann[i]
			}
			spec := make([]complex128, fftSize/2+1)
			plan.Forward(spec, buf)

			peakBin, peakMag := 0, 0.0
			for k := 1; k < fftSize/2; k++ {
				if m := cmplx.Abs(spec[k]); m > peakMag {
					peakBin, peakMag = k, m
				}
			}
			got := float64(peakBin) * binHz
			want := chordHz[ch]
			if math.Abs(got-want) > binHz {
				t.Errorf("fundamental: got=%.1fHz want=%.2fHz", got, want)
			}
		})
	}
}

// songBlock builds one block of stereo PCM with constant sample values.
func songBlock(left, right int16) []byte {
	b := make([]byte, BlockBytes)
	for f := 0; f < BlockFrames; f++ {
		binary.LittleEndian.PutUint16(b[f*4:], uint16(left))
		binary.LittleEndian.PutUint16(b[f*4+2:], uint16(right))
	}
	return b
}

func TestSongModeSilentWithoutStream(t *testing.T) {
	s := device.NewState()
	s.SetMode(device.ModeSong)
	e := NewEngine(s)
	for _, song := range [][]byte{nil, make([]byte, BlockBytes-1)} {
		block := e.Render(song)
		for i, v := range block {
			if v != 0 {
				t.Fatalf("sample %d: got=%d want=0", i, v)
			}
		}
	}
}

func TestSongModeBandGains(t *testing.T) {
	s := device.NewState()
	s.SetMode(device.ModeSong)
	s.SetMasterVolume(1)
	e := NewEngine(s)

	// DC input settles fully into the bass band, so after a warmup the
	// output level on each side is input times that side's bass gain.
	song := songBlock(16384, 16384)
	warm := 2 * SampleRate / BlockFrames

	// No press: both sides idle at the floor gain.
	for b := 0; b < warm; b++ {
		e.Render(song)
	}
	last := BlockFrames*2 - 2
	wantIdle := 0.5 * bandFloor
	if got := float64(e.mix[last]); math.Abs(got-wantIdle) > 0.01 {
		t.Errorf("idle left level: got=%f want=%f", got, wantIdle)
	}

	// Full press on the left bass sensor lifts only the left side.
	s.Channel(0).SetForce(1)
	for b := 0; b < warm; b++ {
		e.Render(song)
	}
	if got := float64(e.mix[last]); math.Abs(got-0.5) > 0.01 {
		t.Errorf("pressed left level: got=%f want=0.5", got)
	}
	if got := float64(e.mix[last+1]); math.Abs(got-wantIdle) > 0.01 {
		t.Errorf("right level should stay at floor: got=%f", got)
	}
}

func TestModeTransitionSilencesVoices(t *testing.T) {
	s := device.NewState()
	e := NewEngine(s)
	pressAll(s, 1)
	for b := 0; b < 10; b++ {
		e.Render(nil)
	}
	pressAll(s, 0)

	s.SetMode(device.ModeSong)
	e.Render(nil) // transition happens here

	s.SetMode(device.ModeAccordion)
	block := e.Render(nil)
	// Voices were silenced by the round trip; with no press the first
	// Accordion block is flat silence, not a decaying tail.
	for i, v := range block {
		if v != 0 {
			t.Fatalf("sample %d: residual voice output after transition: %d", i, v)
		}
	}
}
