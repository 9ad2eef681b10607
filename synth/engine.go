// Package synth renders the device's audio: live wavetable voices in
// Accordion mode, band-split filtered song playback in Song mode. It runs
// entirely inside the Producer context and reads shared runtime state through
// atomic snapshots each cycle.
package synth

import "github.com/GideonRubin/sensory-feedback/device"

const (
	// SampleRate is the fixed output rate of the audio sink.
	SampleRate = 22050
	// BlockFrames is the fixed block length in stereo frames.
	BlockFrames = 256
	// BlockBytes is the byte size of one block of 16-bit stereo PCM, and
	// the prefetch block size of the song stream.
	BlockBytes = BlockFrames * 2 * 2
)

// Engine is the dual-mode synthesis state machine. The MODE command is its
// only transition trigger; it observes the shared mode each render cycle.
type Engine struct {
	state *device.State
	table *Wavetable

	voices [device.NumChannels]Voice
	trem   tremolo

	// Song mode: one split filter per output side, one envelope per band.
	// Bands 0,1 are left bass/treble (sensors 0,1); 2,3 right (sensors 2,3).
	filters [2]splitFilter
	bands   [device.NumChannels]bandEnvelope

	mode device.Mode

	mix [BlockFrames * 2]float32
	out [BlockFrames * 2]int16
}

// NewEngine builds an engine over the shared state, starting in the state's
// current (possibly restored) mode.
func NewEngine(state *device.State) *Engine {
	e := &Engine{
		state: state,
		table: NewAccordionTable(),
		trem:  newTremolo(),
		mode:  state.Mode(),
	}
	for i := range e.voices {
		e.voices[i].init(chordHz[i], voicePanPos[i])
	}
	for i := range e.filters {
		e.filters[i] = newSplitFilter()
	}
	for i := range e.bands {
		e.bands[i] = newBandEnvelope()
	}
	return e
}

// Render produces one fixed-size stereo block. In Song mode, song must hold
// BlockBytes of stream data or be nil, in which case (stream missing or not
// yet open) the block is silence. The returned slice is reused each cycle.
func (e *Engine) Render(song []byte) []int16 {
	if mode := e.state.Mode(); mode != e.mode {
		e.transition(mode)
	}
	if !e.state.Power() {
		for i := range e.voices {
			e.voices[i].silence()
		}
		return e.silenceBlock()
	}

	switch e.mode {
	case device.ModeAccordion:
		e.renderAccordion()
	case device.ModeSong:
		if song == nil || len(song) < BlockBytes {
			return e.silenceBlock()
		}
		e.renderSong(song)
	}

	for i := range e.mix {
		e.out[i] = clamp16(e.mix[i] * 32767)
	}
	return e.out[:]
}

func (e *Engine) silenceBlock() []int16 {
	for i := range e.out {
		e.out[i] = 0
	}
	return e.out[:]
}

func (e *Engine) renderAccordion() {
	master := e.state.MasterVolume()
	for i := range e.voices {
		ch := e.state.Channel(i)
		force := ch.Force()
		if force <= 0 {
			e.voices[i].setTarget(0)
		} else {
			e.voices[i].setTarget((voiceFloor + (1-voiceFloor)*force) * ch.Volume() * master)
		}
		e.voices[i].smooth()
	}

	e.trem.blockStart(BlockFrames)
	for f := 0; f < BlockFrames; f++ {
		trem := e.trem.next()
		var l, r float32
		for i := range e.voices {
			v := &e.voices[i]
			if v.current == 0 && v.target == 0 {
				continue
			}
			s := v.next(e.table) * trem * voiceGain
			l += s * v.panL
			r += s * v.panR
		}
		e.mix[f*2] = l
		e.mix[f*2+1] = r
	}
}

func (e *Engine) renderSong(song []byte) {
	for i := range e.bands {
		e.bands[i].update(e.state.Channel(i).Force())
	}
	master := e.state.MasterVolume()

	for f := 0; f < BlockFrames; f++ {
		xl := float32(int16(uint16(song[f*4])|uint16(song[f*4+1])<<8)) / 32768
		xr := float32(int16(uint16(song[f*4+2])|uint16(song[f*4+3])<<8)) / 32768

		bassL, trebleL := e.filters[0].process(xl)
		bassR, trebleR := e.filters[1].process(xr)

		e.mix[f*2] = (bassL*e.bands[0].gain + trebleL*e.bands[1].gain) * master
		e.mix[f*2+1] = (bassR*e.bands[2].gain + trebleR*e.bands[3].gain) * master
	}
}

// transition applies the mode switch: voices silenced, filter and hold state
// reset, and on return to Accordion the phase increments recomputed. Stream
// open/close intents are raised by the command path, not here.
func (e *Engine) transition(to device.Mode) {
	e.mode = to
	for i := range e.voices {
		e.voices[i].silence()
	}
	for i := range e.filters {
		e.filters[i].reset()
	}
	for i := range e.bands {
		e.bands[i].reset()
	}
	if to == device.ModeAccordion {
		for i := range e.voices {
			e.voices[i].setPitch(chordHz[i])
		}
	}
}
