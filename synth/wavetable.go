package synth

import (
	"fmt"
	"math"
)

// TableSize is the wavetable length in samples. Phase accumulators wrap
// modulo this length; one extra guard sample keeps interpolation branch-free.
const TableSize = 2048

// TableConfig controls wavetable generation.
type TableConfig struct {
	// Harmonics holds the relative amplitude of each partial, fundamental
	// first. Reed instruments carry strong upper partials.
	Harmonics []float64
	// Peak is the normalization target for the table's absolute peak.
	Peak float64
}

// DefaultTableConfig returns the accordion reed spectrum: a bright additive
// series with a gentle rolloff, close to a free-reed steady state.
func DefaultTableConfig() TableConfig {
	return TableConfig{
		Harmonics: []float64{1.0, 0.62, 0.41, 0.27, 0.16, 0.10, 0.06, 0.035},
		Peak:      1.0,
	}
}

func (c *TableConfig) Validate() error {
	if len(c.Harmonics) < 1 {
		return fmt.Errorf("harmonics must not be empty")
	}
	if c.Peak <= 0 {
		return fmt.Errorf("normalize peak must be > 0")
	}
	return nil
}

// Wavetable is one period of a precomputed waveform, peak-normalized so that
// scaled by voiceGain four simultaneous full-volume voices stay inside the
// 16-bit PCM range.
type Wavetable struct {
	data [TableSize + 1]float32
}

// GenerateTable builds a wavetable by harmonic additive synthesis.
func GenerateTable(cfg TableConfig) (*Wavetable, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w := &Wavetable{}
	raw := make([]float64, TableSize)
	peak := 0.0
	for i := 0; i < TableSize; i++ {
		t := 2 * math.Pi * float64(i) / TableSize
		s := 0.0
		for h, amp := range cfg.Harmonics {
			s += amp * math.Sin(float64(h+1)*t)
		}
		raw[i] = s
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak < 1e-12 {
		peak = 1e-12
	}
	scale := cfg.Peak / peak
	for i := 0; i < TableSize; i++ {
		w.data[i] = float32(raw[i] * scale)
	}
	w.data[TableSize] = w.data[0]
	return w, nil
}

// NewAccordionTable builds the default table. The defaults always validate.
func NewAccordionTable() *Wavetable {
	w, err := GenerateTable(DefaultTableConfig())
	if err != nil {
		panic(err)
	}
	return w
}

// At reads the table at a fractional phase position in [0, TableSize).
func (w *Wavetable) At(phase float64) float32 {
	i := int(phase)
	frac := float32(phase - float64(i))
	s0 := w.data[i]
	return s0 + frac*(w.data[i+1]-s0)
}
