// Package sink delivers fixed-size stereo int16 PCM blocks to the audio
// output hardware. The real implementation sits on oto; a headless build
// gets a pacing discard sink instead.
package sink

import (
	"errors"
	"time"
)

// ErrWriteTimeout reports that the output did not drain within the bounded
// wait; the caller drops the block.
var ErrWriteTimeout = errors.New("sink: write timed out")

// WriteTimeout bounds how long a Write may block on a saturated output.
const WriteTimeout = 250 * time.Millisecond

// Sink consumes rendered blocks.
type Sink interface {
	Write(block []int16) error
	Close() error
}

// Discard is a Sink that drops audio but preserves real-time pacing, so the
// producer loop still runs at block rate without an audio device.
type Discard struct {
	blockDur time.Duration
	next     time.Time
}

// NewDiscard builds a pacing discard sink for the given format.
func NewDiscard(sampleRate, blockFrames int) *Discard {
	return &Discard{
		blockDur: time.Duration(blockFrames) * time.Second / time.Duration(sampleRate),
	}
}

func (d *Discard) Write(block []int16) error {
	now := time.Now()
	if d.next.IsZero() || now.After(d.next.Add(d.blockDur)) {
		d.next = now
	}
	d.next = d.next.Add(d.blockDur)
	time.Sleep(time.Until(d.next))
	return nil
}

func (d *Discard) Close() error { return nil }
