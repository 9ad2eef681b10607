//go:build !headless

package sink

import (
	"time"

	"github.com/ebitengine/oto/v3"
)

// OtoSink plays blocks through oto. The producer pushes finished blocks into
// a short queue with a bounded wait; the oto player pulls bytes from the
// queue on its own thread and never starves (silence is substituted).
type OtoSink struct {
	ctx    *oto.Context
	player *oto.Player
	blocks chan []byte
	leftov []byte
}

// New opens the default audio device for the given fixed format.
func New(sampleRate, blockFrames int) (Sink, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	s := &OtoSink{
		ctx:    ctx,
		blocks: make(chan []byte, 2),
	}
	s.player = ctx.NewPlayer(s)
	s.player.Play()
	return s, nil
}

// Write queues one block, blocking at most WriteTimeout while the output
// drains.
func (s *OtoSink) Write(block []int16) error {
	buf := make([]byte, len(block)*2)
	for i, v := range block {
		buf[i*2] = byte(v)
		buf[i*2+1] = byte(v >> 8)
	}
	select {
	case s.blocks <- buf:
		return nil
	case <-time.After(WriteTimeout):
		return ErrWriteTimeout
	}
}

// Read is the oto pull side. Queued blocks are copied out; if the queue runs
// dry mid-read the remainder is silence so the device never underruns.
func (s *OtoSink) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(s.leftov) > 0 {
			c := copy(p[n:], s.leftov)
			s.leftov = s.leftov[c:]
			n += c
			continue
		}
		select {
		case b := <-s.blocks:
			s.leftov = b
		default:
			for i := n; i < len(p); i++ {
				p[i] = 0
			}
			return len(p), nil
		}
	}
	return n, nil
}

func (s *OtoSink) Close() error {
	return s.player.Close()
}
