package synth

import (
	"log/slog"
	"time"

	"github.com/GideonRubin/sensory-feedback/device"
)

// Sink consumes finished PCM blocks. Write may block while the output drains,
// but only with a bounded wait; implementations report a timeout as an error
// and the block is dropped.
type Sink interface {
	Write(block []int16) error
}

// SongStream is the producer-side view of an open song stream.
// *stream.Prefetcher implements it.
type SongStream interface {
	Next() []byte
	Recycle(b []byte)
	Close() error
}

// Producer owns the real-time audio loop: it is the only context that opens
// or closes the song stream, acting on intents raised by the Control side.
type Producer struct {
	engine *Engine
	state  *device.State
	sink   Sink
	open   func() (SongStream, error)
	song   SongStream
	logger *slog.Logger
}

func NewProducer(engine *Engine, state *device.State, sink Sink, open func() (SongStream, error), logger *slog.Logger) *Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{engine: engine, state: state, sink: sink, open: open, logger: logger}
}

// Run loops until done is closed, then releases the stream.
func (p *Producer) Run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			p.closeSong()
			return
		default:
			p.Cycle()
		}
	}
}

// Cycle performs one production cycle: apply backpressure, act on stream
// intents, render a block and hand it to the sink.
func (p *Producer) Cycle() {
	if p.state.Throttled() {
		time.Sleep(device.ThrottleDelay)
	}

	openReq, closeReq := p.state.TakeStreamRequests()
	if closeReq {
		p.closeSong()
	}
	// An open intent is only honored while Song mode is still selected; a
	// quick mode flip back leaves nothing to open and nothing leaked.
	if openReq && p.state.Mode() == device.ModeSong {
		p.openSong()
	}

	var songBlock []byte
	if p.state.Mode() == device.ModeSong && p.song != nil {
		songBlock = p.song.Next()
	}
	block := p.engine.Render(songBlock)
	if songBlock != nil {
		p.song.Recycle(songBlock)
	}

	if err := p.sink.Write(block); err != nil {
		p.logger.Warn("audio block dropped", "err", err)
	}
}

func (p *Producer) openSong() {
	p.closeSong() // a reopen invalidates anything previously prefetched
	s, err := p.open()
	if err != nil {
		p.logger.Warn("song stream unavailable, playing silence", "err", err)
		return
	}
	p.song = s
}

func (p *Producer) closeSong() {
	if p.song == nil {
		return
	}
	if err := p.song.Close(); err != nil {
		p.logger.Warn("song stream close", "err", err)
	}
	p.song = nil
}
