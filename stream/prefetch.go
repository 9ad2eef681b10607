package stream

// Prefetcher double-buffers song reads so storage latency stays out of the
// audio cycle. It owns a ping-pong pair of fixed-size blocks: while the block
// marked ready is consumed, the other is filled in the background. At most
// one block is ready at any instant; opening a new stream starts from a fresh
// pair, so nothing prefetched from a previous stream can leak through.
type Prefetcher struct {
	src       *Source
	blockSize int

	empty chan []byte // blocks waiting to be filled
	full  chan []byte // at most one filled, ready block
	done  chan struct{}
	idle  chan struct{} // closed when the fill goroutine exits
}

// Open opens the song at path and performs the first fill synchronously:
// the very first block is ready the moment Open returns.
func Open(path string, blockSize int) (*Prefetcher, error) {
	src, err := OpenSource(path)
	if err != nil {
		return nil, err
	}
	p := &Prefetcher{
		src:       src,
		blockSize: blockSize,
		empty:     make(chan []byte, 2),
		full:      make(chan []byte, 1),
		done:      make(chan struct{}),
		idle:      make(chan struct{}),
	}
	b0 := make([]byte, blockSize)
	b1 := make([]byte, blockSize)
	if err := src.ReadWrapped(b0); err != nil {
		src.Close()
		return nil, err
	}
	p.full <- b0
	p.empty <- b1
	go p.fillLoop()
	return p, nil
}

func (p *Prefetcher) fillLoop() {
	defer close(p.idle)
	for {
		var b []byte
		select {
		case <-p.done:
			return
		case b = <-p.empty:
		}
		if err := p.src.ReadWrapped(b); err != nil {
			// Storage fault mid-playback: hand back silence rather than
			// stalling the audio cycle.
			for i := range b {
				b[i] = 0
			}
		}
		select {
		case <-p.done:
			return
		case p.full <- b:
		}
	}
}

// Next returns the ready block and kicks off the fill of its partner. The
// returned slice is valid until the following Recycle call.
func (p *Prefetcher) Next() []byte {
	select {
	case b := <-p.full:
		return b
	case <-p.done:
		return nil
	}
}

// Recycle hands a consumed block back for refilling.
func (p *Prefetcher) Recycle(b []byte) {
	if b == nil {
		return
	}
	select {
	case p.empty <- b:
	default:
		// Both blocks already queued; drop, the pair is fixed-size.
	}
}

// Close stops the fill goroutine and releases the source. Any prefetched
// block is invalidated.
func (p *Prefetcher) Close() error {
	close(p.done)
	<-p.idle
	return p.src.Close()
}
