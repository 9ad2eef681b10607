// Package link abstracts the wireless control channel: command frames in,
// telemetry frames out, with a liveness/advertising surface. The pairing and
// advertising stack itself is an external collaborator; this package only
// carries its traffic.
package link

import "sync"

// Link is the control-channel transport.
type Link interface {
	// Send writes one outbound telemetry frame.
	Send(frame []byte) error
	// Receive returns the next inbound command frame without blocking;
	// ok is false when none is queued.
	Receive() (frame []byte, ok bool)
	// Connected reports whether the remote controller is attached.
	Connected() bool
	// Advertise asks the external pairing stack to re-advertise.
	Advertise()
	Close() error
}

// Loopback is an in-memory Link for tests and host development. The "remote"
// side pushes commands and collects sent frames.
type Loopback struct {
	mu         sync.Mutex
	inbox      [][]byte
	sent       [][]byte
	connected  bool
	advertised int
}

func NewLoopback() *Loopback {
	return &Loopback{connected: true}
}

func (l *Loopback) Send(frame []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := make([]byte, len(frame))
	copy(cp, frame)
	l.sent = append(l.sent, cp)
	return nil
}

func (l *Loopback) Receive() ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.inbox) == 0 {
		return nil, false
	}
	f := l.inbox[0]
	l.inbox = l.inbox[1:]
	return f, true
}

func (l *Loopback) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

func (l *Loopback) Advertise() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.advertised++
}

func (l *Loopback) Close() error { return nil }

// Push queues an inbound command frame, remote side.
func (l *Loopback) Push(frame []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := make([]byte, len(frame))
	copy(cp, frame)
	l.inbox = append(l.inbox, cp)
}

// SetConnected flips the attachment state, remote side.
func (l *Loopback) SetConnected(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connected = on
}

// Sent drains and returns the frames sent so far, remote side.
func (l *Loopback) Sent() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.sent
	l.sent = nil
	return out
}

// Advertised returns how many re-advertise requests were made.
func (l *Loopback) Advertised() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.advertised
}
