// Package telemetry serializes sensor frames for the remote controller and
// keeps the link's liveness timers satisfied when sensor production stalls.
package telemetry

import (
	"strconv"
	"time"

	"github.com/GideonRubin/sensory-feedback/device"
)

const (
	// DefaultStallWindow is how long the publisher waits without a pending
	// data frame before emitting a heartbeat on an active link.
	DefaultStallWindow = time.Second

	// DefaultSettleDelay is the pause after link loss before re-advertising
	// is requested.
	DefaultSettleDelay = 500 * time.Millisecond
)

// Heartbeat is the minimal keep-alive frame, distinguishable from any data
// frame by its leading byte.
var Heartbeat = []byte("H\n")

// Link is the outbound surface the publisher needs.
type Link interface {
	Send(frame []byte) error
	Connected() bool
	Advertise()
}

// Publisher builds at most one pending telemetry frame per control cycle and
// ships it on the next publish step. Frames are compact text:
//
//	T:<unix-millis>,r0,r1,r2,r3\n
type Publisher struct {
	link        Link
	stallWindow time.Duration
	settleDelay time.Duration
	now         func() time.Time

	pending     []byte
	hasPending  bool
	lastPending time.Time

	wasConnected bool
	lostAt       time.Time
	advertised   bool

	buf [64]byte
}

func NewPublisher(link Link) *Publisher {
	return &Publisher{
		link:        link,
		stallWindow: DefaultStallWindow,
		settleDelay: DefaultSettleDelay,
		now:         time.Now,
	}
}

// SetClock replaces the time source (tests).
func (p *Publisher) SetClock(now func() time.Time) { p.now = now }

// Produce marks a new frame pending unless one already is. The latest raw
// readings are serialized immediately; the frame is never retained past the
// publish that sends it.
func (p *Publisher) Produce(raw [device.NumChannels]int) {
	if p.hasPending {
		return
	}
	now := p.now()
	b := p.buf[:0]
	b = append(b, 'T', ':')
	b = strconv.AppendInt(b, now.UnixMilli(), 10)
	for _, r := range raw {
		b = append(b, ',')
		b = strconv.AppendInt(b, int64(r), 10)
	}
	b = append(b, '\n')
	p.pending = b
	p.hasPending = true
	p.lastPending = now
}

// Publish sends the pending frame if any; otherwise, if the link is active
// and production has stalled past the window, it sends one heartbeat and
// restarts the stall timer. On link loss it resets pending state and asks
// for re-advertising once the settle delay has passed.
func (p *Publisher) Publish() error {
	now := p.now()
	connected := p.link.Connected()

	if !connected {
		if p.wasConnected {
			// Link just dropped: reset pending state and the stall timer.
			p.hasPending = false
			p.lastPending = now
			p.lostAt = now
			p.advertised = false
			p.wasConnected = false
		}
		if !p.advertised && now.Sub(p.lostAt) >= p.settleDelay {
			p.link.Advertise()
			p.advertised = true
		}
		return nil
	}
	p.wasConnected = true

	if p.hasPending {
		err := p.link.Send(p.pending)
		p.hasPending = false
		return err
	}

	if p.lastPending.IsZero() {
		p.lastPending = now
		return nil
	}
	if now.Sub(p.lastPending) > p.stallWindow {
		p.lastPending = now
		return p.link.Send(Heartbeat)
	}
	return nil
}
