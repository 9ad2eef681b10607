package link

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.bug.st/serial"
)

// inboxDepth bounds queued inbound commands; beyond it new frames are
// dropped, matching the protocol's drop-don't-block policy.
const inboxDepth = 16

// maxLineLen bounds an inbound ASCII frame; an overlong line is discarded.
const maxLineLen = 64

// Serial carries the control channel over a UART bridge to the wireless
// module. Inbound bytes are framed on '\n', except the legacy single-byte
// power frames 0x00/0x01 which pass through on their own.
type Serial struct {
	port      serial.Port
	logger    *slog.Logger
	inbox     chan []byte
	connected atomic.Bool

	mu     sync.Mutex
	closed bool
}

// OpenSerial opens the named UART device at the given baud rate and starts
// the inbound framing goroutine.
func OpenSerial(name string, baud int, logger *slog.Logger) (*Serial, error) {
	if logger == nil {
		logger = slog.Default()
	}
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("control link %s: %w", name, err)
	}
	s := &Serial{
		port:   port,
		logger: logger,
		inbox:  make(chan []byte, inboxDepth),
	}
	s.connected.Store(true)
	logger.Info("link: serial port opened", "device", name, "baud", baud)
	go s.readLoop()
	return s, nil
}

func (s *Serial) readLoop() {
	buf := make([]byte, 256)
	line := make([]byte, 0, maxLineLen)
	discarding := false
	for {
		n, err := s.port.Read(buf)
		if err != nil {
			s.logger.Warn("link: read error, remote detached", "err", err)
			s.connected.Store(false)
			return
		}
		for _, b := range buf[:n] {
			if (b == 0 || b == 1) && len(line) == 0 && !discarding {
				s.deliver([]byte{b})
				continue
			}
			if b == '\n' {
				if discarding {
					discarding = false
				} else if len(line) > 0 {
					frame := make([]byte, len(line))
					copy(frame, line)
					s.deliver(frame)
				}
				line = line[:0]
				continue
			}
			if discarding {
				continue
			}
			if len(line) >= maxLineLen {
				// Overlong frame: drop it and everything up to the
				// terminating newline.
				line = line[:0]
				discarding = true
				continue
			}
			line = append(line, b)
		}
	}
}

func (s *Serial) deliver(frame []byte) {
	select {
	case s.inbox <- frame:
	default:
		s.logger.Warn("link: inbox full, command dropped")
	}
}

func (s *Serial) Send(frame []byte) error {
	_, err := s.port.Write(frame)
	if err != nil {
		s.connected.Store(false)
	}
	return err
}

func (s *Serial) Receive() ([]byte, bool) {
	select {
	case f := <-s.inbox:
		return f, true
	default:
		return nil, false
	}
}

func (s *Serial) Connected() bool { return s.connected.Load() }

// Advertise is delegated to the external pairing stack; over the UART bridge
// there is nothing to do but note the request.
func (s *Serial) Advertise() {
	s.logger.Info("link: re-advertise requested")
}

func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Info("link: closing port")
	return s.port.Close()
}
