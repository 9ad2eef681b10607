package sensor

import (
	"bufio"
	"fmt"
	"math"
	"sync/atomic"

	"go.bug.st/serial"

	"github.com/GideonRubin/sensory-feedback/device"
)

// DemoReader generates slow synthetic press gestures so the device binary can
// run on a development host without the sensor bridge attached. Each channel
// is pressed in turn with a raised-cosine gesture.
type DemoReader struct {
	cycle int
	rate  float64 // control cycles per second
}

func NewDemoReader(controlRate float64) *DemoReader {
	if controlRate <= 0 {
		controlRate = 30
	}
	return &DemoReader{rate: controlRate}
}

func (d *DemoReader) Sample() ([device.NumChannels]int, error) {
	var out [device.NumChannels]int
	t := float64(d.cycle) / d.rate
	d.cycle++

	const gestureS = 2.0
	active := int(t/gestureS) % device.NumChannels
	phase := math.Mod(t, gestureS) / gestureS
	press := 0.5 * (1 - math.Cos(2*math.Pi*phase)) // 0..1..0
	out[active] = int(press * 3000)
	return out, nil
}

// SerialReader reads raw samples from the ADC bridge: one ASCII line per
// sample frame, four comma-separated readings. A background goroutine keeps
// only the latest frame so Sample never blocks the control loop.
type SerialReader struct {
	port   serial.Port
	latest atomic.Pointer[[device.NumChannels]int]
	err    atomic.Pointer[error]
}

func OpenSerialReader(name string, baud int) (*SerialReader, error) {
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("sensor bridge %s: %w", name, err)
	}
	r := &SerialReader{port: port}
	var zero [device.NumChannels]int
	r.latest.Store(&zero)
	go r.readLoop()
	return r, nil
}

func (r *SerialReader) readLoop() {
	sc := bufio.NewScanner(r.port)
	for sc.Scan() {
		var frame [device.NumChannels]int
		n, err := fmt.Sscanf(sc.Text(), "%d,%d,%d,%d",
			&frame[0], &frame[1], &frame[2], &frame[3])
		if err != nil || n != device.NumChannels {
			continue // malformed line, keep the previous frame
		}
		r.latest.Store(&frame)
	}
	if err := sc.Err(); err != nil {
		r.err.Store(&err)
	}
}

// Sample returns the most recent frame from the bridge.
func (r *SerialReader) Sample() ([device.NumChannels]int, error) {
	if errp := r.err.Load(); errp != nil {
		return [device.NumChannels]int{}, *errp
	}
	return *r.latest.Load(), nil
}

func (r *SerialReader) Close() error { return r.port.Close() }
