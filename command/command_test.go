package command

import (
	"fmt"
	"math"
	"testing"

	"github.com/GideonRubin/sensory-feedback/device"
)

func TestHandleAppliesCommands(t *testing.T) {
	tests := []struct {
		frame string
		check func(t *testing.T, s *device.State)
	}{
		{"POWER:0", func(t *testing.T, s *device.State) {
			if s.Power() {
				t.Errorf("power should be off")
			}
		}},
		{"POWER:1", func(t *testing.T, s *device.State) {
			if !s.Power() {
				t.Errorf("power should be on")
			}
		}},
		{"SENSOR_VOLUME:2,50", func(t *testing.T, s *device.State) {
			if got := s.Channel(2).Volume(); math.Abs(float64(got-0.5)) > 1e-6 {
				t.Errorf("channel 2 volume: got=%f want=0.5", got)
			}
		}},
		{"CALIBRATE:100,200,300,400", func(t *testing.T, s *device.State) {
			want := []int{100, 200, 300, 400}
			for i, w := range want {
				if got := s.Channel(i).Baseline(); got != w {
					t.Errorf("baseline[%d]: got=%d want=%d", i, got, w)
				}
			}
		}},
		{"SENSOR_THRESHOLD:10,20,30,40", func(t *testing.T, s *device.State) {
			want := []int{10, 20, 30, 40}
			for i, w := range want {
				if got := s.Channel(i).Threshold(); got != w {
					t.Errorf("threshold[%d]: got=%d want=%d", i, got, w)
				}
			}
		}},
		{"VOLUME_TOTAL:75", func(t *testing.T, s *device.State) {
			if got := s.MasterVolume(); math.Abs(float64(got-0.75)) > 1e-6 {
				t.Errorf("master volume: got=%f want=0.75", got)
			}
		}},
		{"MODE:1", func(t *testing.T, s *device.State) {
			if s.Mode() != device.ModeSong {
				t.Errorf("mode should be Song")
			}
		}},
		{"SENSITIVITY:0", func(t *testing.T, s *device.State) {
			front, back := s.Curve()
			if math.Abs(float64(front-2.0)) > 1e-5 || math.Abs(float64(back-0.3)) > 1e-5 {
				t.Errorf("curve: got=(%f,%f) want=(2.0,0.3)", front, back)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.frame, func(t *testing.T) {
			state := device.NewState()
			p := NewProcessor(state)
			if !p.Handle([]byte(tt.frame)) {
				t.Fatalf("frame %q rejected", tt.frame)
			}
			tt.check(t, state)
		})
	}
}

func TestHandleClampsPayloads(t *testing.T) {
	state := device.NewState()
	p := NewProcessor(state)

	if !p.Handle([]byte("VOLUME_TOTAL:9999")) {
		t.Fatalf("clamped frame should still apply")
	}
	if got := state.MasterVolume(); got != 1 {
		t.Errorf("master volume should clamp to 1: got=%f", got)
	}

	if !p.Handle([]byte("CALIBRATE:9999,9999,9999,9999")) {
		t.Fatalf("clamped frame should still apply")
	}
	if got := state.Channel(0).Baseline(); got != device.FullScale {
		t.Errorf("baseline should clamp to full scale: got=%d", got)
	}
}

func TestHandleDropsMalformedFrames(t *testing.T) {
	malformed := []string{
		"",
		"POWER",           // missing separator
		"POWER:",          // empty payload
		"POWER:x",         // non-numeric
		"SENSOR_VOLUME:2", // wrong argument count
		"SENSOR_VOLUME:2,50,1",
		"CALIBRATE:1,2,3", // three of four
		"CALIBRATE:1,2,3,4,5",
		"SENSOR_VOLUME:9,50", // channel out of range
		"MODE:2",
		"NOSUCH:1",
		"CALIBRATE:1,,3,4",
	}
	for _, frame := range malformed {
		t.Run(fmt.Sprintf("%q", frame), func(t *testing.T) {
			state := device.NewState()
			p := NewProcessor(state)
			if p.Handle([]byte(frame)) {
				t.Errorf("malformed frame %q was accepted", frame)
			}
		})
	}

	// Overlong frames are dropped unparsed.
	state := device.NewState()
	p := NewProcessor(state)
	long := make([]byte, MaxFrameLen+1)
	copy(long, "POWER:1")
	if p.Handle(long) {
		t.Errorf("overlong frame was accepted")
	}
}

func TestHandleLegacyPowerFrame(t *testing.T) {
	state := device.NewState()
	p := NewProcessor(state)

	if !p.Handle([]byte{0}) {
		t.Fatalf("legacy off frame rejected")
	}
	if state.Power() {
		t.Errorf("legacy frame 0 should power off")
	}
	if !p.Handle([]byte{1}) {
		t.Fatalf("legacy on frame rejected")
	}
	if !state.Power() {
		t.Errorf("legacy frame 1 should power on")
	}
}

func TestModeSwitchRaisesIntentsAndPersistsOnce(t *testing.T) {
	state := device.NewState()
	p := NewProcessor(state)
	persisted := 0
	p.OnModeChange(func(device.Mode) { persisted++ })

	p.Handle([]byte("MODE:1"))
	open, closeReq := state.TakeStreamRequests()
	if !open || closeReq {
		t.Fatalf("expected open intent only: open=%v close=%v", open, closeReq)
	}
	if persisted != 1 {
		t.Fatalf("expected one persist call, got %d", persisted)
	}

	// Repeating the active mode is a no-op: no intent, no persist.
	p.Handle([]byte("MODE:1"))
	open, closeReq = state.TakeStreamRequests()
	if open || closeReq {
		t.Fatalf("duplicate MODE raised intents: open=%v close=%v", open, closeReq)
	}
	if persisted != 1 {
		t.Fatalf("duplicate MODE persisted again: %d", persisted)
	}

	p.Handle([]byte("MODE:0"))
	open, closeReq = state.TakeStreamRequests()
	if open || !closeReq {
		t.Fatalf("expected close intent only: open=%v close=%v", open, closeReq)
	}
}

func TestHandleDoesNotAllocate(t *testing.T) {
	state := device.NewState()
	p := NewProcessor(state)
	frames := [][]byte{
		[]byte("POWER:1"),
		[]byte("SENSOR_VOLUME:1,80"),
		[]byte("CALIBRATE:100,200,300,400"),
		[]byte("VOLUME_TOTAL:60"),
		[]byte("SENSITIVITY:40"),
	}
	allocs := testing.AllocsPerRun(100, func() {
		for _, f := range frames {
			p.Handle(f)
		}
	})
	if allocs != 0 {
		t.Errorf("Handle allocates: %.1f allocs per run", allocs)
	}
}
