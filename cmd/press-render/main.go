// press-render renders simulated press gestures through the Accordion engine
// into a WAV file, for listening tests without hardware.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"

	"github.com/GideonRubin/sensory-feedback/device"
	"github.com/GideonRubin/sensory-feedback/synth"
)

func main() {
	duration := flag.Float64("duration", 4.0, "render duration in seconds")
	gestureS := flag.Float64("gesture", 1.0, "seconds per press gesture")
	channels := flag.String("channels", "0,1,2,3", "channels to press, in order")
	depth := flag.Float64("depth", 0.8, "press depth (0-1)")
	master := flag.Float64("master", 0.8, "master volume (0-1)")
	tailDBFS := flag.Float64("tail-dbfs", -90, "auto-stop once the block RMS of the tail falls below this dBFS")
	output := flag.String("output", "output.wav", "output WAV file path")
	flag.Parse()

	order, err := parseChannels(*channels)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	state := device.NewState()
	state.SetMasterVolume(float32(*master))
	engine := synth.NewEngine(state)

	totalFrames := int(*duration * synth.SampleRate)
	gestureFrames := int(*gestureS * synth.SampleRate)
	if gestureFrames < synth.BlockFrames {
		gestureFrames = synth.BlockFrames
	}

	fmt.Printf("Rendering %.2fs of press gestures on channels %v to %s...\n",
		*duration, order, *output)

	samples := make([]int, 0, totalFrames*2)
	rendered := 0
	for rendered < totalFrames {
		applyGesture(state, order, rendered, gestureFrames, *depth)
		block := engine.Render(nil)
		for _, s := range block {
			samples = append(samples, int(s))
		}
		rendered += synth.BlockFrames
	}

	// Let the release tails ring out until the output decays.
	threshold := math.Pow(10, *tailDBFS/20)
	for _, ch := range order {
		state.Channel(ch).SetForce(0)
	}
	for {
		block := engine.Render(nil)
		for _, s := range block {
			samples = append(samples, int(s))
		}
		if blockRMS(block) < threshold {
			break
		}
	}

	if err := writeWAV(*output, samples); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", *output, err)
		os.Exit(1)
	}
	fmt.Printf("Successfully wrote %s (%d frames)\n", *output, len(samples)/2)
}

// applyGesture drives one channel at a time with a raised-cosine press.
func applyGesture(state *device.State, order []int, frame, gestureFrames int, depth float64) {
	for _, ch := range order {
		state.Channel(ch).SetForce(0)
	}
	idx := (frame / gestureFrames) % len(order)
	phase := float64(frame%gestureFrames) / float64(gestureFrames)
	press := depth * 0.5 * (1 - math.Cos(2*math.Pi*phase))
	state.Channel(order[idx]).SetForce(float32(press))
}

func blockRMS(block []int16) float64 {
	if len(block) == 0 {
		return 0
	}
	var sum float64
	for _, s := range block {
		v := float64(s) / 32768
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(block)))
}

func writeWAV(path string, samples []int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, synth.SampleRate, 16, 2, 1)
	defer enc.Close()

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			SampleRate:  synth.SampleRate,
			NumChannels: 2,
		},
		Data:           samples,
		SourceBitDepth: 16,
	}
	return enc.Write(buf.AsFloat32Buffer())
}

func parseChannels(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		ch, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || ch < 0 || ch >= device.NumChannels {
			return nil, fmt.Errorf("invalid channel %q (expected 0..%d)", p, device.NumChannels-1)
		}
		out = append(out, ch)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no channels given")
	}
	return out, nil
}
