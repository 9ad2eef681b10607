// song-prep converts an arbitrary WAV file into the device's fixed song
// format: stereo 16-bit PCM at the engine sample rate behind the standard
// 44-byte header.
package main

import (
	"flag"
	"fmt"
	"os"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"

	"github.com/GideonRubin/sensory-feedback/synth"
)

func main() {
	input := flag.String("input", "", "source WAV file")
	output := flag.String("output", "song.wav", "device song file to write")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: song-prep -input track.wav [-output song.wav]")
		os.Exit(1)
	}

	left, right, rate, err := readWAVStereo(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", *input, err)
		os.Exit(1)
	}
	fmt.Printf("Read %s: %d frames at %d Hz\n", *input, len(left), rate)

	left, err = resampleIfNeeded(left, rate, synth.SampleRate)
	if err == nil {
		right, err = resampleIfNeeded(right, rate, synth.SampleRate)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resampling: %v\n", err)
		os.Exit(1)
	}

	if err := writeSong(*output, left, right); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", *output, err)
		os.Exit(1)
	}
	fmt.Printf("Successfully wrote %s (%d frames at %d Hz)\n", *output, len(left), synth.SampleRate)
}

func readWAVStereo(path string) (left, right []float64, rate int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, nil, 0, fmt.Errorf("invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, nil, 0, err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, nil, 0, fmt.Errorf("invalid wav buffer: %s", path)
	}

	ch := buf.Format.NumChannels
	frames := len(buf.Data) / ch
	left = make([]float64, frames)
	right = make([]float64, frames)
	scale := 1.0 / float64(int(1)<<(buf.SourceBitDepth-1))
	for i := 0; i < frames; i++ {
		l := float64(buf.Data[i*ch]) * scale
		r := l
		if ch > 1 {
			r = float64(buf.Data[i*ch+1]) * scale
		}
		left[i] = l
		right[i] = r
	}
	return left, right, buf.Format.SampleRate, nil
}

func resampleIfNeeded(in []float64, fromRate, toRate int) ([]float64, error) {
	if fromRate == toRate {
		return in, nil
	}
	r, err := dspresample.NewForRates(
		float64(fromRate),
		float64(toRate),
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return nil, err
	}
	return r.Process(in), nil
}

func writeSong(path string, left, right []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, synth.SampleRate, 16, 2, 1)
	defer enc.Close()

	data := make([]int, len(left)*2)
	for i := range left {
		data[i*2] = clamp16(left[i])
		data[i*2+1] = clamp16(right[i])
	}
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			SampleRate:  synth.SampleRate,
			NumChannels: 2,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
	return enc.Write(buf.AsFloat32Buffer())
}

func clamp16(v float64) int {
	s := int(v * 32767)
	if s > 32767 {
		return 32767
	}
	if s < -32768 {
		return -32768
	}
	return s
}
