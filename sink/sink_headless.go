//go:build headless

package sink

// New returns the pacing discard sink on headless builds.
func New(sampleRate, blockFrames int) (Sink, error) {
	return NewDiscard(sampleRate, blockFrames), nil
}
