// Package audio holds the sample-stream primitives shared by the segmenter
// and transcription dispatcher: frames arriving from the capture source, the
// WAV container the dispatcher hands to providers, and the small amount of
// signal processing (RMS energy, peak normalization, denoise) that sits
// between them.
package audio

import "time"

// Frame is one block of decoded PCM samples handed to the segmenter by a
// Source. It is immutable once constructed.
type Frame struct {
	Samples    []int16
	Timestamp  time.Time
	SampleRate int
	Channels   int
}

// Duration returns the playback duration of the frame.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 || len(f.Samples) == 0 {
		return 0
	}
	perChannel := len(f.Samples) / maxInt(f.Channels, 1)
	return time.Duration(perChannel) * time.Second / time.Duration(f.SampleRate)
}

// Mono reduces a multi-channel frame to mono by averaging channels. If the
// frame is already mono it returns the samples unchanged.
func (f Frame) Mono() []int16 {
	if f.Channels <= 1 {
		return f.Samples
	}
	n := len(f.Samples) / f.Channels
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		var sum int32
		for c := 0; c < f.Channels; c++ {
			sum += int32(f.Samples[i*f.Channels+c])
		}
		out[i] = int16(sum / int32(f.Channels))
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Source is the external collaborator that produces a lazy, infinite
// sequence of fixed-format PCM frames with wall-clock timestamps. Its
// implementation (device discovery, subprocess capture, platform backends)
// is out of scope for this module; cmd/meetscribe wires a concrete Source
// backed by malgo loopback/microphone capture.
type Source interface {
	// Start begins producing frames. It must be safe to call once.
	Start() error
	// Stop halts production and releases any underlying resources.
	Stop() error
	// NextFrame blocks until a frame is available, the context is done, or
	// the short internal timeout elapses (in which case ok is false and err
	// is nil — "no data available" is not an error).
	NextFrame() (frame Frame, ok bool, err error)
}
