package main

import (
	"time"

	"github.com/gen2brain/malgo"

	"github.com/meetscribe/meetscribe/pkg/audio"
)

// micSource is the pkg/audio.Source implementation backing C1: malgo capture
// device feeding int16 frames into a bounded channel. It adapts the
// teacher's cmd/agent/main.go device wiring (malgo.InitContext, a Capture
// device, an onSamples callback) from the teacher's duplex mic+playback loop
// down to capture-only, since this service never synthesizes audio back.
type micSource struct {
	sampleRate int
	channels   int

	mctx   *malgo.AllocatedContext
	device *malgo.Device

	frames chan audio.Frame
}

func newMicSource(sampleRate, channels, queueDepth int) *micSource {
	return &micSource{
		sampleRate: sampleRate,
		channels:   channels,
		frames:     make(chan audio.Frame, queueDepth),
	}
}

// Start initializes the malgo context and capture device. Safe to call once.
func (m *micSource) Start() error {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return err
	}
	m.mctx = mctx

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(m.channels)
	deviceConfig.SampleRate = uint32(m.sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	onSamples := func(_, input []byte, frameCount uint32) {
		if len(input) == 0 {
			return
		}
		samples := bytesToInt16(input)
		frame := audio.Frame{
			Samples:    samples,
			Timestamp:  time.Now(),
			SampleRate: m.sampleRate,
			Channels:   m.channels,
		}
		// Frames queue (C1→C2): bounded, drop oldest on overflow (§5
		// Queues and backpressure) — lossy capture beats a stalled callback.
		select {
		case m.frames <- frame:
		default:
			select {
			case <-m.frames:
			default:
			}
			select {
			case m.frames <- frame:
			default:
			}
		}
	}

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onSamples})
	if err != nil {
		mctx.Uninit()
		return err
	}
	m.device = device

	return device.Start()
}

// Stop releases the device and context.
func (m *micSource) Stop() error {
	if m.device != nil {
		m.device.Uninit()
	}
	if m.mctx != nil {
		return m.mctx.Uninit()
	}
	return nil
}

// NextFrame blocks briefly for the next captured frame, reporting
// ok=false,err=nil on the "no data available" timeout per the Source
// contract (pkg/audio.Source).
func (m *micSource) NextFrame() (audio.Frame, bool, error) {
	select {
	case f := <-m.frames:
		return f, true, nil
	case <-time.After(100 * time.Millisecond):
		return audio.Frame{}, false, nil
	}
}

func bytesToInt16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(b[2*i]) | int16(b[2*i+1])<<8
	}
	return out
}
