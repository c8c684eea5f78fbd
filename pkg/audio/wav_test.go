package audio

import (
	"bytes"
	"testing"
)

func TestEncodeWAVHeader(t *testing.T) {
	samples := []int16{1, -1, 256, -256}
	sampleRate := 44100
	wav := EncodeWAV(samples, sampleRate)

	if !bytes.HasPrefix(wav, []byte("RIFF")) {
		t.Errorf("expected RIFF prefix")
	}
	if !bytes.Contains(wav, []byte("WAVE")) {
		t.Errorf("expected WAVE format identifier")
	}

	expectedLen := 44 + len(samples)*2
	if len(wav) != expectedLen {
		t.Errorf("expected length %d, got %d", expectedLen, len(wav))
	}
}

func TestEncodeWAVRoundTripsPCMBytes(t *testing.T) {
	samples := []int16{1, -1, 256, -256, 32767, -32768}
	wav := EncodeWAV(samples, 16000)

	data := wav[44:]
	if len(data) != len(samples)*2 {
		t.Fatalf("expected %d data bytes, got %d", len(samples)*2, len(data))
	}
	for i, s := range samples {
		got := int16(uint16(data[i*2]) | uint16(data[i*2+1])<<8)
		if got != s {
			t.Errorf("sample %d: expected %d, got %d", i, s, got)
		}
	}
}

func TestEncodeWAVEmptySamples(t *testing.T) {
	wav := EncodeWAV(nil, 16000)
	if len(wav) != 44 {
		t.Errorf("expected a bare 44-byte header, got %d bytes", len(wav))
	}
}
