// Package stt implements the four transcription provider variants from spec
// §4.2/§6.2: whisper, gpt-4o-transcribe, gpt-4o-mini-transcribe and
// gemini-audio. The request/response shape is grounded on the teacher's
// pkg/providers/stt adapters (multipart upload to an OpenAI-compatible
// /v1/audio/transcriptions endpoint); gemini-audio adapts the teacher's
// GoogleLLM JSON request shape for inline audio content.
package stt

import (
	"context"
	"time"
)

// Segment is a provider sub-segment with offsets relative to the batch
// start, as returned by providers that segment their own output.
type Segment struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

// Result is what a provider returns for one transcription attempt (§6.2).
type Result struct {
	Text     string
	Segments []Segment
	Language string
}

// Provider is the tagged-variant transcription client abstraction from
// Design Notes §9: transcribe plus a name, no dynamic class lookup.
type Provider interface {
	// Transcribe submits a WAV blob and returns the provider's result. Any
	// returned error is treated by the dispatcher as transient and subject
	// to retry (§6.2).
	Transcribe(ctx context.Context, wavBytes []byte, language string) (Result, error)
	Name() string
}
