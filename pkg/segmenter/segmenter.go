// Package segmenter turns a raw frame stream into voice-activity-bounded
// audio batches (§4.1 of the spec). It is grounded on the teacher's
// RMSVAD (pkg/orchestrator/vad.go) for the energy/hysteresis shape, adapted
// to the sample-accurate min/max-duration batching contract the spec
// requires rather than a streaming speech-start/speech-end event stream.
package segmenter

import (
	"sync"
	"time"

	"github.com/meetscribe/meetscribe/pkg/audio"
)

// Config holds the tunables from spec §4.1.
type Config struct {
	SampleRate         int
	MinBatchDuration   time.Duration
	MaxBatchDuration   time.Duration
	SilenceThresholdMS int
	EnergyThreshold    float64
	OverlapDuration    time.Duration
}

// DefaultConfig mirrors the scenario S1/S2 configuration from spec §8.
func DefaultConfig() Config {
	return Config{
		SampleRate:         16000,
		MinBatchDuration:   3 * time.Second,
		MaxBatchDuration:   30 * time.Second,
		SilenceThresholdMS: 500,
		EnergyThreshold:    1000,
		OverlapDuration:    500 * time.Millisecond,
	}
}

// Batch is an ordered sequence of samples bounded by silence or max
// duration, plus up to OverlapDuration of samples replayed from the prior
// batch (§3 Audio batch).
type Batch struct {
	Samples    []int16
	StartTime  time.Time
	Duration   time.Duration // excludes overlap, per §3
	Sequence   int
	Final      bool
	SampleRate int
}

// Segmenter implements the VAD-based batcher described in §4.1. It is not
// safe for concurrent Write calls from multiple goroutines (frames arrive
// from a single ingestion task per §5), but Enabled/SetEnabled and Stats may
// be called concurrently with Write.
type Segmenter struct {
	cfg Config

	mu sync.Mutex // guards enabled only; everything else is single-writer

	enabled bool

	pending      []int16
	pendingStart time.Time
	hasPending   bool
	silenceSince time.Time
	inSilence    bool
	nextSeq      int

	// overlapTail holds the pre-overlap trailing samples of the last
	// emitted batch, replayed onto the front of the next one (Design Notes
	// §9: "ring-buffer of the last overlap_duration samples").
	overlapTail []int16

	stats Stats
}

// Stats mirrors the original batching.py's statistics surface, extended
// with the segmenter's own bookkeeping.
type Stats struct {
	BatchesCreated       int
	TotalAudioDuration   time.Duration
	AverageBatchDuration time.Duration
}

// New constructs a Segmenter. Recording starts disabled per the
// recording-enabled invariant (§3): frames fed while disabled do not
// advance the segmenter.
func New(cfg Config) *Segmenter {
	return &Segmenter{cfg: cfg, enabled: false}
}

// SetEnabled toggles whether incoming frames reach the segmenter. Disabling
// does not flush or clear pending state; it is purely a gate at the input
// (§4.5 Recording control).
func (s *Segmenter) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

// Enabled reports the current recording-enabled state.
func (s *Segmenter) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Write feeds one frame to the segmenter. It returns a non-nil batch when
// the frame closes out a batch (silence-closed or max-closed, §4.1 step 3).
// When recording is disabled the frame is discarded and the pending buffer
// is left untouched (invariant §3, tested by scenario S5 / property 9).
func (s *Segmenter) Write(f audio.Frame) *Batch {
	s.mu.Lock()
	enabled := s.enabled
	s.mu.Unlock()
	if !enabled {
		return nil
	}

	samples := f.Mono()
	if !s.hasPending {
		s.pendingStart = f.Timestamp
		s.hasPending = true
	}
	s.pending = append(s.pending, samples...)

	energy := audio.RMSEnergy(samples)
	isSilence := energy <= s.cfg.EnergyThreshold
	if isSilence {
		if !s.inSilence {
			s.inSilence = true
			s.silenceSince = f.Timestamp
		}
	} else {
		s.inSilence = false
	}

	durationSec := float64(len(s.pending)) / float64(s.cfg.SampleRate)
	duration := time.Duration(durationSec * float64(time.Second))

	silenceElapsedMS := 0
	if s.inSilence {
		silenceElapsedMS = int(f.Timestamp.Sub(s.silenceSince) / time.Millisecond)
	}

	silenceClosed := duration >= s.cfg.MinBatchDuration && s.inSilence &&
		silenceElapsedMS >= s.cfg.SilenceThresholdMS
	maxClosed := duration >= s.cfg.MaxBatchDuration

	if silenceClosed || maxClosed {
		return s.emit(duration, false)
	}
	return nil
}

// ForceFlush emits the pending buffer as a final batch regardless of
// duration, used on shutdown or explicit request (§4.1 Force-flush). It
// returns nil if there is nothing pending.
func (s *Segmenter) ForceFlush() *Batch {
	if !s.hasPending || len(s.pending) == 0 {
		return nil
	}
	durationSec := float64(len(s.pending)) / float64(s.cfg.SampleRate)
	return s.emit(time.Duration(durationSec*float64(time.Second)), true)
}

// Stats returns a snapshot of the segmenter's running counters.
func (s *Segmenter) Stats() Stats {
	return s.stats
}

func (s *Segmenter) emit(duration time.Duration, final bool) *Batch {
	out := make([]int16, 0, len(s.overlapTail)+len(s.pending))
	out = append(out, s.overlapTail...)
	out = append(out, s.pending...)

	batch := &Batch{
		Samples:    out,
		StartTime:  s.pendingStart,
		Duration:   duration,
		Sequence:   s.nextSeq,
		Final:      final,
		SampleRate: s.cfg.SampleRate,
	}
	s.nextSeq++

	// Remember the pre-overlap tail of this batch (the newly-captured
	// samples only, not the replayed overlap) for the next emission.
	overlapSamples := int(s.cfg.OverlapDuration.Seconds() * float64(s.cfg.SampleRate))
	if overlapSamples > len(s.pending) {
		overlapSamples = len(s.pending)
	}
	if overlapSamples > 0 {
		tail := make([]int16, overlapSamples)
		copy(tail, s.pending[len(s.pending)-overlapSamples:])
		s.overlapTail = tail
	} else {
		s.overlapTail = nil
	}

	s.pending = nil
	s.hasPending = false
	s.inSilence = false

	s.stats.BatchesCreated++
	s.stats.TotalAudioDuration += duration
	if s.stats.BatchesCreated > 0 {
		s.stats.AverageBatchDuration = s.stats.TotalAudioDuration / time.Duration(s.stats.BatchesCreated)
	}

	return batch
}
